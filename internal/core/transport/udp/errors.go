package udp

import "errors"

var (
	// ErrBind 绑定 UDP 端口失败
	ErrBind = errors.New("udp: bind failed")

	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("udp: session closed")

	// ErrInvalidGroup 多播组地址无效
	ErrInvalidGroup = errors.New("udp: invalid multicast group")
)
