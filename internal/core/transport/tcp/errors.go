package tcp

import "errors"

var (
	// ErrBind 绑定 TCP 端口失败
	ErrBind = errors.New("tcp: bind failed")

	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("tcp: session closed")

	// ErrConnRead 读取入站连接失败（非致命）
	ErrConnRead = errors.New("tcp: connection read failed")
)
