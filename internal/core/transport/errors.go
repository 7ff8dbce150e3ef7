package transport

import "errors"

var (
	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("transport: session closed")

	// ErrAddrInUse 内存网络中地址已被监听
	ErrAddrInUse = errors.New("transport: address already in use")
)
