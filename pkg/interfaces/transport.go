package interfaces

import (
	"context"

	"github.com/bRuttaZz/stmp/pkg/types"
)

// Transport 传输层接口
//
// Send 的网络错误（拒绝连接、超时、重置）在传输层内部处理并返回 false，
// 不向调用方抛出。addr 为空、port 为 0 时使用传输的默认目标。
type Transport interface {
	// Send 发送一帧，成功返回 true
	Send(ctx context.Context, data []byte, addr string, port int) bool

	// Listen 绑定并返回接收会话；绑定失败为致命错误
	Listen(ctx context.Context) (Session, error)

	// Protocol 返回传输协议
	Protocol() types.Protocol
}

// Session 接收会话
type Session interface {
	// Read 读取下一个数据单元（UDP 数据报或单个 TCP 连接的内容）
	//
	// 阻塞直到收到数据、ctx 取消或会话关闭；返回数据与发送方 IP。
	Read(ctx context.Context, max int) ([]byte, string, error)

	// Close 释放所有系统资源，可重复调用
	Close() error
}
