// Package transport 组装 stmp 的两种传输
//
// 子包 udp 实现多播发现与广播，子包 tcp 实现每条消息一个连接的可靠投递，
// 子包 sockopt 提供监听套接字复用选项。
//
// 本包提供：
//
//   - Module：按统一配置构造 UDP/TCP 传输的 fx 模块
//   - MemoryNetwork：进程内传输实现，供上层测试使用
//
// # 并发安全
//
// 所有传输与会话都可被多个 goroutine 同时使用。
package transport
