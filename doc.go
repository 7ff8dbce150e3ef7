// Package stmp 实现局域网节点发现与消息协议
//
// 每个实例（Server）同时：
//
//   - 在 UDP 多播组上收发广播，用于节点发现和尽力而为的消息
//   - 在 TCP 端口上接收每连接一条、带确认的消息
//   - 维护一个按 IP 索引、带 TTL 的节点目录
//
// # 快速开始
//
//	cfg := config.NewConfig().Apply(config.WithUsername("alice"))
//	srv, err := stmp.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	srv.RegisterHandler("/chat", func(ctx context.Context, p *stmp.Packet) error {
//	    text, _ := p.Text()
//	    fmt.Printf("%s@%s: %s\n", p.Header.User, p.Sender, text)
//	    return nil
//	})
//
//	go srv.Run(ctx)
//	srv.Broadcast(ctx, "/chat", "hello", 0)
//
// # 数据包处理流程
//
// 两个监听循环对每个读到的数据单元依次执行：长度前缀解析、帧上限检查、
// 头部解码、自会话过滤（仅 UDP）、消息体解码（必要时解密），然后交给
// 中间件链和命名空间处理器。任何一步失败都只丢弃当前数据包。
//
// 节点目录由内置的第一个中间件维护；/peer-join 命名空间用于握手：
// 收到 UDP 请求的实例通过 TCP 回复发送方，并附带公钥。
//
// # 并发安全
//
// Server 的所有方法都可并发调用。Run 只能同时运行一个。
package stmp
