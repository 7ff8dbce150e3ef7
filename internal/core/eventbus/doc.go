// Package eventbus 实现进程内事件总线
//
// 提供类型安全的事件发布/订阅机制，节点目录用它广播
// types.EvtPeerListUpdated，CLI 等外部组件订阅后异步处理。
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(types.EvtPeerListUpdated))
//	defer sub.Close()
//
//	go func() {
//	    for evt := range sub.Out() {
//	        e := evt.(*types.EvtPeerListUpdated)
//	        // 处理事件
//	    }
//	}()
//
//	em, _ := bus.Emitter(new(types.EvtPeerListUpdated))
//	defer em.Close()
//	em.Emit(&types.EvtPeerListUpdated{...})
//
// # 慢消费者
//
// 发射不阻塞：订阅缓冲区满时丢弃事件，每丢弃 100 个记录一次警告。
package eventbus
