package interfaces

// EventBus 进程内发布/订阅入口
//
// 主题是事件的指针类型，例如 new(types.EvtPeerListUpdated)。
type EventBus interface {
	Subscribe(eventType any) (Subscription, error)
	Emitter(eventType any) (Emitter, error)
}

// Subscription 一个订阅；Close 之后 Out 通道被关闭
type Subscription interface {
	Out() <-chan any
	Close() error
}

// Emitter 单一事件类型的发射器，Emit 从不阻塞
type Emitter interface {
	Emit(event any) error
	Close() error
}
