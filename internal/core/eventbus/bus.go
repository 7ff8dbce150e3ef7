package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus: closed")
	// ErrInvalidEventType 无效的事件类型
	ErrInvalidEventType = errors.New("eventbus: invalid event type")
	// ErrNonPointerType 非指针类型
	ErrNonPointerType = errors.New("eventbus: subscribe called with non-pointer type")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("eventbus: emitter closed")
)

// DefaultBuffer 默认订阅缓冲区大小
const DefaultBuffer = 16

// Option 总线选项
type Option func(*Bus)

// WithBuffer 设置每个订阅的缓冲区大小，负数按 0 处理
func WithBuffer(n int) Option {
	return func(b *Bus) {
		b.buffer = max(n, 0)
	}
}

// ============================================================================
// Bus 实现
// ============================================================================

// Bus 事件总线
type Bus struct {
	mu     sync.RWMutex
	nodes  map[reflect.Type]*node
	buffer int
	closed atomic.Bool
}

var _ pkgif.EventBus = (*Bus)(nil)

// node 事件类型节点
type node struct {
	lk        sync.Mutex
	typ       reflect.Type
	sinks     []*Subscription
	nEmitters atomic.Int32
	dropCount atomic.Int64
}

// NewBus 创建新的事件总线
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		nodes:  make(map[reflect.Type]*node),
		buffer: DefaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe 订阅事件
//
// eventType 必须是指针，例如 new(types.EvtPeerListUpdated)；
// 通道中收到的是发射时传入的值。
func (b *Bus) Subscribe(eventType any) (pkgif.Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	elemType, err := eventElem(eventType)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		bus: b,
		typ: elemType,
		out: make(chan any, b.buffer),
	}
	b.withNode(elemType, func(n *node) {
		n.sinks = append(n.sinks, sub)
	})

	return sub, nil
}

// Emitter 获取发射器
func (b *Bus) Emitter(eventType any) (pkgif.Emitter, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	elemType, err := eventElem(eventType)
	if err != nil {
		return nil, err
	}

	var n *node
	b.withNode(elemType, func(nd *node) {
		n = nd
		n.nEmitters.Add(1)
	})

	return &Emitter{bus: b, node: n, typ: elemType}, nil
}

// Close 关闭总线及所有订阅
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	var subs []*Subscription
	for _, n := range b.nodes {
		n.lk.Lock()
		subs = append(subs, n.sinks...)
		n.lk.Unlock()
	}
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

// ============================================================================
// 内部方法
// ============================================================================

func eventElem(eventType any) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// withNode 在节点锁内执行操作，不存在则创建
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) {
	b.mu.Lock()
	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}
	n.lk.Lock()
	b.mu.Unlock()

	cb(n)
	n.lk.Unlock()
}

// tryDropNode 没有订阅者和发射器时删除节点
func (b *Bus) tryDropNode(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	n.lk.Lock()
	empty := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()
	if empty {
		delete(b.nodes, typ)
	}
}

// removeSub 移除订阅
func (b *Bus) removeSub(sub *Subscription) {
	b.mu.Lock()
	n, ok := b.nodes[sub.typ]
	if !ok {
		b.mu.Unlock()
		return
	}
	n.lk.Lock()
	b.mu.Unlock()

	for i, s := range n.sinks {
		if s == sub {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			break
		}
	}
	shouldDrop := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if shouldDrop {
		b.tryDropNode(sub.typ)
	}
}

// emit 发射事件到所有订阅者，缓冲区满的订阅者丢弃该事件
func (n *node) emit(event any) {
	n.lk.Lock()
	defer n.lk.Unlock()

	for _, sub := range n.sinks {
		select {
		case sub.out <- event:
		default:
			dropped := n.dropCount.Add(1)
			// 每丢弃 100 个事件警告一次
			if dropped%100 == 1 {
				logger.Warn("慢消费者检测",
					"dropped", dropped,
					"type", n.typ,
					"reason", "subscriber buffer full")
			}
		}
	}
}

// ============================================================================
// Emitter 实现
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	closed    atomic.Bool
	closeOnce sync.Once
}

// Emit 发射事件
//
// 事件可以是值或指针，但其类型必须与创建发射器时的类型一致。
func (e *Emitter) Emit(event any) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if e.bus.closed.Load() {
		return ErrClosed
	}
	typ := reflect.TypeOf(event)
	if typ == nil {
		return ErrInvalidEventType
	}
	if typ != e.typ && !(typ.Kind() == reflect.Ptr && typ.Elem() == e.typ) {
		return ErrInvalidEventType
	}

	e.node.emit(event)
	return nil
}

// Close 关闭发射器，引用计数归零时尝试删除节点
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}
