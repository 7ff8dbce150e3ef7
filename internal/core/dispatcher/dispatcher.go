package dispatcher

import (
	"context"
	"sync"

	"github.com/bRuttaZz/stmp/internal/core/metrics"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

var logger = log.Logger("core/dispatcher")

// HandlerFunc 命名空间处理器
type HandlerFunc func(ctx context.Context, pkt *types.Packet) error

// MiddlewareFunc 中间件，对每个通过解码的数据包调用
type MiddlewareFunc func(ctx context.Context, pkt *types.Packet) error

// Handle 注册句柄
type Handle struct {
	once   *sync.Once
	remove func()
}

// Remove 注销对应回调，可重复调用
func (h Handle) Remove() {
	if h.once == nil {
		return
	}
	h.once.Do(h.remove)
}

// NewHandle 用注销函数创建句柄
func NewHandle(fn func()) Handle {
	return Handle{once: new(sync.Once), remove: fn}
}

type entry[F any] struct {
	id uint64
	fn F
}

// Result 一次分发的结果
type Result struct {
	Middleware int // 执行的中间件数
	Handlers   int // 执行的处理器数
	Failures   int // 返回错误或 panic 的回调数
}

// Option 分发器选项
type Option func(*Dispatcher)

// WithMetrics 设置计数器
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher 中间件链与路由表
type Dispatcher struct {
	metrics *metrics.Metrics

	mu         sync.RWMutex
	middleware []entry[MiddlewareFunc]
	routes     map[string][]entry[HandlerFunc]
	nextID     uint64
}

// New 创建分发器
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{routes: make(map[string][]entry[HandlerFunc])}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ============================================================================
//                              注册
// ============================================================================

// Use 追加中间件
func (d *Dispatcher) Use(fn MiddlewareFunc) (Handle, error) {
	if fn == nil {
		return Handle{}, ErrNilHandler
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.middleware = append(d.middleware, entry[MiddlewareFunc]{id: id, fn: fn})
	d.mu.Unlock()

	return NewHandle(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.middleware = without(d.middleware, id)
	}), nil
}

// Handle 在命名空间上追加处理器
func (d *Dispatcher) Handle(namespace string, fn HandlerFunc) (Handle, error) {
	if namespace == "" {
		return Handle{}, ErrInvalidNamespace
	}
	if fn == nil {
		return Handle{}, ErrNilHandler
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.routes[namespace] = append(d.routes[namespace], entry[HandlerFunc]{id: id, fn: fn})
	d.mu.Unlock()

	logger.Debug("注册处理器", "namespace", namespace)
	return NewHandle(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		rest := without(d.routes[namespace], id)
		if len(rest) == 0 {
			delete(d.routes, namespace)
			return
		}
		d.routes[namespace] = rest
	}), nil
}

func without[F any](es []entry[F], id uint64) []entry[F] {
	for i, e := range es {
		if e.id == id {
			return append(es[:i:i], es[i+1:]...)
		}
	}
	return es
}

// Namespaces 返回已注册处理器的命名空间
func (d *Dispatcher) Namespaces() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for ns := range d.routes {
		out = append(out, ns)
	}
	return out
}

// HandlerCount 返回命名空间上的处理器数
func (d *Dispatcher) HandlerCount(namespace string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.routes[namespace])
}

// ============================================================================
//                              分发
// ============================================================================

// Dispatch 依次执行全部中间件和命名空间处理器
func (d *Dispatcher) Dispatch(ctx context.Context, pkt *types.Packet) Result {
	d.mu.RLock()
	mws := make([]entry[MiddlewareFunc], len(d.middleware))
	copy(mws, d.middleware)
	hs := make([]entry[HandlerFunc], len(d.routes[pkt.Header.Namespace]))
	copy(hs, d.routes[pkt.Header.Namespace])
	d.mu.RUnlock()

	label := pkt.Header.Namespace
	if len(hs) == 0 {
		label = metrics.NamespaceUnrouted
	}
	d.metrics.Dispatched(label)

	var res Result
	for _, m := range mws {
		res.Middleware++
		if err := d.call(metrics.StageMiddleware, func() error { return m.fn(ctx, pkt) }); err != nil {
			res.Failures++
			logger.Warn("中间件执行失败", "namespace", pkt.Header.Namespace, "sender", pkt.Sender, "err", err)
		}
	}

	if len(hs) == 0 {
		logger.Debug("命名空间没有处理器", "namespace", pkt.Header.Namespace)
		return res
	}
	for _, h := range hs {
		res.Handlers++
		if err := d.call(metrics.StageHandler, func() error { return h.fn(ctx, pkt) }); err != nil {
			res.Failures++
			logger.Warn("处理器执行失败", "namespace", pkt.Header.Namespace, "sender", pkt.Sender, "err", err)
		}
	}
	return res
}

// call 执行回调，把 panic 转换为 *PanicError
func (d *Dispatcher) call(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Stage: stage, Value: r}
		}
		if err != nil {
			d.metrics.Failed(stage)
		}
	}()
	return fn()
}
