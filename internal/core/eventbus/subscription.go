package eventbus

import (
	"reflect"
	"sync"
)

// Subscription 订阅
type Subscription struct {
	bus       *Bus
	typ       reflect.Type
	out       chan any
	closeOnce sync.Once
}

// Out 返回事件通道
func (s *Subscription) Out() <-chan any {
	return s.out
}

// Close 取消订阅
//
// 先从总线移除，保证之后不会再有发送；随后关闭通道，range 循环据此退出。
// 可重复调用。
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.bus.removeSub(s)
		close(s.out)
	})
	return nil
}
