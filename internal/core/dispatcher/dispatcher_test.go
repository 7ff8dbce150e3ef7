package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bRuttaZz/stmp/internal/core/metrics"
	"github.com/bRuttaZz/stmp/pkg/types"
)

func packet(ns, data string) *types.Packet {
	raw, _ := json.Marshal(data)
	return &types.Packet{
		Data:     raw,
		Header:   types.Header{Namespace: ns},
		Sender:   "10.0.0.2",
		Protocol: types.ProtocolUDP,
	}
}

// TestDispatcher_Register 测试注册参数校验
func TestDispatcher_Register(t *testing.T) {
	d := New()

	_, err := d.Use(nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = d.Handle("/x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = d.Handle("", func(context.Context, *types.Packet) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidNamespace)

	// 零值句柄可安全调用
	assert.NotPanics(t, Handle{}.Remove)
}

// TestDispatcher_Routing 测试只调用匹配命名空间的处理器
func TestDispatcher_Routing(t *testing.T) {
	d := New()

	var got []string
	_, err := d.Handle("/test-route", func(_ context.Context, p *types.Packet) error {
		text, _ := p.Text()
		got = append(got, "route:"+text)
		return nil
	})
	require.NoError(t, err)
	_, err = d.Handle("/other", func(context.Context, *types.Packet) error {
		got = append(got, "other")
		return nil
	})
	require.NoError(t, err)

	res := d.Dispatch(context.Background(), packet("/test-route", "hello"))
	assert.Equal(t, []string{"route:hello"}, got)
	assert.Equal(t, 1, res.Handlers)

	res = d.Dispatch(context.Background(), packet("/nobody", "x"))
	assert.Zero(t, res.Handlers)
	assert.Len(t, got, 1)
}

// TestDispatcher_Order 测试中间件先于处理器且按注册顺序执行
func TestDispatcher_Order(t *testing.T) {
	d := New()
	var order []string
	add := func(name string) func(context.Context, *types.Packet) error {
		return func(context.Context, *types.Packet) error {
			order = append(order, name)
			return nil
		}
	}

	_, _ = d.Handle("/", add("h1"))
	_, _ = d.Use(add("m1"))
	_, _ = d.Handle("/", add("h2"))
	_, _ = d.Use(add("m2"))

	res := d.Dispatch(context.Background(), packet("/", ""))
	assert.Equal(t, []string{"m1", "m2", "h1", "h2"}, order)
	assert.Equal(t, Result{Middleware: 2, Handlers: 2}, res)
}

// TestDispatcher_FailuresDoNotStopChain 测试错误与 panic 不中断后续回调
func TestDispatcher_FailuresDoNotStopChain(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New("test", reg)
	require.NoError(t, err)
	d := New(WithMetrics(m))

	var ran []string
	_, _ = d.Use(func(context.Context, *types.Packet) error { return errors.New("bad middleware") })
	_, _ = d.Use(func(context.Context, *types.Packet) error { panic("middleware boom") })
	_, _ = d.Use(func(context.Context, *types.Packet) error {
		ran = append(ran, "m3")
		return nil
	})
	_, _ = d.Handle("/", func(context.Context, *types.Packet) error { panic(errors.New("handler boom")) })
	_, _ = d.Handle("/", func(context.Context, *types.Packet) error {
		ran = append(ran, "h2")
		return nil
	})

	res := d.Dispatch(context.Background(), packet("/", ""))
	assert.Equal(t, []string{"m3", "h2"}, ran)
	assert.Equal(t, 3, res.Failures)

	n, err := testutil.GatherAndCount(reg, "test_callback_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestDispatcher_UnroutedLabel 测试未注册的命名空间共用一个标签
func TestDispatcher_UnroutedLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New("test", reg)
	require.NoError(t, err)
	d := New(WithMetrics(m))
	_, _ = d.Handle("/known", func(context.Context, *types.Packet) error { return nil })

	for i := 0; i < 100; i++ {
		d.Dispatch(context.Background(), packet(fmt.Sprintf("/junk-%d", i), ""))
	}
	d.Dispatch(context.Background(), packet("/known", ""))

	n, err := testutil.GatherAndCount(reg, "test_packets_dispatched_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	expected := `
# HELP test_packets_dispatched_total Inbound packets delivered to the middleware chain, by namespace.
# TYPE test_packets_dispatched_total counter
test_packets_dispatched_total{namespace="/known"} 1
test_packets_dispatched_total{namespace="unrouted"} 100
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_packets_dispatched_total"))
}

// TestDispatcher_PanicError 测试 panic 转换
func TestDispatcher_PanicError(t *testing.T) {
	d := New()
	err := d.call(metrics.StageHandler, func() error { panic("x") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, metrics.StageHandler, pe.Stage)
	assert.Equal(t, "x", pe.Value)
	assert.Contains(t, pe.Error(), "handler panic")
}

// TestDispatcher_Remove 测试注销
func TestDispatcher_Remove(t *testing.T) {
	d := New()
	calls := 0
	fn := func(context.Context, *types.Packet) error {
		calls++
		return nil
	}

	h1, _ := d.Handle("/a", fn)
	h2, _ := d.Handle("/a", fn)
	mw, _ := d.Use(fn)
	assert.Equal(t, 2, d.HandlerCount("/a"))
	assert.ElementsMatch(t, []string{"/a"}, d.Namespaces())

	h1.Remove()
	h1.Remove()
	assert.Equal(t, 1, d.HandlerCount("/a"))

	d.Dispatch(context.Background(), packet("/a", ""))
	assert.Equal(t, 2, calls)

	h2.Remove()
	mw.Remove()
	assert.Empty(t, d.Namespaces())
	d.Dispatch(context.Background(), packet("/a", ""))
	assert.Equal(t, 2, calls)
}

// TestDispatcher_RegisterDuringDispatch 测试回调中注册不会死锁
func TestDispatcher_RegisterDuringDispatch(t *testing.T) {
	d := New()
	var inner int
	_, _ = d.Handle("/", func(context.Context, *types.Packet) error {
		_, err := d.Handle("/", func(context.Context, *types.Packet) error {
			inner++
			return nil
		})
		return err
	})

	d.Dispatch(context.Background(), packet("/", ""))
	assert.Zero(t, inner)
	assert.Equal(t, 2, d.HandlerCount("/"))

	d.Dispatch(context.Background(), packet("/", ""))
	assert.Equal(t, 1, inner)
}

// TestDispatcher_Concurrent 测试并发分发与注册
func TestDispatcher_Concurrent(t *testing.T) {
	d := New()
	var mu sync.Mutex
	count := 0
	_, _ = d.Handle("/", func(context.Context, *types.Packet) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d.Dispatch(context.Background(), packet("/", ""))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h, _ := d.Use(func(context.Context, *types.Packet) error { return nil })
				h.Remove()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, count)
}
