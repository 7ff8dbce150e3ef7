// Package metrics 提供 Prometheus 计数器
//
// 统计收发数据包、字节数、按原因分类的丢弃数、按命名空间的分发数，
// 以及中间件/处理器失败次数。*Metrics 为 nil 时所有方法都是空操作，
// 调用方无需判断是否启用。
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bRuttaZz/stmp/pkg/types"
)

// 丢弃原因（reason 标签取值）
const (
	DropShortPrefix = "short_prefix"
	DropTooLarge    = "too_large"
	DropTruncated   = "truncated"
	DropHeader      = "malformed_header"
	DropBody        = "malformed_body"
	DropSelf        = "self_session"
	DropRead        = "read_error"
)

// 失败阶段（stage 标签取值）
const (
	StageMiddleware = "middleware"
	StageHandler    = "handler"
)

// NamespaceUnrouted 没有处理器的命名空间统一记为该标签值
const NamespaceUnrouted = "unrouted"

// Metrics 协议引擎计数器集合
type Metrics struct {
	received      *prometheus.CounterVec
	receivedBytes *prometheus.CounterVec
	sent          *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	dispatched    *prometheus.CounterVec
	failures      *prometheus.CounterVec
	peers         prometheus.Gauge
}

// New 创建计数器并注册到 reg
//
// reg 为 nil 时只创建不注册（测试或自定义导出时使用）。
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Frames read from a transport session.",
		}, []string{"protocol"}),
		receivedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes read from a transport session.",
		}, []string{"protocol"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Frames handed to a transport, by result.",
		}, []string{"protocol", "result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Inbound frames dropped before dispatch, by reason.",
		}, []string{"protocol", "reason"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dispatched_total",
			Help:      "Inbound packets delivered to the middleware chain, by namespace.",
		}, []string{"namespace"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_failures_total",
			Help:      "Middleware or handler calls that returned an error or panicked.",
		}, []string{"stage"}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers",
			Help:      "Peers currently in the directory.",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register %s collectors: %w", namespace, err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.received, m.receivedBytes, m.sent, m.dropped, m.dispatched, m.failures, m.peers,
	}
}

// Received 记录读取到一帧
func (m *Metrics) Received(p types.Protocol, size int) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(p.String()).Inc()
	m.receivedBytes.WithLabelValues(p.String()).Add(float64(size))
}

// Sent 记录一次发送结果
func (m *Metrics) Sent(p types.Protocol, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.sent.WithLabelValues(p.String(), result).Inc()
}

// Dropped 记录一次丢弃
func (m *Metrics) Dropped(p types.Protocol, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(p.String(), reason).Inc()
}

// Dispatched 记录一次分发
//
// namespace 来自网络，调用方只应传入已注册的命名空间或 NamespaceUnrouted。
func (m *Metrics) Dispatched(namespace string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(namespace).Inc()
}

// Failed 记录一次回调失败
func (m *Metrics) Failed(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

// SetPeers 更新节点数
func (m *Metrics) SetPeers(n int) {
	if m == nil {
		return
	}
	m.peers.Set(float64(n))
}
