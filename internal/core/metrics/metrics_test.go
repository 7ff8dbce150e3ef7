package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bRuttaZz/stmp/config"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// TestMetrics_Counters 测试计数器累加
func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("stmp", reg)
	require.NoError(t, err)

	m.Received(types.ProtocolUDP, 100)
	m.Received(types.ProtocolUDP, 50)
	m.Sent(types.ProtocolTCP, false)
	m.Dropped(types.ProtocolUDP, DropSelf)
	m.Dropped(types.ProtocolUDP, DropSelf)
	m.Dispatched("/test-route")
	m.Failed(StageHandler)
	m.SetPeers(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.received.WithLabelValues("udp")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.receivedBytes.WithLabelValues("udp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sent.WithLabelValues("tcp", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dropped.WithLabelValues("udp", DropSelf)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatched.WithLabelValues("/test-route")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(StageHandler)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.peers))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

// TestMetrics_DuplicateRegister 测试重复注册报错
func TestMetrics_DuplicateRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New("stmp", reg)
	require.NoError(t, err)

	_, err = New("stmp", reg)
	assert.Error(t, err)
}

// TestMetrics_NilSafe 测试 nil 接收者为空操作
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Received(types.ProtocolUDP, 1)
		m.Sent(types.ProtocolUDP, true)
		m.Dropped(types.ProtocolTCP, DropHeader)
		m.Dispatched("/")
		m.Failed(StageMiddleware)
		m.SetPeers(1)
	})
}

// TestNewFromParams 测试按配置启用
func TestNewFromParams(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false
	m, err := NewFromParams(Params{UnifiedCfg: cfg})
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = NewFromParams(Params{})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
