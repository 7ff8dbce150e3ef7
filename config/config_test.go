package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "239.192.1.107", cfg.Network.MulticastGroup)
	assert.Equal(t, 57000, cfg.Network.UDPPort)
	assert.Equal(t, 57001, cfg.Network.TCPPort)
	assert.Equal(t, 5*time.Second, cfg.Network.TCPTimeout.Duration())
	assert.Equal(t, 4096000, cfg.Network.MaxPacketSize)
	assert.Equal(t, 240*time.Second, cfg.Peer.TTL.Duration())
	assert.Equal(t, 10*time.Second, cfg.Peer.CleanupInterval.Duration())
	assert.Equal(t, 180*time.Second, cfg.Peer.DiscoveryInterval.Duration())
	assert.Equal(t, 1024, cfg.Identity.KeyBits)
	assert.NotEmpty(t, cfg.Identity.Username)
	assert.NotEmpty(t, cfg.Identity.Hostname)
}

// TestPeerConfig_Validate 测试 TTL 必须大于发现间隔
func TestPeerConfig_Validate(t *testing.T) {
	t.Run("ttl_not_above_discovery", func(t *testing.T) {
		cfg := DefaultPeerConfig()
		cfg.TTL = cfg.DiscoveryInterval
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative_grace", func(t *testing.T) {
		cfg := DefaultPeerConfig()
		cfg.DiscoveryGrace = Duration(-time.Second)
		assert.Error(t, cfg.Validate())
	})

	t.Run("short_ttl_scenario", func(t *testing.T) {
		cfg := DefaultPeerConfig()
		cfg.TTL = Duration(70 * time.Second)
		cfg.DiscoveryInterval = Duration(60 * time.Second)
		assert.NoError(t, cfg.Validate())
	})
}

// TestNetworkConfig_Validate 测试网络配置验证
func TestNetworkConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NetworkConfig)
	}{
		{"unicast_group", func(c *NetworkConfig) { c.MulticastGroup = "192.168.1.1" }},
		{"bad_group", func(c *NetworkConfig) { c.MulticastGroup = "nope" }},
		{"udp_port_range", func(c *NetworkConfig) { c.UDPPort = 70000 }},
		{"tcp_port_range", func(c *NetworkConfig) { c.TCPPort = -1 }},
		{"ttl_zero", func(c *NetworkConfig) { c.MulticastTTL = 0 }},
		{"backlog_zero", func(c *NetworkConfig) { c.Backlog = 0 }},
		{"timeout_zero", func(c *NetworkConfig) { c.TCPTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultNetworkConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestIdentityConfig_Validate 测试身份配置
func TestIdentityConfig_Validate(t *testing.T) {
	cfg := DefaultIdentityConfig().WithUsername("alice").WithHostname("box")
	require.NoError(t, cfg.Validate())

	cfg.KeyBits = 512
	assert.Error(t, cfg.Validate())

	cfg = DefaultIdentityConfig().WithUsername("")
	assert.Error(t, cfg.Validate())
}

// TestFromJSON 测试 JSON 部分覆盖
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"network": {"udp_port": 58000, "tcp_timeout": "3s"},
		"peer": {"ttl": 70, "cleanup_interval": "10s", "discovery_interval": "60s"},
		"identity": {"username": "bob"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 58000, cfg.Network.UDPPort)
	assert.Equal(t, DefaultTCPPort, cfg.Network.TCPPort)
	assert.Equal(t, 3*time.Second, cfg.Network.TCPTimeout.Duration())
	assert.Equal(t, 70*time.Second, cfg.Peer.TTL.Duration())
	assert.Equal(t, "bob", cfg.Identity.Username)
	assert.NoError(t, cfg.Validate())

	_, err = FromJSON([]byte(`{"peer": {"ttl": "forever"}}`))
	assert.Error(t, err)
}

// TestLoadFile 测试从文件加载
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"network":{"tcp_port":59001}}`), 0o600))
	cfg, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, 59001, cfg.Network.TCPPort)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"peer":{"ttl":"1s"}}`), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

// TestConfigOptions 测试选项函数
func TestConfigOptions(t *testing.T) {
	cfg := NewConfig().Apply(
		WithMulticastGroup("224.0.0.109"),
		WithPorts(1000, 1001),
		WithTCPTimeout(time.Second),
		WithPeerTTL(70*time.Second, 10*time.Second),
		WithDiscovery(60*time.Second, 0),
		WithUsername("carol"),
		WithMetrics(false),
	)

	assert.Equal(t, "224.0.0.109", cfg.Network.MulticastGroup)
	assert.Equal(t, 1000, cfg.Network.UDPPort)
	assert.Equal(t, 1001, cfg.Network.TCPPort)
	assert.Equal(t, time.Second, cfg.Network.TCPTimeout.Duration())
	assert.Equal(t, 70*time.Second, cfg.Peer.TTL.Duration())
	assert.Equal(t, "carol", cfg.Identity.Username)
	assert.False(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

// TestDuration_JSON 测试 Duration 编解码
func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`2.5`), &d))
	assert.Equal(t, 2500*time.Millisecond, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(10 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"10s"`, string(out))
}

// TestConfig_Clone 测试克隆
func TestConfig_Clone(t *testing.T) {
	cfg := NewConfig()
	cloned := cfg.Clone()
	cloned.Network.UDPPort = 1
	assert.Equal(t, DefaultUDPPort, cfg.Network.UDPPort)
	assert.Nil(t, (*Config)(nil).Clone())
}
