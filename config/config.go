// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义：
//   - Network: 多播组、端口、超时、帧大小上限
//   - Peer: 节点 TTL、清理与发现间隔
//   - Identity: 用户名、主机名、密钥位数
//   - Metrics: Prometheus 计数器
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Network.UDPPort = 58000
//
//	// 从 JSON 加载（未出现的字段保留默认值）
//	cfg, err := config.LoadFile("stmp.json")
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config 是 stmp 的完整配置结构
type Config struct {
	// Network 网络配置
	Network NetworkConfig `json:"network"`

	// Peer 节点目录与发现配置
	Peer PeerConfig `json:"peer"`

	// Identity 身份配置
	Identity IdentityConfig `json:"identity"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Network:  DefaultNetworkConfig(),
		Peer:     DefaultPeerConfig(),
		Identity: DefaultIdentityConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// Validate 验证整个配置
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if err := c.Peer.Validate(); err != nil {
		return err
	}
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// Clone 返回配置副本
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cloned := *c
	return &cloned
}

// Apply 依次应用配置选项
func (c *Config) Apply(opts ...ConfigOption) *Config {
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromJSON 从 JSON 数据创建配置
//
// JSON 中未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "network": {"udp_port": 58000, "tcp_timeout": "3s"},
//	  "peer": {"ttl": "70s", "cleanup_interval": "10s", "discovery_interval": "60s"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置并验证
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ============================================================================
//                              配置选项
// ============================================================================

// ConfigOption 配置选项函数
type ConfigOption func(*Config)

// WithMulticastGroup 设置多播组
func WithMulticastGroup(group string) ConfigOption {
	return func(c *Config) {
		c.Network.MulticastGroup = group
	}
}

// WithPorts 设置 UDP / TCP 端口
func WithPorts(udpPort, tcpPort int) ConfigOption {
	return func(c *Config) {
		c.Network.UDPPort = udpPort
		c.Network.TCPPort = tcpPort
	}
}

// WithTCPTimeout 设置 TCP 超时
func WithTCPTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Network.TCPTimeout = Duration(d)
	}
}

// WithPeerTTL 设置节点 TTL 与清理间隔
func WithPeerTTL(ttl, cleanup time.Duration) ConfigOption {
	return func(c *Config) {
		c.Peer.TTL = Duration(ttl)
		c.Peer.CleanupInterval = Duration(cleanup)
	}
}

// WithDiscovery 设置发现间隔与首次延迟
func WithDiscovery(interval, grace time.Duration) ConfigOption {
	return func(c *Config) {
		c.Peer.DiscoveryInterval = Duration(interval)
		c.Peer.DiscoveryGrace = Duration(grace)
	}
}

// WithUsername 设置用户名
func WithUsername(name string) ConfigOption {
	return func(c *Config) {
		c.Identity.Username = name
	}
}

// WithMetrics 设置是否启用指标
func WithMetrics(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Metrics.Enabled = enabled
	}
}
