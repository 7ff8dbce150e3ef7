package config

import (
	"errors"
	"time"
)

// 节点目录默认值
const (
	// DefaultCleanupInterval 过期节点清理间隔
	DefaultCleanupInterval = 10 * time.Second

	// DefaultDiscoveryInterval 发现广播间隔
	DefaultDiscoveryInterval = 180 * time.Second

	// DefaultPeerTTL 节点存活时间（发现间隔 + 60s）
	DefaultPeerTTL = DefaultDiscoveryInterval + 60*time.Second

	// DefaultDiscoveryGrace 首次发现广播前的等待时间
	DefaultDiscoveryGrace = 5 * time.Second

	// DefaultJoinRate 每个请求方的握手回复速率（次/秒）
	DefaultJoinRate = 1.0
)

// PeerConfig 节点目录与发现配置
type PeerConfig struct {
	// TTL 节点未再出现多久后被移除
	TTL Duration `json:"ttl"`

	// CleanupInterval 清理循环间隔
	CleanupInterval Duration `json:"cleanup_interval"`

	// DiscoveryInterval 发现广播间隔
	DiscoveryInterval Duration `json:"discovery_interval"`

	// DiscoveryGrace 启动后首次发现广播的延迟
	DiscoveryGrace Duration `json:"discovery_grace"`

	// JoinRate 对同一请求方回复握手的速率上限（次/秒），0 表示不限
	JoinRate float64 `json:"join_rate"`
}

// DefaultPeerConfig 返回默认节点配置
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		TTL:               Duration(DefaultPeerTTL),
		CleanupInterval:   Duration(DefaultCleanupInterval),
		DiscoveryInterval: Duration(DefaultDiscoveryInterval),
		DiscoveryGrace:    Duration(DefaultDiscoveryGrace),
		JoinRate:          DefaultJoinRate,
	}
}

// Validate 验证节点配置
//
// TTL 必须大于发现间隔，保证节点至少经历一轮发现才会被移除。
func (c PeerConfig) Validate() error {
	if c.TTL <= 0 {
		return errors.New("peer: ttl must be positive")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("peer: cleanup interval must be positive")
	}
	if c.DiscoveryInterval <= 0 {
		return errors.New("peer: discovery interval must be positive")
	}
	if c.DiscoveryGrace < 0 {
		return errors.New("peer: discovery grace must not be negative")
	}
	if c.TTL <= c.DiscoveryInterval {
		return errors.New("peer: ttl must be greater than discovery interval")
	}
	if c.JoinRate < 0 {
		return errors.New("peer: join rate must not be negative")
	}
	return nil
}
