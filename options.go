package stmp

import (
	"errors"

	"github.com/benbjohnson/clock"

	"github.com/bRuttaZz/stmp/internal/core/metrics"
	"github.com/bRuttaZz/stmp/internal/core/peerstore"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/crypto"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// Option 服务器选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	clock   clock.Clock
	bus     pkgif.EventBus
	metrics *metrics.Metrics
	keys    *crypto.KeyPair
	dir     *peerstore.Directory
	udp     pkgif.Transport
	tcp     pkgif.Transport
}

// WithClock 设置时钟（目录、清理与发现循环、握手限速）
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("stmp: nil clock")
		}
		o.clock = c
		return nil
	}
}

// WithEventBus 节点列表变化同时发射到事件总线
func WithEventBus(bus pkgif.EventBus) Option {
	return func(o *options) error {
		o.bus = bus
		return nil
	}
}

// WithMetrics 设置计数器
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithDirectory 使用外部创建的节点目录
//
// 目录自带时钟、计数器和事件发射器，WithClock 和 WithEventBus 不再作用于它。
// 清理循环仍由 Run 驱动。
func WithDirectory(dir *peerstore.Directory) Option {
	return func(o *options) error {
		if dir == nil {
			return errors.New("stmp: nil directory")
		}
		o.dir = dir
		return nil
	}
}

// WithKeyPair 使用已有密钥对，不再生成
func WithKeyPair(kp *crypto.KeyPair) Option {
	return func(o *options) error {
		if kp == nil {
			return crypto.ErrNilPrivateKey
		}
		o.keys = kp
		return nil
	}
}

// WithUDPTransport 替换 UDP 传输
func WithUDPTransport(t pkgif.Transport) Option {
	return func(o *options) error {
		if t == nil || t.Protocol() != types.ProtocolUDP {
			return errors.New("stmp: udp transport required")
		}
		o.udp = t
		return nil
	}
}

// WithTCPTransport 替换 TCP 传输
func WithTCPTransport(t pkgif.Transport) Option {
	return func(o *options) error {
		if t == nil || t.Protocol() != types.ProtocolTCP {
			return errors.New("stmp: tcp transport required")
		}
		o.tcp = t
		return nil
	}
}
