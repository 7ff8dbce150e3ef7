package transport

import (
	"go.uber.org/fx"

	"github.com/bRuttaZz/stmp/config"
	"github.com/bRuttaZz/stmp/internal/core/transport/tcp"
	"github.com/bRuttaZz/stmp/internal/core/transport/udp"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// UDPConfigFromUnified 从统一配置创建 UDP 传输配置
func UDPConfigFromUnified(cfg *config.Config) udp.Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	n := cfg.Network
	return udp.Config{
		Group:     n.MulticastGroup,
		Port:      n.UDPPort,
		Interface: n.Interface,
		TTL:       n.MulticastTTL,
		Loopback:  n.MulticastLoopback,
	}
}

// TCPConfigFromUnified 从统一配置创建 TCP 传输配置
func TCPConfigFromUnified(cfg *config.Config) tcp.Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	n := cfg.Network
	return tcp.Config{
		Host:    n.ListenHost,
		Port:    n.TCPPort,
		Backlog: n.Backlog,
		Timeout: n.TCPTimeout.Duration(),
	}
}

// Params 传输模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	LC         fx.Lifecycle
}

// Result 传输模块输出
type Result struct {
	fx.Out

	UDP pkgif.Transport `name:"udp"`
	TCP pkgif.Transport `name:"tcp"`
}

// ProvideTransports 创建 UDP 与 TCP 传输
func ProvideTransports(p Params) (Result, error) {
	u, err := udp.New(UDPConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Result{}, err
	}
	t := tcp.New(TCPConfigFromUnified(p.UnifiedCfg))

	p.LC.Append(fx.StopHook(func() error {
		logger.Debug("关闭 UDP 发送套接字")
		return u.Close()
	}))
	return Result{UDP: u, TCP: t}, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransports),
	)
}
