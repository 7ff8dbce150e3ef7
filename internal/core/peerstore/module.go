package peerstore

import (
	"context"

	"go.uber.org/fx"

	"github.com/bRuttaZz/stmp/config"
	"github.com/bRuttaZz/stmp/internal/core/metrics"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// Params 目录依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	EventBus   pkgif.EventBus   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
	LC         fx.Lifecycle
}

// ProvideDirectory 创建节点目录
//
// 配置了事件总线时，目录的更新同时以 *types.EvtPeerListUpdated 发射；
// 停止时关闭发射器。
func ProvideDirectory(p Params) (*Directory, error) {
	opts := []Option{WithMetrics(p.Metrics)}
	if p.EventBus != nil {
		em, err := p.EventBus.Emitter(new(types.EvtPeerListUpdated))
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithEmitter(em))
		p.LC.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return em.Close()
			},
		})
	}
	return New(ConfigFromUnified(p.UnifiedCfg), opts...)
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("peerstore",
		fx.Provide(ProvideDirectory),
	)
}
