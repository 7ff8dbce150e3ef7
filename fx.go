package stmp

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/bRuttaZz/stmp/config"
	"github.com/bRuttaZz/stmp/internal/core/eventbus"
	"github.com/bRuttaZz/stmp/internal/core/metrics"
	"github.com/bRuttaZz/stmp/internal/core/peerstore"
	"github.com/bRuttaZz/stmp/internal/core/transport"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
)

var fxLogger = log.Logger("stmp/fx")

// ServerParams 服务器依赖
type ServerParams struct {
	fx.In

	Config    *config.Config       `optional:"true"`
	EventBus  pkgif.EventBus       `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
	Directory *peerstore.Directory `optional:"true"`
	UDP       pkgif.Transport      `name:"udp" optional:"true"`
	TCP       pkgif.Transport      `name:"tcp" optional:"true"`
	LC        fx.Lifecycle
}

// ProvideServer 创建服务器并绑定生命周期
//
// OnStart 同步完成绑定（失败则启动失败），随后在后台运行循环；
// OnStop 取消运行并等待所有循环退出。
func ProvideServer(p ServerParams) (*Server, error) {
	var opts []Option
	if p.EventBus != nil {
		opts = append(opts, WithEventBus(p.EventBus))
	}
	if p.Metrics != nil {
		opts = append(opts, WithMetrics(p.Metrics))
	}
	if p.Directory != nil {
		opts = append(opts, WithDirectory(p.Directory))
	}
	if p.UDP != nil {
		opts = append(opts, WithUDPTransport(p.UDP))
	}
	if p.TCP != nil {
		opts = append(opts, WithTCPTransport(p.TCP))
	}

	srv, err := New(p.Config, opts...)
	if err != nil {
		return nil, err
	}

	var (
		cancel context.CancelFunc
		wait   func() error
	)
	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, c := context.WithCancel(context.Background())
			w, err := srv.start(runCtx)
			if err != nil {
				c()
				return err
			}
			cancel, wait = c, w
			fxLogger.Debug("服务器循环已启动")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel == nil {
				return nil
			}
			cancel()
			done := make(chan error, 1)
			go func() { done <- wait() }()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				fxLogger.Warn("等待服务器停止超时")
				return ctx.Err()
			}
		},
	})
	return srv, nil
}

// Module 返回完整的 fx 模块：事件总线、计数器、节点目录、传输和服务器
func Module() fx.Option {
	return fx.Module("stmp",
		eventbus.Module(),
		metrics.Module,
		peerstore.Module(),
		transport.Module(),
		fx.Provide(ProvideServer),
	)
}

// NewApp 构建 fx 应用
//
// fx 自身的事件日志被静默；extra 可追加 fx.Invoke 等选项。
func NewApp(cfg *config.Config, extra ...fx.Option) *fx.App {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	opts := []fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.Supply(cfg),
		Module(),
	}
	return fx.New(append(opts, extra...)...)
}
