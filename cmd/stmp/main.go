// Package main 提供 stmp 命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"go.uber.org/fx"

	"github.com/bRuttaZz/stmp"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
)

var logger = log.Logger("stmp/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径（JSON）")
	user        = flag.String("user", "", "用户名（默认当前系统用户）")
	group       = flag.String("group", "", "多播组地址")
	udpPort     = flag.Int("udp-port", 0, "UDP 端口")
	tcpPort     = flag.Int("tcp-port", 0, "TCP 端口")
	logLevel    = flag.String("log-level", "info", "日志级别 (debug/info/warn/error)")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus 指标监听地址，例如 :9100")
	sendFlag    = flag.String("send", "", "启动后广播一条消息，格式 namespace:message")
)

const stopTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	log.SetOutputWithLevel(os.Stderr, level)

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	var send *outgoing
	if *sendFlag != "" {
		send, err = parseSend(*sendFlag)
		if err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	var srv *stmp.Server
	app := stmp.NewApp(cfg,
		fx.Provide(func() prometheus.Registerer { return reg }),
		fx.Invoke(func(s *stmp.Server) error {
			srv = s
			return registerCLIHandlers(s)
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	printBanner(srv)

	var metricsSrv *http.Server
	if *metricsAddr != "" {
		metricsSrv = serveMetrics(*metricsAddr, reg)
	}

	if send != nil {
		ok := srv.Broadcast(ctx, send.namespace, send.message, 0)
		logger.Info("已广播", "namespace", send.namespace, "ok", ok)
	}

	pterm.Info.Println("正在监听，按 Ctrl+C 退出")
	<-ctx.Done()
	pterm.Println()
	pterm.Info.Println("正在关闭...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	var stopErr error
	if metricsSrv != nil {
		stopErr = metricsSrv.Shutdown(stopCtx)
	}
	return errors.Join(stopErr, app.Stop(stopCtx))
}

// outgoing -send 参数
type outgoing struct {
	namespace string
	message   string
}

func parseSend(arg string) (*outgoing, error) {
	ns, msg, ok := strings.Cut(arg, ":")
	if !ok || ns == "" {
		return nil, fmt.Errorf("-send 格式应为 namespace:message，得到 %q", arg)
	}
	if !strings.HasPrefix(ns, "/") {
		ns = "/" + ns
	}
	return &outgoing{namespace: ns, message: msg}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务失败", "addr", addr, "err", err)
		}
	}()
	logger.Info("指标服务已启动", "addr", addr)
	return hs
}
