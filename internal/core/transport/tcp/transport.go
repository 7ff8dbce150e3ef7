package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/bRuttaZz/stmp/internal/core/transport/sockopt"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

var logger = log.Logger("core/transport/tcp")

// AckPayload 接收方确认内容
var AckPayload = []byte("ack")

// 默认值
const (
	DefaultTimeout = 5 * time.Second
	DefaultBacklog = 5
)

// 确保实现了接口
var _ pkgif.Transport = (*Transport)(nil)

// Config TCP 传输配置
type Config struct {
	// Host 监听地址，空表示所有地址
	Host string

	// Port 监听端口，也是默认发送端口
	Port int

	// Backlog 已接受连接队列长度
	Backlog int

	// Timeout 拨号、读写、等待确认的超时
	Timeout time.Duration
}

// Transport TCP 传输
type Transport struct {
	cfg Config
}

// New 创建 TCP 传输
func New(cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}
	return &Transport{cfg: cfg}
}

// Protocol 返回 TCP
func (t *Transport) Protocol() types.Protocol {
	return types.ProtocolTCP
}

// Timeout 返回超时设置
func (t *Transport) Timeout() time.Duration {
	return t.cfg.Timeout
}

// Send 拨号并发送一帧
//
// 收到确认或对端正常关闭（EOF）都视为成功；连接总是会被关闭。
func (t *Transport) Send(ctx context.Context, data []byte, addr string, port int) bool {
	if addr == "" {
		logger.Warn("TCP 发送缺少目标地址")
		return false
	}
	if port == 0 {
		port = t.cfg.Port
	}
	target := net.JoinHostPort(addr, strconv.Itoa(port))

	dctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	d := net.Dialer{Timeout: t.cfg.Timeout}
	conn, err := d.DialContext(dctx, "tcp", target)
	if err != nil {
		logger.Warn("TCP 连接失败", "addr", target, "err", err)
		return false
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(t.cfg.Timeout))
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(data); err != nil {
		logger.Warn("TCP 写入失败", "addr", target, "size", len(data), "err", err)
		return false
	}

	buf := make([]byte, 16)
	if _, err := conn.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("等待 TCP 确认失败", "addr", target, "err", err)
		return false
	}
	return true
}

// Listen 绑定 host:port
func (t *Transport) Listen(ctx context.Context) (pkgif.Session, error) {
	lc := net.ListenConfig{Control: sockopt.Control(false)}
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}

	s := newSession(ln, t.cfg.Backlog, t.cfg.Timeout)
	logger.Info("TCP 监听已启动", "addr", ln.Addr().String(), "backlog", t.cfg.Backlog)
	return s, nil
}
