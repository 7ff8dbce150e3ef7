package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/net/ipv4"

	"github.com/bRuttaZz/stmp/internal/core/transport/sockopt"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

var logger = log.Logger("core/transport/udp")

// MaxDatagramSize 单个 UDP 数据报的上限
const MaxDatagramSize = 65535

// 确保实现了接口
var (
	_ pkgif.Transport = (*Transport)(nil)
	_ pkgif.Session   = (*Session)(nil)
)

// Config UDP 传输配置
type Config struct {
	// Group 多播组地址
	Group string

	// Port 监听端口，也是默认发送端口
	Port int

	// Interface 加入多播组的网卡名，空表示系统默认
	Interface string

	// TTL 多播跳数
	TTL int

	// Loopback 多播环回
	Loopback bool
}

// Transport UDP 传输
type Transport struct {
	cfg   Config
	group net.IP
	ifi   *net.Interface

	mu     sync.Mutex
	sender *ipv4.PacketConn
	raw    net.PacketConn
	closed atomic.Bool
}

// New 创建 UDP 传输
func New(cfg Config) (*Transport, error) {
	ip := net.ParseIP(cfg.Group).To4()
	if ip == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroup, cfg.Group)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 1
	}

	t := &Transport{cfg: cfg, group: ip}
	if cfg.Interface != "" {
		ifi, err := net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("udp: interface %q: %w", cfg.Interface, err)
		}
		t.ifi = ifi
	}
	return t, nil
}

// Protocol 返回 UDP
func (t *Transport) Protocol() types.Protocol {
	return types.ProtocolUDP
}

// Send 发送一个数据报
//
// addr 为空时发往多播组，port 为 0 时使用配置端口。只有本地错误返回 false。
func (t *Transport) Send(ctx context.Context, data []byte, addr string, port int) bool {
	if ctx.Err() != nil || t.closed.Load() {
		return false
	}
	if addr == "" {
		addr = t.group.String()
	}
	if port == 0 {
		port = t.cfg.Port
	}

	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		logger.Warn("解析 UDP 目标失败", "addr", addr, "port", port, "err", err)
		return false
	}
	pc, err := t.senderConn()
	if err != nil {
		logger.Warn("创建 UDP 发送套接字失败", "err", err)
		return false
	}
	if _, err := pc.WriteTo(data, nil, dst); err != nil {
		logger.Warn("UDP 发送失败", "dst", dst.String(), "size", len(data), "err", err)
		return false
	}
	return true
}

// senderConn 懒创建共享发送套接字
func (t *Transport) senderConn() (*ipv4.PacketConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sender != nil {
		return t.sender, nil
	}

	raw, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(raw)
	if err := configureMulticast(pc, t.cfg); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if t.ifi != nil {
		if err := pc.SetMulticastInterface(t.ifi); err != nil {
			logger.Warn("设置多播出口网卡失败", "iface", t.ifi.Name, "err", err)
		}
	}
	t.raw, t.sender = raw, pc
	return pc, nil
}

// Close 关闭发送套接字
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.raw == nil {
		return nil
	}
	err := t.raw.Close()
	t.raw, t.sender = nil, nil
	return err
}

// Listen 绑定 :port 并加入多播组
//
// 绑定失败返回 ErrBind；加入多播组失败只记录警告，会话仍可接收单播。
func (t *Transport) Listen(ctx context.Context) (pkgif.Session, error) {
	lc := net.ListenConfig{Control: sockopt.Control(true)}
	addr := net.JoinHostPort("", strconv.Itoa(t.cfg.Port))
	raw, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}

	pc := ipv4.NewPacketConn(raw)
	s := &Session{raw: raw, pc: pc, ifi: t.ifi, group: &net.UDPAddr{IP: t.group}}

	if err := pc.JoinGroup(t.ifi, s.group); err != nil {
		logger.Warn("加入多播组失败", "group", t.group.String(), "err", err)
	} else {
		s.joined = true
	}
	if err := configureMulticast(pc, t.cfg); err != nil {
		logger.Warn("设置多播参数失败", "err", err)
	}

	logger.Info("UDP 监听已启动", "addr", raw.LocalAddr().String(), "group", t.group.String(), "joined", s.joined)
	return s, nil
}

func configureMulticast(pc *ipv4.PacketConn, cfg Config) error {
	return multierr.Combine(
		pc.SetMulticastLoopback(cfg.Loopback),
		pc.SetMulticastTTL(cfg.TTL),
	)
}

// ============================================================================
//                              接收会话
// ============================================================================

// Session UDP 接收会话
type Session struct {
	raw    net.PacketConn
	pc     *ipv4.PacketConn
	ifi    *net.Interface
	group  *net.UDPAddr
	joined bool

	readMu sync.Mutex
	buf    []byte

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// LocalAddr 返回绑定地址
func (s *Session) LocalAddr() net.Addr {
	return s.raw.LocalAddr()
}

// Read 读取一个数据报
//
// 超过 max 的部分被截断，由解码层按前缀判定。接收缓冲区在会话内复用，
// 大小不超过 MaxDatagramSize；返回的切片是独立副本。
func (s *Session) Read(ctx context.Context, max int) ([]byte, string, error) {
	if s.closed.Load() {
		return nil, "", ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	_ = s.raw.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.raw.SetReadDeadline(time.Now())
	})
	defer stop()

	s.readMu.Lock()
	defer s.readMu.Unlock()

	size := min(max, MaxDatagramSize)
	if len(s.buf) < size {
		s.buf = make([]byte, size)
	}
	buf := s.buf[:size]
	n, src, err := s.raw.ReadFrom(buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if s.closed.Load() || errors.Is(err, net.ErrClosed) {
			return nil, "", ErrSessionClosed
		}
		return nil, "", fmt.Errorf("udp: read: %w", err)
	}

	sender := ""
	if ua, ok := src.(*net.UDPAddr); ok {
		sender = ua.IP.String()
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, sender, nil
}

// Close 退出多播组并关闭套接字
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		var errs error
		if s.joined {
			errs = multierr.Append(errs, s.pc.LeaveGroup(s.ifi, s.group))
		}
		errs = multierr.Append(errs, s.raw.Close())
		s.closeErr = errs
	})
	return s.closeErr
}
