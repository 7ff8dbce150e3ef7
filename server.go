package stmp

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/bRuttaZz/stmp/config"
	"github.com/bRuttaZz/stmp/internal/core/dispatcher"
	"github.com/bRuttaZz/stmp/internal/core/metrics"
	"github.com/bRuttaZz/stmp/internal/core/peerstore"
	"github.com/bRuttaZz/stmp/internal/core/transport"
	"github.com/bRuttaZz/stmp/internal/core/transport/tcp"
	"github.com/bRuttaZz/stmp/internal/core/transport/udp"
	"github.com/bRuttaZz/stmp/internal/core/wire"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/crypto"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

var logger = log.Logger("stmp")

// 公开类型
type (
	// Packet 入站数据包
	Packet = types.Packet

	// Peer 节点记录
	Peer = types.Peer

	// Header 帧头部
	Header = types.Header

	// HandlerFunc 命名空间处理器
	HandlerFunc = dispatcher.HandlerFunc

	// MiddlewareFunc 中间件
	MiddlewareFunc = dispatcher.MiddlewareFunc

	// Handle 注册句柄
	Handle = dispatcher.Handle

	// PeerListUpdateFunc 节点列表变化回调
	PeerListUpdateFunc = peerstore.UpdateFunc
)

// 握手命名空间与负载
const (
	JoinNamespace = "/peer-join"
	JoinRequest   = "gimmeurnumberdude"
	JoinReply     = "iamheredude"
)

// ════════════════════════════════════════════════════════════════════════════
//                              服务器状态
// ════════════════════════════════════════════════════════════════════════════

// State 服务器状态
type State int32

const (
	// StateIdle 已创建，未运行
	StateIdle State = iota

	// StateRunning 监听循环运行中
	StateRunning

	// StateStopped Run 已返回（可再次 Run）
	StateStopped
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Server
// ════════════════════════════════════════════════════════════════════════════

// Server 协议实例
type Server struct {
	cfg     *config.Config
	clock   clock.Clock
	metrics *metrics.Metrics

	keys    *crypto.KeyPair
	session string
	codec   *wire.Codec

	dir  *peerstore.Directory
	disp *dispatcher.Dispatcher
	join *joinLimiter

	udp   pkgif.Transport
	tcp   pkgif.Transport
	owned []io.Closer

	mu       sync.RWMutex
	username string

	state   atomic.Int32
	replies sync.WaitGroup
}

// New 创建服务器
//
// 生成密钥对（除非通过 WithKeyPair 提供）和会话标识，构造编解码器、
// 节点目录、两种传输，并注册节点跟踪中间件和 /peer-join 处理器。
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stmp: invalid config: %w", err)
	}

	o := &options{clock: clock.New()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	s := &Server{
		cfg:      cfg,
		clock:    o.clock,
		metrics:  o.metrics,
		keys:     o.keys,
		session:  uuid.NewString(),
		username: cfg.Identity.Username,
		udp:      o.udp,
		tcp:      o.tcp,
	}

	if s.keys == nil {
		kp, err := crypto.GenerateKeyPair(cfg.Identity.KeyBits, nil)
		if err != nil {
			return nil, fmt.Errorf("stmp: generate key pair: %w", err)
		}
		s.keys = kp
	}

	s.codec = wire.NewCodec(types.Header{
		User:     cfg.Identity.Username,
		Hostname: cfg.Identity.Hostname,
		UDPPort:  cfg.Network.UDPPort,
		TCPPort:  cfg.Network.TCPPort,
	}, s.keys, wire.WithMaxPacketSize(cfg.Network.MaxPacketSize))

	s.dir = o.dir
	if s.dir == nil {
		dir, err := newDirectory(cfg, s.clock, s.metrics, o.bus)
		if err != nil {
			return nil, err
		}
		s.dir = dir
	}

	if s.udp == nil {
		u, err := udp.New(transport.UDPConfigFromUnified(cfg))
		if err != nil {
			return nil, err
		}
		s.udp = u
		s.owned = append(s.owned, u)
	}
	if s.tcp == nil {
		s.tcp = tcp.New(transport.TCPConfigFromUnified(cfg))
	}

	s.join = newJoinLimiter(cfg.Peer.JoinRate, s.clock)
	s.disp = dispatcher.New(dispatcher.WithMetrics(s.metrics))
	if _, err := s.disp.Use(s.trackPeer); err != nil {
		return nil, err
	}
	if _, err := s.disp.Handle(JoinNamespace, s.handleJoin); err != nil {
		return nil, err
	}

	logger.Info("服务器已创建",
		"user", s.username,
		"host", cfg.Identity.Hostname,
		"session", log.TruncateID(s.session, 8),
		"udp", cfg.Network.UDPAddr(),
		"tcp", cfg.Network.TCPPort)
	return s, nil
}

// newDirectory 创建服务器私有的节点目录
func newDirectory(cfg *config.Config, c clock.Clock, m *metrics.Metrics, bus pkgif.EventBus) (*peerstore.Directory, error) {
	opts := []peerstore.Option{peerstore.WithClock(c), peerstore.WithMetrics(m)}
	if bus != nil {
		em, err := bus.Emitter(new(types.EvtPeerListUpdated))
		if err != nil {
			return nil, fmt.Errorf("stmp: peer list emitter: %w", err)
		}
		opts = append(opts, peerstore.WithEmitter(em))
	}
	return peerstore.New(peerstore.ConfigFromUnified(cfg), opts...)
}

// Close 释放服务器自己创建的传输资源（UDP 发送套接字）
//
// 应在 Run 返回后调用；外部注入的传输由调用方负责关闭。
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.owned {
		errs = append(errs, c.Close())
	}
	s.owned = nil
	return multierr.Combine(errs...)
}

// ────────────────────────────────────────────────────────────────────────
// 访问器
// ────────────────────────────────────────────────────────────────────────

// Config 返回配置副本
func (s *Server) Config() *config.Config {
	c := s.cfg.Clone()
	c.Identity.Username = s.Username()
	return c
}

// State 返回当前状态
func (s *Server) State() State {
	return State(s.state.Load())
}

// Session 返回会话标识
//
// 会话标识在实例生命周期内不变，用于过滤自己发出的 UDP 数据包。
func (s *Server) Session() string {
	return s.session
}

// PublicKey 返回 hex 编码的公钥
func (s *Server) PublicKey() string {
	return s.keys.PublicKeyHex()
}

// Username 返回当前用户名
func (s *Server) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// SetUsername 修改后续出站数据包中的用户名
func (s *Server) SetUsername(name string) {
	s.mu.Lock()
	s.username = name
	s.mu.Unlock()
	s.codec.SetUser(name)
}

// Hostname 返回主机名
func (s *Server) Hostname() string {
	return s.cfg.Identity.Hostname
}

// Peers 返回按 IP 排序的节点列表
func (s *Server) Peers() []Peer {
	return s.dir.Snapshot()
}

// Peer 按 IP 查找节点
func (s *Server) Peer(ip string) (Peer, bool) {
	return s.dir.Get(ip)
}

// ────────────────────────────────────────────────────────────────────────
// 注册
// ────────────────────────────────────────────────────────────────────────

// RegisterHandler 在命名空间上注册处理器
func (s *Server) RegisterHandler(namespace string, fn HandlerFunc) (Handle, error) {
	return s.disp.Handle(namespace, fn)
}

// RegisterMiddleware 追加中间件
//
// 中间件在内置的节点跟踪中间件之后、命名空间处理器之前执行。
func (s *Server) RegisterMiddleware(fn MiddlewareFunc) (Handle, error) {
	return s.disp.Use(fn)
}

// RegisterPeerListUpdateHandler 注册节点列表变化回调
func (s *Server) RegisterPeerListUpdateHandler(fn PeerListUpdateFunc) (Handle, error) {
	if fn == nil {
		return Handle{}, ErrNilHandler
	}
	return dispatcher.NewHandle(s.dir.OnUpdate(fn)), nil
}
