package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// ============================================================================
//                              内存网络
// ============================================================================

// memQueueSize 每个内存会话的入站队列长度
const memQueueSize = 64

// MemoryNetwork 进程内网络
//
// 按 (协议, ip, 端口) 路由数据；UDP 传输发往空地址即投递给所有监听同端口的
// UDP 会话，模拟多播。发往无人监听的 TCP 地址返回 false，模拟连接被拒。
type MemoryNetwork struct {
	mu        sync.RWMutex
	listeners map[memKey]*memSession
}

type memKey struct {
	proto types.Protocol
	ip    string
	port  int
}

// NewMemoryNetwork 创建内存网络
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{listeners: make(map[memKey]*memSession)}
}

// Transport 返回绑定在 ip:port 的内存传输
func (n *MemoryNetwork) Transport(proto types.Protocol, ip string, port int) *MemoryTransport {
	return &MemoryTransport{net: n, proto: proto, ip: ip, port: port}
}

func (n *MemoryNetwork) register(s *memSession) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[s.key]; ok {
		return fmt.Errorf("%w: %s %s:%d", ErrAddrInUse, s.key.proto, s.key.ip, s.key.port)
	}
	n.listeners[s.key] = s
	return nil
}

func (n *MemoryNetwork) unregister(s *memSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners[s.key] == s {
		delete(n.listeners, s.key)
	}
}

// deliver 投递数据；返回是否有至少一个会话收下
func (n *MemoryNetwork) deliver(from string, proto types.Protocol, ip string, port int, data []byte) bool {
	n.mu.RLock()
	var targets []*memSession
	for k, s := range n.listeners {
		if k.proto != proto || k.port != port {
			continue
		}
		if ip == "" || ip == k.ip {
			targets = append(targets, s)
		}
	}
	n.mu.RUnlock()

	delivered := false
	for _, s := range targets {
		if s.push(memDatagram{data: append([]byte(nil), data...), sender: from}) {
			delivered = true
		}
	}
	return delivered
}

// ============================================================================
//                              内存传输
// ============================================================================

// 确保实现了接口
var (
	_ pkgif.Transport = (*MemoryTransport)(nil)
	_ pkgif.Session   = (*memSession)(nil)
)

// MemoryTransport 内存传输
type MemoryTransport struct {
	net   *MemoryNetwork
	proto types.Protocol
	ip    string
	port  int

	sent atomic.Int64
}

// Protocol 返回传输协议
func (t *MemoryTransport) Protocol() types.Protocol {
	return t.proto
}

// Sent 返回已成功发送的次数
func (t *MemoryTransport) Sent() int64 {
	return t.sent.Load()
}

// Send 投递数据
func (t *MemoryTransport) Send(ctx context.Context, data []byte, addr string, port int) bool {
	if ctx.Err() != nil {
		return false
	}
	if port == 0 {
		port = t.port
	}
	if addr == "" && t.proto == types.ProtocolTCP {
		return false
	}
	ok := t.net.deliver(t.ip, t.proto, addr, port, data)
	if t.proto == types.ProtocolUDP {
		// 数据报发出即成功
		ok = true
	}
	if ok {
		t.sent.Add(1)
	}
	return ok
}

// Listen 在内存网络注册会话
func (t *MemoryTransport) Listen(_ context.Context) (pkgif.Session, error) {
	s := &memSession{
		net:   t.net,
		key:   memKey{proto: t.proto, ip: t.ip, port: t.port},
		queue: make(chan memDatagram, memQueueSize),
		done:  make(chan struct{}),
	}
	if err := t.net.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

type memDatagram struct {
	data   []byte
	sender string
}

type memSession struct {
	net   *MemoryNetwork
	key   memKey
	queue chan memDatagram
	done  chan struct{}

	closeOnce sync.Once
}

func (s *memSession) push(d memDatagram) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- d:
		return true
	case <-s.done:
		return false
	default:
		// 队列满时丢弃
		return false
	}
}

// Read 读取下一条数据，超过 max 的部分截断
func (s *memSession) Read(ctx context.Context, max int) ([]byte, string, error) {
	select {
	case d := <-s.queue:
		if len(d.data) > max {
			d.data = d.data[:max]
		}
		return d.data, d.sender, nil
	case <-s.done:
		return nil, "", ErrSessionClosed
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

// Close 注销会话
func (s *memSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.net.unregister(s)
	})
	return nil
}
