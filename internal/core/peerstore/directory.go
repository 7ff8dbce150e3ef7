package peerstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/bRuttaZz/stmp/config"
	"github.com/bRuttaZz/stmp/internal/core/metrics"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

var logger = log.Logger("core/peerstore")

// Config 目录配置
type Config struct {
	// TTL 节点最后出现后保留的时长
	TTL time.Duration

	// CleanupInterval 清理间隔
	CleanupInterval time.Duration
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return Config{
		TTL:             config.DefaultPeerTTL,
		CleanupInterval: config.DefaultCleanupInterval,
	}
}

// ConfigFromUnified 从统一配置创建目录配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return NewConfig()
	}
	return Config{
		TTL:             cfg.Peer.TTL.Duration(),
		CleanupInterval: cfg.Peer.CleanupInterval.Duration(),
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// UpdateFunc 节点列表变化回调
//
// added 非空表示新节点；removed 非空表示本轮清理移除的节点。
type UpdateFunc func(added *types.Peer, removed []types.Peer)

// Option 目录选项
type Option func(*Directory)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(d *Directory) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithEmitter 设置节点列表事件发射器
func WithEmitter(e pkgif.Emitter) Option {
	return func(d *Directory) {
		d.emitter = e
	}
}

// WithMetrics 设置计数器
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Directory) {
		d.metrics = m
	}
}

type callbackEntry struct {
	id uint64
	fn UpdateFunc
}

// Directory 节点目录
type Directory struct {
	cfg     Config
	clock   clock.Clock
	emitter pkgif.Emitter
	metrics *metrics.Metrics

	mu    sync.RWMutex
	peers map[string]types.Peer

	cbMu      sync.RWMutex
	callbacks []callbackEntry
	nextID    uint64
}

// New 创建节点目录
func New(cfg Config, opts ...Option) (*Directory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Directory{
		cfg:   cfg,
		clock: clock.New(),
		peers: make(map[string]types.Peer),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config 返回目录配置
func (d *Directory) Config() Config {
	return d.cfg
}

// ============================================================================
//                              读写
// ============================================================================

// Observe 记录一次来自 ip 的数据包
//
// 整体替换该 IP 的记录；IP 首次出现时返回 isNew 并通知更新。
func (d *Directory) Observe(h types.Header, ip string) (types.Peer, bool) {
	p := types.PeerFromHeader(h, ip, d.clock.Now())

	d.mu.Lock()
	_, exists := d.peers[ip]
	d.peers[ip] = p
	n := len(d.peers)
	d.mu.Unlock()

	if exists {
		return p, false
	}

	logger.Debug("发现新节点", "ip", ip, "user", p.User, "host", p.Hostname)
	d.metrics.SetPeers(n)
	added := p
	d.notify(&added, nil)
	return p, true
}

// Sweep 移除所有超过 TTL 的节点
func (d *Directory) Sweep() []types.Peer {
	now := d.clock.Now()

	d.mu.Lock()
	var removed []types.Peer
	for ip, p := range d.peers {
		if p.Expired(now, d.cfg.TTL) {
			removed = append(removed, p)
			delete(d.peers, ip)
		}
	}
	n := len(d.peers)
	d.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}
	sortPeers(removed)
	logger.Debug("清理过期节点", "removed", len(removed), "remaining", n)
	d.metrics.SetPeers(n)
	d.notify(nil, removed)
	return removed
}

// Get 按 IP 查找节点
func (d *Directory) Get(ip string) (types.Peer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.peers[ip]
	return p, ok
}

// Lookup 按 IP 查找节点，不存在时返回 ErrNotFound
func (d *Directory) Lookup(ip string) (types.Peer, error) {
	p, ok := d.Get(ip)
	if !ok {
		return types.Peer{}, fmt.Errorf("%w: %s", ErrNotFound, ip)
	}
	return p, nil
}

// Snapshot 返回按 IP 排序的节点副本
func (d *Directory) Snapshot() []types.Peer {
	d.mu.RLock()
	out := make([]types.Peer, 0, len(d.peers))
	for _, p := range d.peers {
		out = append(out, p)
	}
	d.mu.RUnlock()

	sortPeers(out)
	return out
}

// Len 返回节点数
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.peers)
}

func sortPeers(ps []types.Peer) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].IP < ps[j].IP })
}

// ============================================================================
//                              通知
// ============================================================================

// OnUpdate 注册节点列表变化回调，返回注销函数
func (d *Directory) OnUpdate(fn UpdateFunc) (remove func()) {
	if fn == nil {
		return func() {}
	}
	d.cbMu.Lock()
	d.nextID++
	id := d.nextID
	d.callbacks = append(d.callbacks, callbackEntry{id: id, fn: fn})
	d.cbMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.cbMu.Lock()
			defer d.cbMu.Unlock()
			for i, e := range d.callbacks {
				if e.id == id {
					d.callbacks = append(d.callbacks[:i:i], d.callbacks[i+1:]...)
					return
				}
			}
		})
	}
}

func (d *Directory) notify(added *types.Peer, removed []types.Peer) {
	d.cbMu.RLock()
	cbs := make([]callbackEntry, len(d.callbacks))
	copy(cbs, d.callbacks)
	d.cbMu.RUnlock()

	for _, e := range cbs {
		d.invoke(e.fn, added, removed)
	}

	if d.emitter != nil {
		evt := &types.EvtPeerListUpdated{New: added, Removed: removed, Time: d.clock.Now()}
		if err := d.emitter.Emit(evt); err != nil {
			logger.Debug("发射节点列表事件失败", "err", err)
		}
	}
}

func (d *Directory) invoke(fn UpdateFunc, added *types.Peer, removed []types.Peer) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("节点列表回调 panic", "panic", r)
		}
	}()
	fn(added, removed)
}

// ============================================================================
//                              清理循环
// ============================================================================

// Run 每个清理间隔执行一次 Sweep，直到 ctx 结束
func (d *Directory) Run(ctx context.Context) error {
	ticker := d.clock.Ticker(d.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Sweep()
		}
	}
}
