package stmp

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/bRuttaZz/stmp/pkg/types"
)

// joinLimiterSize 记录限速状态的请求方上限
const joinLimiterSize = 1024

// trackPeer 内置中间件：每个入站数据包刷新发送方的目录记录
func (s *Server) trackPeer(_ context.Context, pkt *types.Packet) error {
	s.dir.Observe(pkt.Header, pkt.Sender)
	return nil
}

// handleJoin 响应 UDP 上的 /peer-join 请求
//
// 通过 TCP 回复到 sender:tcpport，附带公钥。TCP 上收到的是其他实例的回复，
// 中间件已经记录了对端，无需处理。
func (s *Server) handleJoin(ctx context.Context, pkt *types.Packet) error {
	if pkt.Protocol != types.ProtocolUDP {
		return nil
	}
	port := pkt.Header.TCPPort
	if port == 0 {
		return fmt.Errorf("join request from %s without tcp port", pkt.Sender)
	}
	if !s.join.Allow(pkt.Sender) {
		logger.Debug("握手回复被限速", "sender", pkt.Sender)
		return nil
	}

	s.replies.Add(1)
	go func() {
		defer s.replies.Done()
		ok := s.SendTCP(ctx, JoinReply, JoinNamespace, pkt.Sender, port, SendOptions{IncludePublicKey: true})
		logger.Debug("握手回复", "to", pkt.Sender, "port", port, "ok", ok)
	}()
	return nil
}

// joinLimiter 按请求方 IP 限制握手回复速率
type joinLimiter struct {
	limit rate.Limit
	clock clock.Clock

	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
}

// newJoinLimiter 创建限速器；perSecond <= 0 表示不限速
func newJoinLimiter(perSecond float64, c clock.Clock) *joinLimiter {
	if perSecond <= 0 {
		return &joinLimiter{limit: rate.Inf, clock: c}
	}
	cache, err := lru.New[string, *rate.Limiter](joinLimiterSize)
	if err != nil {
		panic(err)
	}
	return &joinLimiter{limit: rate.Limit(perSecond), clock: c, limiters: cache}
}

// Allow 报告此刻是否允许回复 ip
func (l *joinLimiter) Allow(ip string) bool {
	if l.limit == rate.Inf {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, 1)
		l.limiters.Add(ip, lim)
	}
	return lim.AllowN(l.clock.Now(), 1)
}
