package stmp

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/bRuttaZz/stmp/internal/core/metrics"
	"github.com/bRuttaZz/stmp/internal/core/transport"
	"github.com/bRuttaZz/stmp/internal/core/transport/tcp"
	"github.com/bRuttaZz/stmp/internal/core/transport/udp"
	"github.com/bRuttaZz/stmp/internal/core/wire"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              运行
// ════════════════════════════════════════════════════════════════════════════

// Run 监听两种传输并运行四个循环，直到 ctx 结束
//
// 绑定失败在任何循环启动前返回。ctx 取消后关闭会话（UDP 退出多播组），
// 正常取消时返回 nil。
func (s *Server) Run(ctx context.Context) error {
	wait, err := s.start(ctx)
	if err != nil {
		return err
	}
	return wait()
}

// start 绑定两种传输并在后台启动循环，返回等待函数
func (s *Server) start(ctx context.Context) (func() error, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) &&
		!s.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return nil, ErrAlreadyRunning
	}

	udpSess, err := s.udp.Listen(ctx)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return nil, fmt.Errorf("stmp: listen udp: %w", err)
	}
	tcpSess, err := s.tcp.Listen(ctx)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return nil, multierr.Append(fmt.Errorf("stmp: listen tcp: %w", err), udpSess.Close())
	}

	logger.Info("服务器已启动", "session", log.TruncateID(s.session, 8))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.serve(gctx, udpSess, types.ProtocolUDP) })
	g.Go(func() error { return s.serve(gctx, tcpSess, types.ProtocolTCP) })
	g.Go(func() error { return s.dir.Run(gctx) })
	g.Go(func() error { return s.discover(gctx) })

	return func() error {
		defer s.state.Store(int32(StateStopped))

		err := g.Wait()
		s.replies.Wait()

		err = multierr.Combine(err, udpSess.Close(), tcpSess.Close())
		if err != nil {
			logger.Warn("服务器退出", "err", err)
		} else {
			logger.Info("服务器已停止")
		}
		return err
	}, nil
}

// serve 单个会话的监听循环
func (s *Server) serve(ctx context.Context, sess pkgif.Session, proto types.Protocol) error {
	limit := s.codec.MaxPacketSize()
	for {
		raw, sender, err := sess.Read(ctx, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if sessionClosed(err) {
				return fmt.Errorf("stmp: %s session closed: %w", proto, err)
			}
			logger.Debug("读取失败", "protocol", proto.String(), "sender", sender, "err", err)
			s.metrics.Dropped(proto, metrics.DropRead)
			continue
		}
		s.handleFrame(ctx, raw, sender, proto)
	}
}

func sessionClosed(err error) bool {
	return errors.Is(err, udp.ErrSessionClosed) ||
		errors.Is(err, tcp.ErrSessionClosed) ||
		errors.Is(err, transport.ErrSessionClosed) ||
		errors.Is(err, net.ErrClosed)
}

// handleFrame 解码一帧并分发；任何一步失败都丢弃该帧
func (s *Server) handleFrame(ctx context.Context, raw []byte, sender string, proto types.Protocol) {
	s.metrics.Received(proto, len(raw))

	f, err := s.codec.Split(raw)
	if err != nil {
		s.drop(proto, sender, err)
		return
	}
	h, err := s.codec.DecodeHeader(f.Header)
	if err != nil {
		s.drop(proto, sender, err)
		return
	}
	if proto == types.ProtocolUDP && h.Session() == s.session {
		s.metrics.Dropped(proto, metrics.DropSelf)
		return
	}
	data, err := s.codec.DecodeBody(f.Body, h.Encrypted)
	if err != nil {
		s.drop(proto, sender, err)
		return
	}

	s.disp.Dispatch(ctx, &types.Packet{
		Data:     data,
		Header:   h,
		Sender:   sender,
		Protocol: proto,
	})
}

func (s *Server) drop(proto types.Protocol, sender string, err error) {
	reason := dropReason(err)
	logger.Warn("丢弃数据包", "protocol", proto.String(), "sender", sender, "reason", reason, "err", err)
	s.metrics.Dropped(proto, reason)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, wire.ErrShortPrefix):
		return metrics.DropShortPrefix
	case errors.Is(err, wire.ErrFrameTooLarge):
		return metrics.DropTooLarge
	case errors.Is(err, wire.ErrTruncated):
		return metrics.DropTruncated
	case errors.Is(err, wire.ErrMalformedHeader):
		return metrics.DropHeader
	default:
		return metrics.DropBody
	}
}

// discover 发现循环：等待 DiscoveryGrace 后每 DiscoveryInterval 请求一次同步
func (s *Server) discover(ctx context.Context) error {
	grace := s.clock.Timer(s.cfg.Peer.DiscoveryGrace.Duration())
	defer grace.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-grace.C:
	}
	s.RequestSync(ctx)

	ticker := s.clock.Ticker(s.cfg.Peer.DiscoveryInterval.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RequestSync(ctx)
		}
	}
}
