package stmp

import (
	"context"
	"fmt"
	"maps"

	"github.com/bRuttaZz/stmp/internal/core/wire"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// SendOptions 发送选项
type SendOptions struct {
	// Addr 目标地址；UDP 为空时发往多播组
	Addr string

	// Port 目标端口；0 表示配置端口
	Port int

	// EncryptionKey 对端 hex 公钥，非空时加密消息体
	EncryptionKey string

	// IncludePublicKey 头部附带本实例公钥
	IncludePublicKey bool

	// Extra 附加扩展头部字段
	Extra map[string]any
}

func (o SendOptions) pack() wire.PackOptions {
	return wire.PackOptions{
		EncryptionKey:    o.EncryptionKey,
		IncludePublicKey: o.IncludePublicKey,
		Extra:            o.Extra,
	}
}

// SendUDP 通过 UDP 发送
//
// 头部总是带上本实例的会话标识，接收方据此丢弃自己发出的数据包。
func (s *Server) SendUDP(ctx context.Context, data any, namespace string, opts SendOptions) bool {
	extra := make(map[string]any, len(opts.Extra)+1)
	maps.Copy(extra, opts.Extra)
	extra[types.ExtUDPSession] = s.session
	opts.Extra = extra

	frame, err := s.codec.Pack(data, namespace, opts.pack())
	if err != nil {
		logger.Warn("打包 UDP 数据包失败", "namespace", namespace, "err", err)
		s.metrics.Sent(types.ProtocolUDP, false)
		return false
	}
	ok := s.udp.Send(ctx, frame, opts.Addr, opts.Port)
	s.metrics.Sent(types.ProtocolUDP, ok)
	return ok
}

// SendTCP 通过 TCP 发送到 addr:port
func (s *Server) SendTCP(ctx context.Context, data any, namespace, addr string, port int, opts SendOptions) bool {
	frame, err := s.codec.Pack(data, namespace, opts.pack())
	if err != nil {
		logger.Warn("打包 TCP 数据包失败", "namespace", namespace, "addr", addr, "err", err)
		s.metrics.Sent(types.ProtocolTCP, false)
		return false
	}
	ok := s.tcp.Send(ctx, frame, addr, port)
	s.metrics.Sent(types.ProtocolTCP, ok)
	return ok
}

// Broadcast 向多播组发送，附带本实例公钥
func (s *Server) Broadcast(ctx context.Context, namespace string, data any, port int) bool {
	return s.SendUDP(ctx, data, namespace, SendOptions{Port: port, IncludePublicKey: true})
}

// SendToPeer 通过 TCP 发送给目录中的节点
//
// 已知节点公钥时加密消息体，否则明文发送。节点不在目录中返回 ErrUnknownPeer。
func (s *Server) SendToPeer(ctx context.Context, namespace string, data any, ip string) (bool, error) {
	return s.sendToPeer(ctx, namespace, data, ip, false)
}

// SendToPeerEncrypted 与 SendToPeer 相同，但要求加密
//
// 节点公钥未知时不发送，返回 ErrNoPublicKey。
func (s *Server) SendToPeerEncrypted(ctx context.Context, namespace string, data any, ip string) (bool, error) {
	return s.sendToPeer(ctx, namespace, data, ip, true)
}

func (s *Server) sendToPeer(ctx context.Context, namespace string, data any, ip string, requireKey bool) (bool, error) {
	p, err := s.dir.Lookup(ip)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnknownPeer, err)
	}
	if requireKey && !p.HasPublicKey() {
		return false, ErrNoPublicKey
	}
	opts := SendOptions{IncludePublicKey: true, EncryptionKey: p.PublicKey}
	return s.SendTCP(ctx, data, namespace, p.IP, p.TCPPort, opts), nil
}

// RequestSync 广播握手请求，收到的实例会通过 TCP 回复
func (s *Server) RequestSync(ctx context.Context) bool {
	logger.Debug("请求节点同步")
	return s.SendUDP(ctx, JoinRequest, JoinNamespace, SendOptions{IncludePublicKey: true})
}
