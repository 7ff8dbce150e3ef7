package types

import (
	"net"
	"strconv"
	"time"
)

// Peer 节点目录中的一条记录
//
// 以 IP 为键，每收到一个来自该 IP 的数据包就整体替换。
type Peer struct {
	User       string
	Hostname   string
	IP         string
	UDPPort    int
	TCPPort    int
	PublicKey  string
	UpdateTime time.Time
}

// PeerFromHeader 从头部和发送方 IP 构造节点记录
func PeerFromHeader(h Header, ip string, now time.Time) Peer {
	return Peer{
		User:       h.User,
		Hostname:   h.Hostname,
		IP:         ip,
		UDPPort:    h.UDPPort,
		TCPPort:    h.TCPPort,
		PublicKey:  h.PublicKey,
		UpdateTime: now,
	}
}

// TCPAddr 返回节点的 TCP 地址 "ip:port"
func (p Peer) TCPAddr() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.TCPPort))
}

// HasPublicKey 是否已知公钥
func (p Peer) HasPublicKey() bool {
	return p.PublicKey != ""
}

// Expired 判断在 now 时刻是否已超过 ttl
func (p Peer) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.UpdateTime) > ttl
}
