package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// 网络默认值
const (
	// DefaultMulticastGroup 默认多播组
	DefaultMulticastGroup = "239.192.1.107"

	// DefaultUDPPort 默认 UDP 端口（多播服务端口）
	DefaultUDPPort = 57000

	// DefaultTCPPort 默认 TCP 端口
	DefaultTCPPort = 57001

	// DefaultMulticastTTL 多播 TTL（跳数）
	DefaultMulticastTTL = 20

	// DefaultBacklog TCP 监听队列长度
	DefaultBacklog = 5

	// DefaultTCPTimeout TCP 读写/确认超时
	DefaultTCPTimeout = 5 * time.Second

	// DefaultMaxPacketSize 单帧最大字节数
	DefaultMaxPacketSize = 4 * 1000 * 1024
)

// NetworkConfig 网络配置
type NetworkConfig struct {
	// MulticastGroup UDP 多播组地址
	MulticastGroup string `json:"multicast_group"`

	// UDPPort UDP 监听/发送端口
	UDPPort int `json:"udp_port"`

	// TCPPort TCP 监听端口
	TCPPort int `json:"tcp_port"`

	// ListenHost TCP 绑定地址，空表示所有地址
	ListenHost string `json:"listen_host,omitempty"`

	// Interface 加入多播组使用的网卡名，空表示系统默认
	Interface string `json:"interface,omitempty"`

	// MulticastTTL 多播 TTL
	MulticastTTL int `json:"multicast_ttl"`

	// MulticastLoopback 是否开启多播环回（本机多实例互通需要开启）
	MulticastLoopback bool `json:"multicast_loopback"`

	// Backlog TCP 已接受连接队列长度
	Backlog int `json:"backlog"`

	// TCPTimeout TCP 超时
	TCPTimeout Duration `json:"tcp_timeout"`

	// MaxPacketSize 最大帧大小
	MaxPacketSize int `json:"max_packet_size"`
}

// DefaultNetworkConfig 返回默认网络配置
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		MulticastGroup:    DefaultMulticastGroup,
		UDPPort:           DefaultUDPPort,
		TCPPort:           DefaultTCPPort,
		MulticastTTL:      DefaultMulticastTTL,
		MulticastLoopback: true,
		Backlog:           DefaultBacklog,
		TCPTimeout:        Duration(DefaultTCPTimeout),
		MaxPacketSize:     DefaultMaxPacketSize,
	}
}

// Validate 验证网络配置
func (c NetworkConfig) Validate() error {
	ip := net.ParseIP(c.MulticastGroup)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("network: invalid IPv4 multicast group %q", c.MulticastGroup)
	}
	if !ip.IsMulticast() {
		return fmt.Errorf("network: %s is not a multicast address", c.MulticastGroup)
	}
	if err := validPort("udp_port", c.UDPPort); err != nil {
		return err
	}
	if err := validPort("tcp_port", c.TCPPort); err != nil {
		return err
	}
	if c.MulticastTTL < 1 || c.MulticastTTL > 255 {
		return errors.New("network: multicast ttl must be within 1..255")
	}
	if c.Backlog <= 0 {
		return errors.New("network: backlog must be positive")
	}
	if c.TCPTimeout <= 0 {
		return errors.New("network: tcp timeout must be positive")
	}
	if c.MaxPacketSize < 6 {
		return errors.New("network: max packet size too small")
	}
	return nil
}

// UDPAddr 返回多播组的 host:port
func (c NetworkConfig) UDPAddr() string {
	return net.JoinHostPort(c.MulticastGroup, fmt.Sprint(c.UDPPort))
}

func validPort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("network: %s out of range: %d", name, port)
	}
	return nil
}
