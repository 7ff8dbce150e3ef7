package types

import (
	"encoding/json"
	"fmt"
)

// Protocol 数据包到达所经的传输协议
type Protocol int

const (
	// ProtocolUDP UDP 多播 / 单播
	ProtocolUDP Protocol = iota + 1
	// ProtocolTCP TCP 单连接单消息
	ProtocolTCP
)

// String 返回协议名
func (p Protocol) String() string {
	switch p {
	case ProtocolUDP:
		return "udp"
	case ProtocolTCP:
		return "tcp"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// Packet 交付给中间件和路由处理器的入站数据包
type Packet struct {
	// Data 应用负载（信封 {"msg": ...} 中的 msg，原样 JSON）
	Data json.RawMessage

	// Header 解码后的头部
	Header Header

	// Sender 发送方 IP
	Sender string

	// Protocol 到达协议
	Protocol Protocol
}

// Decode 将负载解码到 v
func (p *Packet) Decode(v any) error {
	if len(p.Data) == 0 {
		return fmt.Errorf("packet: empty data")
	}
	return json.Unmarshal(p.Data, v)
}

// Text 负载为 JSON 字符串时返回其内容
func (p *Packet) Text() (string, bool) {
	var s string
	if err := json.Unmarshal(p.Data, &s); err != nil {
		return "", false
	}
	return s, true
}

// String 返回适合日志的简短描述
func (p *Packet) String() string {
	return fmt.Sprintf("%s@%s %s %s (%d bytes)", p.Header.User, p.Sender, p.Protocol, p.Header.Namespace, len(p.Data))
}
