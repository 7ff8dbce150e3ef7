// Package wire 实现 stmp 的二进制帧格式
//
// 帧结构（网络字节序）：
//
//	+----------------+----------------+-------------+-----------+
//	| header_len u16 | body_len u32   | header JSON | body      |
//	+----------------+----------------+-------------+-----------+
//
// 头部为紧凑 JSON 对象；消息体为 {"msg": <data>} 的紧凑 JSON，
// 加密时替换为该 JSON 字节的 RSA-OAEP 密文。
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bRuttaZz/stmp/pkg/lib/crypto"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

var logger = log.Logger("core/wire")

const (
	// PrefixSize 长度前缀字节数（uint16 + uint32）
	PrefixSize = 6

	// DefaultMaxPacketSize 默认单帧上限
	DefaultMaxPacketSize = 4 * 1000 * 1024

	maxHeaderLen = 1<<16 - 1
)

// envelope 消息体信封
type envelope struct {
	Msg json.RawMessage `json:"msg"`
}

// PackOptions 打包选项
type PackOptions struct {
	// EncryptionKey 对端 hex 公钥，非空时加密消息体
	EncryptionKey string

	// IncludePublicKey 头部附带本实例公钥
	IncludePublicKey bool

	// Extra 附加扩展头部字段（如 udp_session）
	Extra map[string]any
}

// Codec 帧编解码器
//
// 持有实例级默认头部（user / hostname / 端口）和密钥对。并发安全。
type Codec struct {
	mu       sync.RWMutex
	defaults types.Header

	keys          *crypto.KeyPair
	maxPacketSize int
}

// Option 编解码器选项
type Option func(*Codec)

// WithMaxPacketSize 设置单帧上限
func WithMaxPacketSize(n int) Option {
	return func(c *Codec) {
		if n >= PrefixSize {
			c.maxPacketSize = n
		}
	}
}

// NewCodec 创建编解码器
//
// keys 可以为 nil，此时不能附带公钥，也不能解密。
func NewCodec(defaults types.Header, keys *crypto.KeyPair, opts ...Option) *Codec {
	c := &Codec{
		defaults:      defaults.Clone(),
		keys:          keys,
		maxPacketSize: DefaultMaxPacketSize,
	}
	c.defaults.Encrypted = false
	c.defaults.PublicKey = ""
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxPacketSize 返回单帧上限
func (c *Codec) MaxPacketSize() int {
	return c.maxPacketSize
}

// Defaults 返回默认头部副本
func (c *Codec) Defaults() types.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaults.Clone()
}

// SetUser 修改后续出站头部中的用户名
func (c *Codec) SetUser(user string) {
	c.mu.Lock()
	c.defaults.User = user
	c.mu.Unlock()
}

// ============================================================================
//                              编码
// ============================================================================

// Pack 打包一帧
//
// data 必须可被 encoding/json 序列化。加密作用于序列化后的消息体字节。
func (c *Codec) Pack(data any, namespace string, opts PackOptions) ([]byte, error) {
	header := c.Defaults().WithExtra(opts.Extra)
	header.Namespace = namespace

	if opts.IncludePublicKey {
		if c.keys == nil {
			return nil, ErrNoKeys
		}
		header.PublicKey = c.keys.PublicKeyHex()
	}

	msg, err := marshalCompact(data)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal data: %w", err)
	}
	body, err := marshalCompact(envelope{Msg: msg})
	if err != nil {
		return nil, fmt.Errorf("wire: marshal body: %w", err)
	}

	if opts.EncryptionKey != "" {
		body, err = crypto.Encrypt(body, opts.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncrypt, err)
		}
		header.Encrypted = true
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal header: %w", err)
	}
	if len(headerBytes) > maxHeaderLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, len(headerBytes))
	}
	total := PrefixSize + len(headerBytes) + len(body)
	if total > c.maxPacketSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, total, c.maxPacketSize)
	}

	frame := make([]byte, PrefixSize, total)
	binary.BigEndian.PutUint16(frame[0:2], uint16(len(headerBytes)))
	binary.BigEndian.PutUint32(frame[2:6], uint32(len(body)))
	frame = append(frame, headerBytes...)
	frame = append(frame, body...)
	return frame, nil
}

// marshalCompact 紧凑 JSON，不转义 HTML 字符
func marshalCompact(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok && json.Valid(raw) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ============================================================================
//                              解码
// ============================================================================

// UnpackSizePrefix 解析长度前缀
//
// 只看前 6 字节；声明的总长度超过上限时直接拒绝，不解析头部。
func (c *Codec) UnpackSizePrefix(b []byte) (headerLen, bodyLen int, err error) {
	if len(b) < PrefixSize {
		return 0, 0, decodeErr(StagePrefix, ErrShortPrefix, nil)
	}
	headerLen = int(binary.BigEndian.Uint16(b[0:2]))
	bodyLen = int(binary.BigEndian.Uint32(b[2:6]))

	if total := PrefixSize + headerLen + bodyLen; total > c.maxPacketSize {
		return headerLen, bodyLen, decodeErr(StagePrefix, ErrFrameTooLarge,
			fmt.Errorf("declared %d > %d", total, c.maxPacketSize))
	}
	return headerLen, bodyLen, nil
}

// DecodeHeader 解码头部
func (c *Codec) DecodeHeader(b []byte) (types.Header, error) {
	var h types.Header
	if err := json.Unmarshal(b, &h); err != nil {
		return types.Header{}, decodeErr(StageHeader, ErrMalformedHeader, err)
	}
	return h, nil
}

// DecodeBody 解码消息体，返回信封中的 msg
//
// 未加密的空消息体返回 nil 负载。
func (c *Codec) DecodeBody(b []byte, decrypt bool) (json.RawMessage, error) {
	if len(b) == 0 && !decrypt {
		return nil, nil
	}
	if decrypt {
		if c.keys == nil {
			return nil, decodeErr(StageBody, ErrDecrypt, ErrNoKeys)
		}
		plain, err := c.keys.Decrypt(b)
		if err != nil {
			return nil, decodeErr(StageBody, ErrDecrypt, err)
		}
		b = plain
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, decodeErr(StageBody, ErrMalformedBody, err)
	}
	msg, ok := raw["msg"]
	if !ok {
		return nil, decodeErr(StageBody, ErrMalformedBody, fmt.Errorf("missing msg"))
	}
	return msg, nil
}

// Frame 一帧拆分后的头部与消息体字节
type Frame struct {
	HeaderLen int
	BodyLen   int
	Header    []byte
	Body      []byte
}

// Split 按前缀切分帧；超出声明长度的尾部字节被忽略
func (c *Codec) Split(frame []byte) (Frame, error) {
	h, b, err := c.UnpackSizePrefix(frame)
	if err != nil {
		return Frame{}, err
	}
	if len(frame) < PrefixSize+h+b {
		return Frame{}, decodeErr(StagePrefix, ErrTruncated,
			fmt.Errorf("have %d, need %d", len(frame), PrefixSize+h+b))
	}
	return Frame{
		HeaderLen: h,
		BodyLen:   b,
		Header:    frame[PrefixSize : PrefixSize+h],
		Body:      frame[PrefixSize+h : PrefixSize+h+b],
	}, nil
}

// Decode 解码完整一帧
func (c *Codec) Decode(frame []byte) (types.Header, json.RawMessage, error) {
	f, err := c.Split(frame)
	if err != nil {
		return types.Header{}, nil, err
	}
	h, err := c.DecodeHeader(f.Header)
	if err != nil {
		return types.Header{}, nil, err
	}
	data, err := c.DecodeBody(f.Body, h.Encrypted)
	if err != nil {
		logger.Debug("消息体解码失败", "namespace", h.Namespace, "encrypted", h.Encrypted, "err", err)
		return h, nil, err
	}
	return h, data, nil
}
