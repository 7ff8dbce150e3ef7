package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 头部字段名
const (
	FieldUser      = "user"
	FieldHostname  = "hostname"
	FieldUDPPort   = "udpport"
	FieldTCPPort   = "tcpport"
	FieldEncrypted = "encrypted"
	FieldNamespace = "namespace"
	FieldPublicKey = "public_key"

	// ExtUDPSession UDP 来源会话标识（扩展字段）
	ExtUDPSession = "udp_session"
)

var knownFields = map[string]struct{}{
	FieldUser:      {},
	FieldHostname:  {},
	FieldUDPPort:   {},
	FieldTCPPort:   {},
	FieldEncrypted: {},
	FieldNamespace: {},
	FieldPublicKey: {},
}

// ErrInvalidHeader 头部字段不合法
var ErrInvalidHeader = errors.New("types: invalid header")

// Header 数据包头部
//
// 固定字段之外的键保存在 Extra 中，编码时与固定字段平铺在同一个 JSON 对象里。
// 解码后视为只读。
type Header struct {
	User      string
	Hostname  string
	UDPPort   int
	TCPPort   int
	Encrypted bool
	Namespace string
	PublicKey string

	// Extra 扩展字段（如 udp_session）
	Extra map[string]any
}

// Get 读取扩展字段
func (h Header) Get(key string) (any, bool) {
	v, ok := h.Extra[key]
	return v, ok
}

// Session 返回 udp_session 扩展字段，不存在时返回空串
func (h Header) Session() string {
	v, ok := h.Extra[ExtUDPSession]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Clone 返回深拷贝（Extra 浅拷贝一层）
func (h Header) Clone() Header {
	out := h
	if h.Extra != nil {
		out.Extra = make(map[string]any, len(h.Extra))
		for k, v := range h.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// WithExtra 返回附加扩展字段后的副本，与固定字段同名的键被忽略
func (h Header) WithExtra(extra map[string]any) Header {
	out := h.Clone()
	for k, v := range extra {
		if _, known := knownFields[k]; known {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(extra))
		}
		out.Extra[k] = v
	}
	return out
}

// MarshalJSON 输出紧凑、键有序的 JSON 对象
func (h Header) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(knownFields)+len(h.Extra))
	for k, v := range h.Extra {
		if _, known := knownFields[k]; known {
			continue
		}
		m[k] = v
	}
	m[FieldUser] = h.User
	m[FieldHostname] = h.Hostname
	m[FieldUDPPort] = h.UDPPort
	m[FieldTCPPort] = h.TCPPort
	m[FieldEncrypted] = h.Encrypted
	m[FieldNamespace] = h.Namespace
	if h.PublicKey != "" {
		m[FieldPublicKey] = h.PublicKey
	}
	return json.Marshal(m)
}

// UnmarshalJSON 解析头部并校验字段类型
//
// namespace 必填；其它固定字段可缺省，但出现时类型必须正确。
func (h *Header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: not an object", ErrInvalidHeader)
	}

	var out Header
	nsRaw, ok := raw[FieldNamespace]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidHeader, FieldNamespace)
	}
	if err := json.Unmarshal(nsRaw, &out.Namespace); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidHeader, FieldNamespace, err)
	}

	if err := decodeOptional(raw, FieldUser, &out.User); err != nil {
		return err
	}
	if err := decodeOptional(raw, FieldHostname, &out.Hostname); err != nil {
		return err
	}
	if err := decodeOptional(raw, FieldEncrypted, &out.Encrypted); err != nil {
		return err
	}
	if err := decodeOptional(raw, FieldPublicKey, &out.PublicKey); err != nil {
		return err
	}
	if err := decodePort(raw, FieldUDPPort, &out.UDPPort); err != nil {
		return err
	}
	if err := decodePort(raw, FieldTCPPort, &out.TCPPort); err != nil {
		return err
	}

	for k, v := range raw {
		if _, known := knownFields[k]; known {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidHeader, k, err)
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = val
	}

	*h = out
	return nil
}

func decodeOptional(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidHeader, key, err)
	}
	return nil
}

func decodePort(raw map[string]json.RawMessage, key string, dst *int) error {
	if err := decodeOptional(raw, key, dst); err != nil {
		return err
	}
	if *dst < 0 || *dst > 65535 {
		return fmt.Errorf("%w: %s out of range: %d", ErrInvalidHeader, key, *dst)
	}
	return nil
}
