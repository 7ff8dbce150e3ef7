package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHeader_MarshalFlattensExtra 测试扩展字段平铺且固定字段不可被覆盖
func TestHeader_MarshalFlattensExtra(t *testing.T) {
	h := Header{
		User:      "alice",
		Hostname:  "box",
		UDPPort:   57000,
		TCPPort:   57001,
		Namespace: "/test-route",
		Extra: map[string]any{
			ExtUDPSession: "abc",
			FieldUser:     "mallory",
		},
	}

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"alice","hostname":"box","udpport":57000,"tcpport":57001,
		"encrypted":false,"namespace":"/test-route","udp_session":"abc"}`, string(data))
	assert.NotContains(t, string(data), "public_key")
	assert.NotContains(t, string(data), " ")
}

// TestHeader_UnmarshalRoundTrip 测试头部往返
func TestHeader_UnmarshalRoundTrip(t *testing.T) {
	in := Header{
		User:      "alice",
		Hostname:  "box",
		UDPPort:   1,
		TCPPort:   2,
		Encrypted: true,
		Namespace: "/ns",
		PublicKey: "beef",
		Extra:     map[string]any{"udp_session": "s-1", "hops": float64(3)},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Header
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.Equal(t, "s-1", out.Session())

	v, ok := out.Get("hops")
	assert.True(t, ok)
	assert.Equal(t, float64(3), v)
}

// TestHeader_UnmarshalValidation 测试字段校验
func TestHeader_UnmarshalValidation(t *testing.T) {
	cases := map[string]string{
		"missing_namespace": `{"user":"a"}`,
		"namespace_type":    `{"namespace":7}`,
		"port_type":         `{"namespace":"/","udpport":"x"}`,
		"port_range":        `{"namespace":"/","tcpport":70000}`,
		"encrypted_type":    `{"namespace":"/","encrypted":"yes"}`,
		"not_object":        `[1,2]`,
		"null":              `null`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var h Header
			err := json.Unmarshal([]byte(raw), &h)
			assert.ErrorIs(t, err, ErrInvalidHeader)
		})
	}

	var h Header
	require.NoError(t, json.Unmarshal([]byte(`{"namespace":"/only"}`), &h))
	assert.Equal(t, "/only", h.Namespace)
	assert.Empty(t, h.Session())
}

// TestHeader_WithExtra 测试 WithExtra 不修改原值
func TestHeader_WithExtra(t *testing.T) {
	base := Header{Namespace: "/"}
	withSession := base.WithExtra(map[string]any{ExtUDPSession: "x", FieldNamespace: "/evil"})

	assert.Nil(t, base.Extra)
	assert.Equal(t, "x", withSession.Session())
	assert.Equal(t, "/", withSession.Namespace)
	assert.Len(t, withSession.Extra, 1)
}

// TestPacket_Helpers 测试 Packet 辅助方法
func TestPacket_Helpers(t *testing.T) {
	p := &Packet{Data: json.RawMessage(`"hello"`), Protocol: ProtocolUDP}
	s, ok := p.Text()
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	p = &Packet{Data: json.RawMessage(`{"n":1}`), Protocol: ProtocolTCP}
	_, ok = p.Text()
	assert.False(t, ok)

	var v struct{ N int }
	require.NoError(t, p.Decode(&v))
	assert.Equal(t, 1, v.N)
	assert.Error(t, (&Packet{}).Decode(&v))

	assert.Equal(t, "udp", ProtocolUDP.String())
	assert.Equal(t, "tcp", ProtocolTCP.String())
}

// TestPeer_FromHeader 测试节点构造与过期判断
func TestPeer_FromHeader(t *testing.T) {
	now := time.Unix(1000, 0)
	p := PeerFromHeader(Header{User: "u", Hostname: "h", UDPPort: 1, TCPPort: 57001, PublicKey: "k"}, "10.0.0.2", now)

	assert.Equal(t, "10.0.0.2:57001", p.TCPAddr())
	assert.True(t, p.HasPublicKey())
	assert.False(t, p.Expired(now.Add(70*time.Second), 70*time.Second))
	assert.True(t, p.Expired(now.Add(75*time.Second), 70*time.Second))
}
