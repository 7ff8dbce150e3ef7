package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bRuttaZz/stmp/pkg/lib/crypto"
	"github.com/bRuttaZz/stmp/pkg/types"
)

func testDefaults() types.Header {
	return types.Header{User: "alice", Hostname: "box", UDPPort: 57000, TCPPort: 57001}
}

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	kp, err := crypto.GenerateKeyPair(1024, nil)
	require.NoError(t, err)
	return NewCodec(testDefaults(), kp, opts...)
}

// TestCodec_PackRoundTrip 测试不加密往返
func TestCodec_PackRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	payloads := []any{
		"hello",
		map[string]any{"a": float64(1), "b": []any{"x", true}},
		float64(42),
		nil,
		"<tag> & \"quote\"",
	}
	for _, p := range payloads {
		frame, err := c.Pack(p, "/test-route", PackOptions{})
		require.NoError(t, err)

		h, data, err := c.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, "/test-route", h.Namespace)
		assert.Equal(t, "alice", h.User)
		assert.Equal(t, 57001, h.TCPPort)
		assert.False(t, h.Encrypted)

		var got any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, p, got)
	}
}

// TestCodec_FrameLayout 测试前缀与信封的精确字节
func TestCodec_FrameLayout(t *testing.T) {
	c := NewCodec(testDefaults(), nil)
	frame, err := c.Pack("hello", "/", PackOptions{})
	require.NoError(t, err)

	hl := int(binary.BigEndian.Uint16(frame[0:2]))
	bl := int(binary.BigEndian.Uint32(frame[2:6]))
	assert.Equal(t, len(frame), PrefixSize+hl+bl)

	body := string(frame[PrefixSize+hl:])
	assert.Equal(t, `{"msg":"hello"}`, body)

	header := frame[PrefixSize : PrefixSize+hl]
	assert.NotContains(t, string(header), " ")
	assert.NotContains(t, string(header), "public_key")

	// 确定性
	again, err := c.Pack("hello", "/", PackOptions{})
	require.NoError(t, err)
	assert.Equal(t, frame, again)
}

// TestCodec_ExtraAndPublicKey 测试扩展字段与公钥
func TestCodec_ExtraAndPublicKey(t *testing.T) {
	c := newTestCodec(t)
	frame, err := c.Pack("x", "/peer-join", PackOptions{
		IncludePublicKey: true,
		Extra:            map[string]any{types.ExtUDPSession: "sess-1"},
	})
	require.NoError(t, err)

	h, _, err := c.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", h.Session())
	assert.Equal(t, c.keys.PublicKeyHex(), h.PublicKey)

	// 无密钥时不能附带公钥
	_, err = NewCodec(testDefaults(), nil).Pack("x", "/", PackOptions{IncludePublicKey: true})
	assert.ErrorIs(t, err, ErrNoKeys)
}

// TestCodec_Encrypted 测试加密往返
func TestCodec_Encrypted(t *testing.T) {
	receiver := newTestCodec(t)
	sender := newTestCodec(t)

	frame, err := sender.Pack("iamheredude", "/peer-join", PackOptions{EncryptionKey: receiver.keys.PublicKeyHex()})
	require.NoError(t, err)
	assert.NotContains(t, string(frame), "iamheredude")

	h, data, err := receiver.Decode(frame)
	require.NoError(t, err)
	assert.True(t, h.Encrypted)
	assert.JSONEq(t, `"iamheredude"`, string(data))

	// 发送方自己解不开
	_, _, err = sender.Decode(frame)
	assert.ErrorIs(t, err, ErrDecrypt)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, StageBody, de.Stage)
}

// TestCodec_EncryptTooLarge 测试超过 OAEP 上限的负载
func TestCodec_EncryptTooLarge(t *testing.T) {
	c := newTestCodec(t)
	_, err := c.Pack(strings.Repeat("a", 200), "/", PackOptions{EncryptionKey: c.keys.PublicKeyHex()})
	assert.ErrorIs(t, err, ErrEncrypt)
	assert.ErrorIs(t, err, crypto.ErrPlaintextTooLarge)
}

// TestCodec_UnpackSizePrefix 测试前缀解析
func TestCodec_UnpackSizePrefix(t *testing.T) {
	c := NewCodec(testDefaults(), nil, WithMaxPacketSize(1024))

	_, _, err := c.UnpackSizePrefix([]byte{0, 1, 0})
	assert.ErrorIs(t, err, ErrShortPrefix)

	prefix := make([]byte, PrefixSize)
	binary.BigEndian.PutUint16(prefix[0:2], 10)
	binary.BigEndian.PutUint32(prefix[2:6], 20)
	h, b, err := c.UnpackSizePrefix(prefix)
	require.NoError(t, err)
	assert.Equal(t, 10, h)
	assert.Equal(t, 20, b)

	// 刚好等于上限
	binary.BigEndian.PutUint16(prefix[0:2], 18)
	binary.BigEndian.PutUint32(prefix[2:6], 1000)
	_, _, err = c.UnpackSizePrefix(prefix)
	assert.NoError(t, err)

	binary.BigEndian.PutUint32(prefix[2:6], 1001)
	_, _, err = c.UnpackSizePrefix(prefix)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

// TestCodec_OversizeRejectedBeforeHeader 测试超限帧不解析头部
func TestCodec_OversizeRejectedBeforeHeader(t *testing.T) {
	c := NewCodec(testDefaults(), nil)

	frame := make([]byte, PrefixSize)
	binary.BigEndian.PutUint16(frame[0:2], 0xffff)
	binary.BigEndian.PutUint32(frame[2:6], 0xffffffff)
	frame = append(frame, []byte("not json at all")...)

	_, _, err := c.Decode(frame)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.NotErrorIs(t, err, ErrMalformedHeader)
}

// TestCodec_PackTooLarge 测试打包超限
func TestCodec_PackTooLarge(t *testing.T) {
	c := NewCodec(testDefaults(), nil, WithMaxPacketSize(128))
	_, err := c.Pack(strings.Repeat("x", 200), "/", PackOptions{})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

// TestCodec_MalformedInputs 测试各种损坏输入
func TestCodec_MalformedInputs(t *testing.T) {
	c := NewCodec(testDefaults(), nil)

	build := func(header, body string) []byte {
		f := make([]byte, PrefixSize)
		binary.BigEndian.PutUint16(f[0:2], uint16(len(header)))
		binary.BigEndian.PutUint32(f[2:6], uint32(len(body)))
		return append(append(f, header...), body...)
	}

	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"empty", nil, ErrShortPrefix},
		{"truncated", build(`{"namespace":"/"}`, `{"msg":1}`)[:12], ErrTruncated},
		{"header_garbage", build(`{nope`, `{"msg":1}`), ErrMalformedHeader},
		{"header_no_namespace", build(`{"user":"a"}`, `{"msg":1}`), ErrMalformedHeader},
		{"body_garbage", build(`{"namespace":"/"}`, `[[[`), ErrMalformedBody},
		{"body_no_msg", build(`{"namespace":"/"}`, `{"data":1}`), ErrMalformedBody},
		{"body_not_object", build(`{"namespace":"/"}`, `"hello"`), ErrMalformedBody},
		{"encrypted_without_keys", build(`{"namespace":"/","encrypted":true}`, `xxxx`), ErrDecrypt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Decode(tt.frame)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestCodec_EmptyBody 测试 body_len 为 0 的帧
func TestCodec_EmptyBody(t *testing.T) {
	c := NewCodec(testDefaults(), nil)

	build := func(header string) []byte {
		f := make([]byte, PrefixSize)
		binary.BigEndian.PutUint16(f[0:2], uint16(len(header)))
		return append(f, header...)
	}

	h, data, err := c.Decode(build(`{"namespace":"/empty","user":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "/empty", h.Namespace)
	assert.Nil(t, data)

	_, _, err = c.Decode(build(`{"namespace":"/empty","encrypted":true}`))
	assert.ErrorIs(t, err, ErrDecrypt)
}

// TestCodec_TrailingBytesIgnored 测试声明长度之后的尾部字节被忽略
func TestCodec_TrailingBytesIgnored(t *testing.T) {
	c := NewCodec(testDefaults(), nil)
	frame, err := c.Pack("hello", "/", PackOptions{})
	require.NoError(t, err)

	_, data, err := c.Decode(append(frame, "junk"...))
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(data))
}

// TestCodec_SetUser 测试修改用户名
func TestCodec_SetUser(t *testing.T) {
	c := NewCodec(testDefaults(), nil)
	c.SetUser("bob")

	frame, err := c.Pack(1, "/", PackOptions{})
	require.NoError(t, err)
	h, _, err := c.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "bob", h.User)
	assert.Equal(t, "bob", c.Defaults().User)
}
