package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // OAEP 使用 SHA-1 以兼容现网节点
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RSA 密钥常量
const (
	// RSAMinKeySize RSA 最小密钥大小（位）
	RSAMinKeySize = 1024
	// RSADefaultKeySize RSA 默认密钥大小（位）
	RSADefaultKeySize = 1024
	// RSAMaxKeySize RSA 最大密钥大小（位）
	RSAMaxKeySize = 8192

	// oaepHashLen SHA-1 摘要长度
	oaepHashLen = sha1.Size

	// publicKeyCacheSize 已解析公钥缓存容量
	publicKeyCacheSize = 256
)

// publicKeys 缓存 hex → *rsa.PublicKey，避免每次发送都重新解析 DER
var publicKeys, _ = lru.New[string, *rsa.PublicKey](publicKeyCacheSize)

// ============================================================================
//                              KeyPair
// ============================================================================

// KeyPair 实例级 RSA 密钥对
//
// 公钥以 PKIX DER 编码后转 hex，可直接放入文本头部。
// 私钥只用于 Decrypt，不对外导出。
type KeyPair struct {
	priv   *rsa.PrivateKey
	pubHex string
}

// GenerateKeyPair 生成新的 RSA 密钥对
//
// 参数：
//   - bits: 密钥大小（位），范围 [1024, 8192]
//   - src: 随机源，nil 时使用 crypto/rand
func GenerateKeyPair(bits int, src io.Reader) (*KeyPair, error) {
	if bits < RSAMinKeySize {
		return nil, fmt.Errorf("%w: RSA key size must be at least %d bits", ErrInvalidKeySize, RSAMinKeySize)
	}
	if bits > RSAMaxKeySize {
		return nil, fmt.Errorf("%w: RSA key size must be at most %d bits", ErrInvalidKeySize, RSAMaxKeySize)
	}
	if src == nil {
		src = rand.Reader
	}

	priv, err := rsa.GenerateKey(src, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return newKeyPair(priv)
}

func newKeyPair(priv *rsa.PrivateKey) (*KeyPair, error) {
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return &KeyPair{priv: priv, pubHex: hex.EncodeToString(der)}, nil
}

// PublicKeyHex 返回 hex 编码的 PKIX DER 公钥
func (k *KeyPair) PublicKeyHex() string {
	return k.pubHex
}

// Bits 返回模长（位）
func (k *KeyPair) Bits() int {
	return k.priv.N.BitLen()
}

// MaxPlaintext 返回本密钥可加密的最大明文长度
func (k *KeyPair) MaxPlaintext() int {
	return MaxPlaintext(k.priv.Size() * 8)
}

// Decrypt 使用实例私钥解密 OAEP 密文
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	if k == nil || k.priv == nil {
		return nil, ErrNilPrivateKey
	}
	plain, err := rsa.DecryptOAEP(sha1.New(), nil, k.priv, ciphertext, nil) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}

// ============================================================================
//                              无状态加密
// ============================================================================

// Encrypt 使用对端 hex 公钥加密已序列化的字节
//
// OAEP 填充限制明文长度为 keyBytes - 2*hashLen - 2，
// 1024 位密钥约 86 字节，只适合短控制消息。
func Encrypt(plaintext []byte, peerPublicKeyHex string) ([]byte, error) {
	pub, err := ParsePublicKeyHex(peerPublicKeyHex)
	if err != nil {
		return nil, err
	}
	if limit := MaxPlaintext(pub.Size() * 8); len(plaintext) > limit {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPlaintextTooLarge, len(plaintext), limit)
	}
	out, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plaintext, nil) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return out, nil
}

// ParsePublicKeyHex 解析 hex 编码的 PKIX DER 公钥
func ParsePublicKeyHex(s string) (*rsa.PublicKey, error) {
	if s == "" {
		return nil, ErrNilPublicKey
	}
	if pub, ok := publicKeys.Get(s); ok {
		return pub, nil
	}

	der, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	if pub.N.BitLen() < RSAMinKeySize {
		return nil, fmt.Errorf("%w: RSA key too small", ErrInvalidPublicKey)
	}

	publicKeys.Add(s, pub)
	return pub, nil
}

// MaxPlaintext 返回指定模长下 OAEP(SHA-1) 的最大明文长度
func MaxPlaintext(bits int) int {
	n := bits/8 - 2*oaepHashLen - 2
	if n < 0 {
		return 0
	}
	return n
}
