package crypto

import "errors"

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrNilPrivateKey 私钥为空
	ErrNilPrivateKey = errors.New("crypto: nil private key")

	// ErrNilPublicKey 公钥为空
	ErrNilPublicKey = errors.New("crypto: nil public key")

	// ErrInvalidKeySize 密钥大小无效
	ErrInvalidKeySize = errors.New("crypto: invalid key size")

	// ErrInvalidPublicKey 公钥无效
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrPlaintextTooLarge 明文超过 OAEP 上限
	ErrPlaintextTooLarge = errors.New("crypto: plaintext too large for key")

	// ErrEncrypt 加密失败
	ErrEncrypt = errors.New("crypto: encrypt failed")

	// ErrDecrypt 解密失败
	ErrDecrypt = errors.New("crypto: decrypt failed")
)
