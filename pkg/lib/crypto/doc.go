// Package crypto 提供 stmp 的非对称加密工具
//
// 每个服务实例在构造时生成一对 RSA 密钥（默认 1024 位）。
// 公钥以 PKIX DER + hex 的形式随头部发出，对端用它加密短控制消息；
// 解密只能由持有私钥的实例完成。
//
// # 快速开始
//
//	kp, err := crypto.GenerateKeyPair(crypto.RSADefaultKeySize, nil)
//
//	// 对端：用 hex 公钥加密已序列化的字节
//	ct, err := crypto.Encrypt([]byte(`{"msg":"hi"}`), kp.PublicKeyHex())
//
//	// 本端：私钥解密
//	pt, err := kp.Decrypt(ct)
//
// # 限制
//
// RSA-OAEP(SHA-1) 的明文上限为 keyBytes - 42。1024 位密钥约 86 字节，
// 超限时 Encrypt 返回 ErrPlaintextTooLarge。
package crypto
