package wire

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrShortPrefix 长度前缀不足 6 字节
	ErrShortPrefix = errors.New("wire: short size prefix")

	// ErrFrameTooLarge 声明的帧长度超过上限
	ErrFrameTooLarge = errors.New("wire: frame too large")

	// ErrHeaderTooLarge 头部超过 uint16 可表示范围
	ErrHeaderTooLarge = errors.New("wire: header too large")

	// ErrTruncated 实际数据短于前缀声明的长度
	ErrTruncated = errors.New("wire: truncated frame")

	// ErrMalformedHeader 头部无法解析或缺少必填字段
	ErrMalformedHeader = errors.New("wire: malformed header")

	// ErrMalformedBody 消息体无法解析
	ErrMalformedBody = errors.New("wire: malformed body")

	// ErrDecrypt 消息体解密失败
	ErrDecrypt = errors.New("wire: body decrypt failed")

	// ErrEncrypt 消息体加密失败
	ErrEncrypt = errors.New("wire: body encrypt failed")

	// ErrNoKeys 编解码器没有密钥对
	ErrNoKeys = errors.New("wire: codec has no key pair")
)

// 解码阶段
const (
	StagePrefix = "prefix"
	StageHeader = "header"
	StageBody   = "body"
)

// DecodeError 解码错误，携带失败阶段
type DecodeError struct {
	Stage string // 失败阶段
	Err   error  // 原始错误
}

// Error 实现 error 接口
func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode %s: %v", e.Stage, e.Err)
}

// Unwrap 支持 errors.Is / errors.As
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(stage string, sentinel error, cause error) *DecodeError {
	if cause == nil {
		return &DecodeError{Stage: stage, Err: sentinel}
	}
	return &DecodeError{Stage: stage, Err: fmt.Errorf("%w: %v", sentinel, cause)}
}
