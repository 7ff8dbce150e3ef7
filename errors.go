package stmp

import (
	"errors"

	"github.com/bRuttaZz/stmp/internal/core/dispatcher"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyRunning Run 已在运行
	ErrAlreadyRunning = errors.New("stmp: server already running")

	// ────────────────────────────────────────────────────────────────────────
	// 发送错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrUnknownPeer 节点不在目录中
	ErrUnknownPeer = errors.New("stmp: unknown peer")

	// ErrNoPublicKey 节点公钥未知，无法加密
	ErrNoPublicKey = errors.New("stmp: peer public key unknown")

	// ────────────────────────────────────────────────────────────────────────
	// 注册错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNilHandler 回调为 nil
	ErrNilHandler = dispatcher.ErrNilHandler

	// ErrInvalidNamespace 命名空间为空
	ErrInvalidNamespace = dispatcher.ErrInvalidNamespace
)
