package peerstore

import "errors"

var (
	// ErrNotFound 节点不存在
	ErrNotFound = errors.New("peerstore: peer not found")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("peerstore: invalid config")
)
