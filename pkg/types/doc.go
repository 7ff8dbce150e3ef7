// Package types 定义 stmp 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 stmp 内部包。
//
// # 文件组织
//
//   - header.go  - Header 数据包头部（固定字段 + 扩展字段）
//   - packet.go  - Packet 交付给应用的入站数据包, Protocol
//   - peer.go    - Peer 节点目录记录
//   - events.go  - EvtPeerListUpdated 节点列表变化事件
package types
