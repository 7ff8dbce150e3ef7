// Package peerstore 实现局域网节点目录
//
// 目录以发送方 IP 为键。每个通过自会话过滤的入站数据包都会用当前时间
// 整体替换该 IP 的记录；清理循环按 TTL 移除长时间未出现的节点。
//
// # 更新通知
//
// 新 IP 出现时通知 (newPeer, nil)；一轮清理移除节点时通知一次
// (nil, removed)。回调在锁外同步执行，配置了事件总线时同时发射
// *types.EvtPeerListUpdated。
//
// # 并发安全
//
// Directory 的所有方法都可并发调用。
package peerstore
