package types

import "time"

// EvtPeerListUpdated 节点列表变化事件
//
// 新节点出现时 New 非空、Removed 为空；
// 清理循环移除节点时 New 为空、Removed 为本轮移除的全部节点。
type EvtPeerListUpdated struct {
	New     *Peer
	Removed []Peer
	Time    time.Time
}

// IsJoin 是否为新节点事件
func (e EvtPeerListUpdated) IsJoin() bool {
	return e.New != nil
}
