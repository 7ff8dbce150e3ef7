// Package interfaces 定义 stmp 的公共接口
//
//   - transport.go - Transport / Session 传输层契约（UDP、TCP 各一份实现）
//   - eventbus.go  - EventBus 类型化事件发布订阅
//
// 接口只依赖 pkg/types，实现位于 internal/core 下；
// 测试可注入内存实现替换真实网络。
package interfaces
