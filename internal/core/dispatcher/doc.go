// Package dispatcher 实现入站数据包的中间件链与命名空间路由
//
// 每个通过解码的数据包先按注册顺序经过全部中间件，再交给注册在其命名空间
// 上的全部处理器（同样按注册顺序）。任一回调返回错误或 panic 只会被记录
// 和计数，不影响后续回调。
//
// 注册返回 Handle，调用 Remove 注销。分发时在读锁下复制回调列表，
// 因此回调内部可以安全地注册或注销。
package dispatcher
