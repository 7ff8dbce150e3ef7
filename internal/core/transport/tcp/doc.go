// Package tcp 实现每条消息一个连接的 TCP 传输
//
// 发送方拨号、写入完整一帧、等待对端确认后关闭连接；接收方每次 Read
// 接受一个连接，按长度前缀读完一帧，回写 "ack" 并关闭。
//
// 连接被拒、超时、重置在 Send 内部记录警告并返回 false。
package tcp
