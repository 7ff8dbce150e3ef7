// Package udp 实现基于 IPv4 多播的 UDP 传输
//
// 发送默认投递到多播组 group:port，也可指定单播地址。接收端绑定 :port，
// 复用地址后加入多播组，因此同一主机可以运行多个实例。
//
// 数据报即一帧，不做分片；发送是尽力而为的。
package udp
