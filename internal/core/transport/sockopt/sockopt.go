// Package sockopt 提供监听套接字的复用选项
package sockopt

import (
	"syscall"

	"github.com/bRuttaZz/stmp/pkg/lib/log"
)

var logger = log.Logger("core/transport/sockopt")

// Control 返回可用于 net.ListenConfig.Control 的回调
//
// 总是设置 SO_REUSEADDR；reusePort 为 true 时尽力设置 SO_REUSEPORT，
// 平台不支持时只记录警告。
func Control(reusePort bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = setReuse(fd, reusePort)
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
