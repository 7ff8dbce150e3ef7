//go:build unix

package sockopt

import "golang.org/x/sys/unix"

func setReuse(fd uintptr, reusePort bool) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	if reusePort {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			// 部分内核不支持
			logger.Warn("设置 SO_REUSEPORT 失败", "err", err)
		}
	}
	return nil
}
