//go:build !unix

package sockopt

func setReuse(_ uintptr, reusePort bool) error {
	if reusePort {
		logger.Warn("当前平台不支持 SO_REUSEPORT")
	}
	return nil
}
