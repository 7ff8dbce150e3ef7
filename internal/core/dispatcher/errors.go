package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrNilHandler 回调为 nil
	ErrNilHandler = errors.New("dispatcher: nil handler")

	// ErrInvalidNamespace 命名空间为空
	ErrInvalidNamespace = errors.New("dispatcher: invalid namespace")
)

// PanicError 回调 panic 转换成的错误
type PanicError struct {
	Stage string
	Value any
}

// Error 实现 error 接口
func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatcher: %s panic: %v", e.Stage, e.Value)
}
