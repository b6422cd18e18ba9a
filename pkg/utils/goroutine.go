package utils

import (
	"fmt"
	"runtime/debug"
)

// PanicError 是从 panic 中恢复出来的错误，附带堆栈
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// SafeCall 同步执行 fn，捕获 panic 并转换为 *PanicError
// 使用方式: err := utils.SafeCall(func() error { ... })
func SafeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// SafeGoWithCallback 安全地启动一个 goroutine，支持自定义 panic 处理回调
// 使用方式: utils.SafeGoWithCallback(func() { ... }, func(err *utils.PanicError) { ... })
func SafeGoWithCallback(fn func(), onPanic func(err *PanicError)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if onPanic != nil {
					onPanic(&PanicError{Value: r, Stack: debug.Stack()})
				}
			}
		}()
		fn()
	}()
}
