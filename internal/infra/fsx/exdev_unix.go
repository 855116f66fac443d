//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// os.LinkError 与 afero 包装的错误都实现了 Unwrap。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
