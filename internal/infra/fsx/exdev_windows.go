package fsx

import (
	"errors"
	"os"
	"syscall"
)

// Windows 上跨卷 rename 返回 ERROR_NOT_SAME_DEVICE（17）。
const errNotSameDevice syscall.Errno = 17

func isEXDEV(err error) bool {
	var le *os.LinkError
	if errors.As(err, &le) {
		err = le.Err
	}
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == errNotSameDevice
}
