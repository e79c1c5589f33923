//go:build linux

package termstate

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios      = unix.TCGETS
	ioctlSetTermiosDrain = unix.TCSETSW
	ioctlSetTermiosFlush = unix.TCSETSF
	ioctlFlush           = unix.TCFLSH
	flushBoth            = unix.TCIOFLUSH
	ioctlDrain           = unix.TCSBRK
	drainArg             = 1
)
