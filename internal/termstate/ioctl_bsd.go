//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package termstate

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios      = unix.TIOCGETA
	ioctlSetTermiosDrain = unix.TIOCSETAW
	ioctlSetTermiosFlush = unix.TIOCSETAF
	ioctlFlush           = unix.TIOCFLUSH
	flushBoth            = 0
	ioctlDrain           = unix.TIOCDRAIN
	drainArg             = 0
)
