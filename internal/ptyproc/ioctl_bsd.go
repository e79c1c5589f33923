//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package ptyproc

import "golang.org/x/sys/unix"

const tcsetsFlush = unix.TIOCSETAF
