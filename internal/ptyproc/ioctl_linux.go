//go:build linux

package ptyproc

import "golang.org/x/sys/unix"

const tcsetsFlush = unix.TCSETSF
