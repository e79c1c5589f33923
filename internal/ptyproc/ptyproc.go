//go:build unix

// Package ptyproc owns pseudo-terminal pair allocation, child process spawn,
// and the exit-status decode, per spec §4.3. Unlike a generic PTY-backed
// process manager, the slave side here must inherit the controlling
// terminal's *original* (non-raw) termios and window size so the wrapped
// command sees a normal terminal — the wrapper alone runs in raw mode.
package ptyproc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/ericpruitt/hupmon/internal/termstate"
)

// SpawnError wraps a failure to exec the child before it replaces the
// forked image, carrying the exit code spec §4.2/§4.3 assign to it: 127
// when the binary could not be found on PATH, 126 when it was found but
// could not be executed (permission, exec format, etc.), mirroring
// original_source/hupmon.c:73,78,486-495.
type SpawnError struct {
	Code int
	Err  error
}

func (e *SpawnError) Error() string { return e.Err.Error() }
func (e *SpawnError) Unwrap() error { return e.Err }

// spawnExitCode classifies a cmd.Start failure into the shell-convention
// exit code a caller should report.
func spawnExitCode(err error) int {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return 127
	}
	return 126
}

// ChildHandle is the proxy's view of the spawned command: a PTY master and
// the underlying *exec.Cmd needed to wait on it.
type ChildHandle struct {
	cmd    *exec.Cmd
	Master *os.File
}

// Start allocates a PTY pair, applies termios and window size to the slave
// half, and execs argv[0] with argv[1:] attached to it as its controlling
// terminal. The child inherits termios and winsize as captured by the
// caller (the original, non-raw state of the wrapper's own controlling
// terminal), not creack/pty's defaults.
//
// On failure to exec, Start returns a *SpawnError carrying 127 if the
// binary could not be found on PATH, else 126, mirroring a shell's
// convention.
func Start(argv []string, termios unix.Termios, winsize unix.Winsize) (*ChildHandle, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("ptyproc: empty command")
	}

	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("pty.Open: %w", err)
	}
	defer slave.Close()

	if err := termstate.SetWinsize(int(slave.Fd()), winsize); err != nil {
		master.Close()
		return nil, err
	}
	if err := applyTermios(int(slave.Fd()), termios); err != nil {
		master.Close()
		return nil, err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		master.Close()
		return nil, &SpawnError{Code: spawnExitCode(err), Err: err}
	}

	return &ChildHandle{cmd: cmd, Master: master}, nil
}

// Pid returns the child's process ID, used for SIGHUP/SIGWINCH delivery.
func (h *ChildHandle) Pid() int {
	return h.cmd.Process.Pid
}

// Signal delivers sig to the child process.
func (h *ChildHandle) Signal(sig syscall.Signal) error {
	return h.cmd.Process.Signal(sig)
}

// Wait reaps the child and decodes its exit status per spec §4.2/§4.3:
// normal exit yields the low 8 bits (0-255), signal death yields
// 128+signum. Errors other than a non-zero exit status are returned
// unmodified.
func (h *ChildHandle) Wait() (exitCode int, err error) {
	waitErr := h.cmd.Wait()
	if waitErr == nil {
		return 0, nil
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return -1, waitErr
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return -1, waitErr
	}

	if status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return status.ExitStatus(), nil
}

// applyTermios pushes termios onto fd using TCSETS-equivalent semantics
// (flush, matching the original's behavior of configuring a slave that has
// never been read from or written to).
func applyTermios(fd int, termios unix.Termios) error {
	return unix.IoctlSetTermios(fd, tcsetsFlush, &termios)
}
