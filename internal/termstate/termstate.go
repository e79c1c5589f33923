//go:build unix

// Package termstate manages scoped acquisition of controlling-terminal
// state: termios attributes and window size. Every exit path that modifies
// a terminal's attributes must restore them, and restoration must never
// clobber an already-pending errno/error from the caller's primary
// failure. This mirrors the teacher's pattern of restoring resources in a
// defer while preserving the first error encountered (see
// cmd/agentctl/main.go's graceful-shutdown sequence in the reference
// corpus), generalized here into an explicit scoped-resource handle per
// the design note in spec.md §9.
package termstate

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Saved is a scoped acquisition of a terminal's original termios and
// window size. Restore must be called exactly once to release it.
type Saved struct {
	fd       int
	termios  unix.Termios
	winsize  unix.Winsize
	restored bool
}

// Save captures the current termios and window size of fd.
func Save(fd int) (*Saved, error) {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("tcgetattr: %w", err)
	}

	winsize, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return nil, fmt.Errorf("ioctl TIOCGWINSZ: %w", err)
	}

	return &Saved{fd: fd, termios: *termios, winsize: *winsize}, nil
}

// Termios returns a copy of the termios captured at Save time.
func (s *Saved) Termios() unix.Termios {
	return s.termios
}

// Winsize returns a copy of the window size captured at Save time.
func (s *Saved) Winsize() unix.Winsize {
	return s.winsize
}

// IXOFFEnabled reports whether the saved termios has input-side XON/XOFF
// flow control enabled, the bit the prober and the proxy consult before
// treating an embedded XOFF as meaningful.
func (s *Saved) IXOFFEnabled() bool {
	return s.termios.Iflag&unix.IXOFF != 0
}

// Restore re-applies the saved termios to the terminal. The first error
// among all restoration attempts is returned; callers invoke Restore from
// a defer and generally only log its result, since by that point a more
// important primary error has usually already been produced (see Restore's
// errno-preservation invariant, spec.md §4.4).
func (s *Saved) Restore() error {
	if s.restored {
		return nil
	}
	s.restored = true
	if err := unix.IoctlSetTermios(s.fd, ioctlSetTermiosDrain, &s.termios); err != nil {
		return fmt.Errorf("tcsetattr restore: %w", err)
	}
	return nil
}

// SetRaw configures fd for raw-mode I/O: no canonical processing, no echo,
// no signal generation from input bytes, no input/output translation. It
// is built from a copy of base (typically the value returned by
// Saved.Termios) rather than mutating the caller's saved copy, mirroring
// glibc's cfmakeraw exactly: disable ICANON/ECHO/ECHONL/ISIG/IEXTEN in
// Lflag, disable IXON/ISTRIP/PARMRK/ICRNL/INLCR/IGNCR/BRKINT/IGNBRK in
// Iflag, disable OPOST in Oflag, set 8-bit characters with no parity in
// Cflag, and set VMIN=1, VTIME=0 so a read blocks until at least one byte
// is available and then returns it without waiting for more. IXOFF is
// deliberately left untouched — cfmakeraw doesn't clear it, and the
// wrap-mode proxy and the CPR prober both need the original terminal's
// IXOFF bit to survive into raw mode to detect embedded XOFF correctly.
func SetRaw(fd int, base unix.Termios) error {
	raw := base

	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermiosFlush, &raw); err != nil {
		return fmt.Errorf("tcsetattr raw: %w", err)
	}
	return nil
}

// SetIXOFF toggles input-side XON/XOFF flow control on fd's current
// termios, leaving every other attribute untouched. Exported for tests that
// need to exercise the XOFF-driven deadline extension against a real PTY.
func SetIXOFF(fd int, enabled bool) error {
	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return fmt.Errorf("tcgetattr: %w", err)
	}

	if enabled {
		termios.Iflag |= unix.IXOFF
	} else {
		termios.Iflag &^= unix.IXOFF
	}

	if err := unix.IoctlSetTermios(fd, ioctlSetTermiosDrain, termios); err != nil {
		return fmt.Errorf("tcsetattr ixoff: %w", err)
	}
	return nil
}

// GetWinsize reads the current window size of fd.
func GetWinsize(fd int) (unix.Winsize, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return unix.Winsize{}, fmt.Errorf("ioctl TIOCGWINSZ: %w", err)
	}
	return *ws, nil
}

// SetWinsize pushes size to fd (used to propagate the controlling
// terminal's dimensions onto the child PTY master).
func SetWinsize(fd int, size unix.Winsize) error {
	if err := unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, &size); err != nil {
		return fmt.Errorf("ioctl TIOCSWINSZ: %w", err)
	}
	return nil
}

// Drain blocks until all output written to fd has been transmitted,
// equivalent to tcdrain(fd). The CPR probe relies on this after writing its
// request so the query reaches the terminal before the poll/read deadline
// starts counting down (original_source/hupmon.c's ping_tty calls tcdrain
// right after the write).
func Drain(fd int) error {
	if err := unix.IoctlSetInt(fd, ioctlDrain, drainArg); err != nil {
		return fmt.Errorf("tcdrain: %w", err)
	}
	return nil
}

// Flush discards any unread input and unwritten output queued on fd,
// equivalent to tcflush(fd, TCIOFLUSH). Used after the proxy returns so
// bytes still in flight don't pollute the next program to use the
// terminal (see original_source/hupmon.c's tcflush call after wrap()).
func Flush(fd int) error {
	return unix.IoctlSetInt(fd, ioctlFlush, flushBoth)
}
