//go:build unix

// Package prober implements the ANSI Cursor Position Report liveness probe:
// raw-mode write-then-read against a terminal descriptor, validated by a
// table-driven state machine, under a deadline that XOFF can extend.
package prober

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ericpruitt/hupmon/internal/clock"
	"github.com/ericpruitt/hupmon/internal/termstate"
)

// DeviceState is the outcome of a probe.
type DeviceState int

const (
	// Unknown denotes an I/O error while probing.
	Unknown DeviceState = iota
	// Offline denotes deadline expiry with no response.
	Offline
	// Online denotes reception of any non-control byte during probing.
	Online
)

func (s DeviceState) String() string {
	switch s {
	case Unknown:
		return "UNKNOWN"
	case Offline:
		return "OFFLINE"
	case Online:
		return "ONLINE"
	default:
		return "INVALID"
	}
}

// Result is the outcome of a single probe. Reply holds any stray bytes
// (ESC and non-control bytes) captured that did not complete a valid CPR
// sequence and
// must be forwarded to the child (see spec §4.1 step 4); it is empty on a
// full CPR match or on Offline/Unknown.
type Result struct {
	State DeviceState
	Reply []byte
}

// cprRequest is the literal 4-byte CPR request: ESC [ 6 n.
var cprRequest = []byte{0x1b, '[', '6', 'n'}

const xoff = 0x13

// xoffExtension is the amount by which an embedded XOFF (with IXOFF set)
// extends the probe deadline, per spec §4.1 step 3.
const xoffExtension = 100 * time.Millisecond

// Probe issues a CPR request on ttyFd and waits up to reply for a
// syntactically valid response, per spec §4.1. It saves and restores the
// terminal's termios around the raw-mode probe.
func Probe(ttyFd int, reply time.Duration) (Result, error) {
	saved, err := termstate.Save(ttyFd)
	if err != nil {
		return Result{State: Unknown}, err
	}

	if err := termstate.SetRaw(ttyFd, saved.Termios()); err != nil {
		_ = saved.Restore()
		return Result{State: Unknown}, err
	}

	result, probeErr := probeBody(ttyFd, reply, saved.IXOFFEnabled())

	if restoreErr := saved.Restore(); restoreErr != nil && probeErr == nil {
		probeErr = restoreErr
	}

	return result, probeErr
}

func probeBody(ttyFd int, reply time.Duration, ixoff bool) (Result, error) {
	if _, err := unix.Write(ttyFd, cprRequest); err != nil {
		return Result{State: Unknown}, err
	}
	if err := termstate.Drain(ttyFd); err != nil {
		return Result{State: Unknown}, err
	}

	deadline := clock.NewDeadline(reply)

	var step validatorStep
	var capture []byte
	var buf [1]byte

	for {
		pollFds := []unix.PollFd{{Fd: int32(ttyFd), Events: unix.POLLIN}}

		n, err := unix.Poll(pollFds, deadline.RemainingMillis())
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return Result{State: Unknown}, err
		}

		if n == 0 {
			if deadline.Expired() {
				if len(capture) == 0 {
					return Result{State: Offline}, nil
				}
				return Result{State: Online, Reply: capture}, nil
			}
			continue
		}

		if pollFds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
			continue
		}

		read, err := unix.Read(ttyFd, buf[:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return Result{State: Unknown}, err
		}
		if read == 0 {
			return Result{State: Unknown}, errTTYClosed
		}

		b := buf[0]

		if isControl(b) && b != 0x1b {
			if b == xoff && ixoff {
				deadline = deadline.Extend(xoffExtension)
			}
			continue
		}

		capture = append(capture, b)

		next, valid, complete := feed(step, b)
		if !valid {
			return Result{State: Online, Reply: capture}, nil
		}
		if complete {
			return Result{State: Online}, nil
		}
		step = next
	}
}

var errTTYClosed = errors.New("prober: terminal closed during probe")
