//go:build unix

// Package proxy implements the bidirectional I/O proxy between a
// controlling terminal and a child pseudo-terminal: byte forwarding, flow
// control demultiplexing, periodic liveness probing, window-size
// propagation, and guaranteed terminal-state restoration, per spec §4.2.
package proxy

import (
	"errors"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ericpruitt/hupmon/internal/clock"
	"github.com/ericpruitt/hupmon/internal/ptyproc"
	"github.com/ericpruitt/hupmon/internal/prober"
	"github.com/ericpruitt/hupmon/internal/sigwinch"
	"github.com/ericpruitt/hupmon/internal/termstate"
)

const (
	xon  = 0x11
	xoff = 0x13

	readBufSize = 4096
)

// Options configures a Run invocation.
type Options struct {
	// Timeout is the inactivity threshold that drives periodic probing.
	// A negative value disables probing entirely (flow-control-only mode).
	Timeout time.Duration
	// Reply is the CPR reply timeout passed through to the prober.
	Reply time.Duration
}

// Run spawns argv attached to a fresh PTY, forwards bytes between ttyFd and
// the child in both directions, probes the terminal's liveness on
// inactivity, and returns the child's exit code. If the child never ran
// because it could not be found or executed, it returns 127 or 126
// respectively (per spec §4.2/§4.3); -1 is reserved for other internal
// failures that precede spawn (e.g. a termios/PTY setup error).
func Run(ttyFd int, argv []string, opts Options) (exitCode int, err error) {
	bridge := sigwinch.Install()
	defer bridge.Close()

	saved, err := termstate.Save(ttyFd)
	if err != nil {
		return -1, err
	}

	if err := termstate.SetRaw(ttyFd, saved.Termios()); err != nil {
		_ = saved.Restore()
		return -1, err
	}

	defer func() {
		if restoreErr := saved.Restore(); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()

	child, err := ptyproc.Start(argv, saved.Termios(), saved.Winsize())
	if err != nil {
		var spawnErr *ptyproc.SpawnError
		if errors.As(err, &spawnErr) {
			return spawnErr.Code, err
		}
		return -1, err
	}
	defer child.Master.Close()

	loop := &proxyLoop{
		ttyFd:       ttyFd,
		masterFd:    int(child.Master.Fd()),
		child:       child,
		bridge:      bridge,
		transmitOK:  true,
		probingOn:   opts.Timeout >= 0,
		timeout:     opts.Timeout,
		reply:       opts.Reply,
		ixoffSource: saved,
	}

	runErr := loop.run()

	child.Master.Close()
	exitCode, waitErr := child.Wait()
	if waitErr != nil && err == nil {
		err = waitErr
	}
	if runErr != nil && err == nil {
		err = runErr
	}

	return exitCode, err
}

type proxyLoop struct {
	ttyFd    int
	masterFd int
	child    *ptyproc.ChildHandle
	bridge   *sigwinch.Bridge

	transmitOK     bool
	probingOn      bool
	offlineLatched bool
	hupDelivered   bool

	timeout time.Duration
	reply   time.Duration

	ixoffSource *termstate.Saved

	deadline      clock.Deadline
	deadlineArmed bool
}

// run is the event loop described in spec §4.2. It returns nil on a clean
// drain (terminal EOF or child EOF) and a non-nil error only for a
// non-EINTR poll failure.
func (l *proxyLoop) run() error {
	if l.probingOn {
		l.deadline = clock.NewDeadline(l.timeout)
		l.deadlineArmed = true
	}

	readBuf := make([]byte, readBufSize)

	for {
		timeoutMs := -1
		if l.deadlineArmed {
			timeoutMs = l.deadline.RemainingMillis()
		}

		fds := []unix.PollFd{{Fd: int32(l.ttyFd), Events: unix.POLLIN}}
		childIdx := -1
		if l.transmitOK {
			fds = append(fds, unix.PollFd{Fd: int32(l.masterFd), Events: unix.POLLIN})
			childIdx = 1
		}

		n, err := unix.Poll(fds, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				// deadline.Remaining() re-derives from wall-clock time on
				// the next iteration, which satisfies the "subtract
				// elapsed time from the timeout" requirement without a
				// separate counter.
				l.serviceSigwinch()
				continue
			}
			return err
		}

		l.serviceSigwinch()

		if n == 0 {
			if l.deadlineArmed && l.deadline.Expired() {
				if done := l.handleTimeout(); done {
					return nil
				}
			}
			continue
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			count, err := unix.Read(l.ttyFd, readBuf)
			switch {
			case err == unix.EINTR:
				// retried on the next iteration
			case err != nil:
				return nil
			case count == 0:
				return nil
			default:
				l.forwardFromTerminal(readBuf[:count])
				l.resetDeadline()
			}
		}

		if childIdx >= 0 && fds[childIdx].Revents&unix.POLLIN != 0 {
			count, err := unix.Read(l.masterFd, readBuf)
			switch {
			case err == unix.EINTR:
			case err != nil:
				return nil
			case count == 0:
				return nil
			default:
				if _, werr := unix.Write(l.ttyFd, readBuf[:count]); werr != nil {
					return nil
				}
			}
		}

		if (fds[0].Revents&(unix.POLLHUP|unix.POLLERR)) != 0 {
			return nil
		}
		if childIdx >= 0 && (fds[childIdx].Revents&(unix.POLLHUP|unix.POLLERR)) != 0 {
			return nil
		}
	}
}

// handleTimeout runs a liveness probe (or treats the terminal as offline
// when transmission is paused) and latches the offline state. It returns
// false in every case: after an offline latch the deadline is disarmed and
// the loop keeps running only to drain until child or terminal EOF.
func (l *proxyLoop) handleTimeout() bool {
	if l.offlineLatched {
		return false
	}

	var state prober.DeviceState

	if l.transmitOK {
		result, err := prober.Probe(l.ttyFd, l.reply)
		if err != nil {
			state = prober.Unknown
		} else {
			state = result.State
			if len(result.Reply) > 0 {
				// Stray bytes captured mid-probe never contain XON/XOFF
				// (the prober filters all control bytes but ESC before
				// they reach the reply buffer), so they are forwarded
				// verbatim as soon as Probe returns, after it has
				// restored the termios it saved.
				_, _ = unix.Write(l.masterFd, result.Reply)
			}
		}
	} else {
		state = prober.Offline
	}

	switch state {
	case prober.Offline:
		l.offlineLatched = true
		l.deadlineArmed = false
		if !l.hupDelivered {
			_ = l.child.Signal(syscall.SIGHUP)
			l.hupDelivered = true
		}
	case prober.Online, prober.Unknown:
		l.resetDeadline()
	}

	return false
}

func (l *proxyLoop) resetDeadline() {
	if l.probingOn && !l.offlineLatched {
		l.deadline = clock.NewDeadline(l.timeout)
		l.deadlineArmed = true
	}
}

func (l *proxyLoop) serviceSigwinch() {
	if !l.bridge.Pending() {
		return
	}

	size, err := termstate.GetWinsize(l.ttyFd)
	if err == nil {
		_ = termstate.SetWinsize(l.masterFd, size)
		_ = l.child.Signal(syscall.SIGWINCH)
	}

	l.bridge.Clear()
}

// forwardFromTerminal demultiplexes embedded XON/XOFF (when IXOFF is
// active) and writes the remaining bytes to the child.
func (l *proxyLoop) forwardFromTerminal(buf []byte) {
	ixoffActive := l.ixoffSource.IXOFFEnabled()
	data := demux(buf, ixoffActive, &l.transmitOK)
	if len(data) > 0 {
		_, _ = unix.Write(l.masterFd, data)
	}
}

// demux compacts buf in place, stripping XON/XOFF bytes and updating
// *transmitOK as it goes (last XON/XOFF in the buffer wins), per spec
// §4.2's flow-control demultiplexer. When ixoffActive is false the buffer
// passes through unmodified.
func demux(buf []byte, ixoffActive bool, transmitOK *bool) []byte {
	if !ixoffActive {
		return buf
	}

	out := buf[:0]
	for _, b := range buf {
		switch b {
		case xon:
			*transmitOK = true
		case xoff:
			*transmitOK = false
		default:
			out = append(out, b)
		}
	}
	return out
}
