//go:build unix

// Package statusprinter implements the one-shot status mode: a single
// liveness probe classified into one of three literal lines, per spec §4.7.
package statusprinter

import (
	"fmt"
	"io"
	"time"

	"github.com/ericpruitt/hupmon/internal/prober"
)

const (
	lineUnknown = "DEVICE_STATUS_UNKNOWN"
	lineOffline = "DEVICE_OFFLINE"
	lineOnline  = "DEVICE_ONLINE"
)

// Print probes ttyFd once and writes the corresponding status line to w,
// followed by a newline. A UNKNOWN result still prints
// DEVICE_STATUS_UNKNOWN and a diagnostic to diag, but is not itself an
// error: per spec §6 ("0 on successful one-shot") and the §9 Open
// Question's resolution ("return 0 on successful print and non-zero on
// write error"), Print returns a non-nil error only when writing the
// status line itself fails, exactly as original_source/hupmon.c's
// print_tty_status does for all three device states.
func Print(w io.Writer, diag io.Writer, ttyFd int, reply time.Duration) error {
	result, probeErr := prober.Probe(ttyFd, reply)

	line := lineOfState(result.State)

	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("statusprinter: write: %w", err)
	}

	if f, ok := w.(interface{ Sync() error }); ok {
		_ = f.Sync()
	}

	if result.State == prober.Unknown {
		if probeErr != nil {
			fmt.Fprintf(diag, "statusprinter: probe: %s\n", probeErr)
		} else {
			fmt.Fprintln(diag, "statusprinter: probe returned unknown device state")
		}
	}

	return nil
}

func lineOfState(state prober.DeviceState) string {
	switch state {
	case prober.Offline:
		return lineOffline
	case prober.Online:
		return lineOnline
	default:
		return lineUnknown
	}
}
