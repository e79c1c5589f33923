// Package cliopts parses hupmon's command line: the three invocation modes,
// the reply/inactivity timeouts, and the precondition checks that gate
// wrap mode and one-shot mode, per spec §6.
package cliopts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Mode selects one of hupmon's three mutually exclusive invocation modes.
type Mode int

const (
	// ModeHangup is the default: probe, forward, and SIGHUP on offline.
	ModeHangup Mode = iota
	// ModeFlowControl disables probing; only flow-control demultiplexing
	// and forwarding happen.
	ModeFlowControl
	// ModeOneShot prints a single status line and exits.
	ModeOneShot
)

// Options is the parsed, validated command line.
type Options struct {
	Mode    Mode
	Reply   time.Duration
	Timeout time.Duration
	Argv    []string
}

const (
	defaultReply   = 200 * time.Millisecond
	defaultTimeout = 10 * time.Second
	minReply       = 10 * time.Millisecond
	minTimeout     = 1 * time.Second
)

// usageError is returned for any malformed invocation; its message is
// written to standard error and the process exits 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// IsUsageError reports whether err originated from invalid CLI input.
func IsUsageError(err error) bool {
	_, ok := err.(*usageError)
	return ok
}

const helpText = `Usage: %[1]s [-1|-f|-h] [-r seconds] [-t seconds] [command [args...]]

Modes:
  -1        one-shot status: print the terminal's liveness and exit
  -f        flow-control only: demultiplex XON/XOFF, never probe
  -h        hangup detector (default): probe, forward, SIGHUP on offline

Options:
  -r SECONDS  CPR reply timeout (default 0.200, minimum 0.01)
  -t SECONDS  inactivity threshold between probes (default 10, minimum 1)
  --help      print this message and exit 0
`

// Parse parses args (excluding argv[0]) according to the POSIX convention
// of stopping at the first non-option argument, which becomes the start of
// the wrapped command vector. helpOut receives --help's usage text.
func Parse(args []string, progName string, helpOut io.Writer) (*Options, error) {
	fs := pflag.NewFlagSet(progName, pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	var oneShot, flowOnly, hangup, help bool
	var replyStr, timeoutStr string

	fs.BoolVarP(&oneShot, "one-shot", "1", false, "one-shot status")
	fs.BoolVarP(&flowOnly, "flow-control", "f", false, "flow-control only")
	fs.BoolVarP(&hangup, "hangup", "h", false, "hangup detector")
	fs.StringVarP(&replyStr, "reply", "r", "", "reply timeout in seconds")
	fs.StringVarP(&timeoutStr, "timeout", "t", "", "inactivity timeout in seconds")
	fs.BoolVar(&help, "help", false, "print usage")

	if err := fs.Parse(args); err != nil {
		return nil, &usageError{msg: fmt.Sprintf("%s: %s", progName, err)}
	}

	if help {
		fmt.Fprintf(helpOut, helpText, progName)
		return &Options{Mode: ModeOneShot, Argv: nil}, errHelpRequested
	}

	modeCount := 0
	mode := ModeHangup
	if oneShot {
		modeCount++
		mode = ModeOneShot
	}
	if flowOnly {
		modeCount++
		mode = ModeFlowControl
	}
	if hangup {
		modeCount++
		mode = ModeHangup
	}
	if modeCount > 1 {
		return nil, &usageError{msg: fmt.Sprintf("%s: -1, -f, and -h are mutually exclusive", progName)}
	}

	reply := defaultReply
	if replyStr != "" {
		d, err := parseSeconds(replyStr, minReply)
		if err != nil {
			return nil, &usageError{msg: fmt.Sprintf("%s: -r: %s", progName, err)}
		}
		reply = d
	}

	timeout := defaultTimeout
	if timeoutStr != "" {
		d, err := parseSeconds(timeoutStr, minTimeout)
		if err != nil {
			return nil, &usageError{msg: fmt.Sprintf("%s: -t: %s", progName, err)}
		}
		timeout = d
	}

	argv := fs.Args()

	switch mode {
	case ModeOneShot:
		if len(argv) != 0 {
			return nil, &usageError{msg: fmt.Sprintf("%s: -1 forbids a command", progName)}
		}
	case ModeHangup, ModeFlowControl:
		if len(argv) == 0 {
			return nil, &usageError{msg: fmt.Sprintf("%s: a command is required", progName)}
		}
		if mode == ModeFlowControl {
			timeout = -1 * time.Second
		}
	}

	return &Options{Mode: mode, Reply: reply, Timeout: timeout, Argv: argv}, nil
}

// errHelpRequested signals a successful --help invocation (exit 0), not a
// parsing failure.
var errHelpRequested = &helpRequestedError{}

type helpRequestedError struct{}

func (*helpRequestedError) Error() string { return "help requested" }

// IsHelpRequested reports whether err indicates --help was given.
func IsHelpRequested(err error) bool {
	_, ok := err.(*helpRequestedError)
	return ok
}

func parseSeconds(s string, min time.Duration) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	d := time.Duration(f * float64(time.Second))
	if d < min {
		return 0, fmt.Errorf("%q is below the minimum of %s", s, min)
	}
	return d, nil
}

// ProgName derives the diagnostic program name from argv[0], mirroring the
// original's basename(argv[0]) in unrecognized-option diagnostics.
func ProgName(argv0 string) string {
	return filepath.Base(argv0)
}

// CheckSameTTY verifies standard input and standard output refer to the
// same character device, the wrap-mode precondition from spec §6.
func CheckSameTTY() error {
	in, err := os.Stdin.Stat()
	if err != nil {
		return fmt.Errorf("stat stdin: %w", err)
	}
	out, err := os.Stdout.Stat()
	if err != nil {
		return fmt.Errorf("stat stdout: %w", err)
	}
	if !os.SameFile(in, out) {
		return &usageError{msg: "standard input and standard output must be the same terminal"}
	}
	return nil
}

// SetChildEnvironment exports HUPMON_PID and HUPMON_TTY for the child
// process, per spec §6.
func SetChildEnvironment(ttyPath string) {
	os.Setenv("HUPMON_PID", strconv.Itoa(os.Getpid()))
	os.Setenv("HUPMON_TTY", ttyPath)
}
