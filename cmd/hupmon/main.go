//go:build unix

// Package main is the entry point for hupmon, a wrapper that detects
// hangups on serial-attached terminals lacking hardware carrier-detect and
// bridges software flow control for subordinate programs that don't
// implement it.
package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/ericpruitt/hupmon/internal/cliopts"
	"github.com/ericpruitt/hupmon/internal/logger"
	"github.com/ericpruitt/hupmon/internal/proxy"
	"github.com/ericpruitt/hupmon/internal/statusprinter"
	"github.com/ericpruitt/hupmon/internal/termstate"
)

const (
	exitUsage    = 2
	exitInternal = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	progName := cliopts.ProgName(os.Args[0])

	opts, err := cliopts.Parse(os.Args[1:], progName, os.Stdout)
	if err != nil {
		if cliopts.IsHelpRequested(err) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	log := logger.Default()
	defer log.Sync()

	switch opts.Mode {
	case cliopts.ModeOneShot:
		return runOneShot(opts)
	default:
		return runWrap(opts, progName, log)
	}
}

func runOneShot(opts *cliopts.Options) int {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "hupmon: standard input is not a terminal")
		return exitUsage
	}

	if err := statusprinter.Print(os.Stdout, os.Stderr, int(os.Stdin.Fd()), opts.Reply); err != nil {
		fmt.Fprintln(os.Stderr, "hupmon:", err)
		return exitInternal
	}
	return 0
}

func runWrap(opts *cliopts.Options, progName string, log *logger.Logger) int {
	if err := cliopts.CheckSameTTY(); err != nil {
		fmt.Fprintln(os.Stderr, progName+":", err)
		return exitUsage
	}

	ttyFd := int(os.Stdin.Fd())

	ttyPath, err := os.Readlink(fmt.Sprintf("/proc/self/fd/%d", ttyFd))
	if err != nil {
		ttyPath = "/dev/tty"
	}
	cliopts.SetChildEnvironment(ttyPath)

	exitCode, err := proxy.Run(ttyFd, opts.Argv, proxy.Options{
		Timeout: opts.Timeout,
		Reply:   opts.Reply,
	})
	if err != nil {
		log.WithError(err).Error("wrap session ended with an error")
	}

	if flushErr := termstate.Flush(ttyFd); flushErr != nil {
		log.WithError(flushErr).Warn("failed to flush terminal queues on exit")
	}

	if exitCode < 0 {
		return exitInternal
	}
	return exitCode
}
