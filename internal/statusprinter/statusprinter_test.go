//go:build unix

package statusprinter

import (
	"bytes"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintOnline(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = master.Write([]byte("\x1b[1;1R"))
	}()

	var out, diag bytes.Buffer
	err = Print(&out, &diag, int(slave.Fd()), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "DEVICE_ONLINE\n", out.String())
	assert.Empty(t, diag.String())
}

func TestPrintOffline(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	var out, diag bytes.Buffer
	err = Print(&out, &diag, int(slave.Fd()), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "DEVICE_OFFLINE\n", out.String())
}

func TestPrintUnknownStillExitsClean(t *testing.T) {
	// An invalid fd makes the probe's termstate.Save fail, yielding an
	// Unknown result with a non-nil probe error; Print must still report
	// success since the status line itself was written.
	const badFd = -1

	var out, diag bytes.Buffer
	err := Print(&out, &diag, badFd, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "DEVICE_STATUS_UNKNOWN\n", out.String())
	assert.NotEmpty(t, diag.String())
}
