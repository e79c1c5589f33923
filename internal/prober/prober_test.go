//go:build unix

package prober

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericpruitt/hupmon/internal/termstate"
)

// These tests drive the prober against one side of a real PTY pair, with
// the test acting as the "peer" terminal emulator on the other side,
// mirroring the end-to-end scenarios in the original design.

func TestProbeRespondsOnline(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = master.Write([]byte("\x1b[24;80R"))
	}()

	result, err := Probe(int(slave.Fd()), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Online, result.State)
	assert.Empty(t, result.Reply)
}

func TestProbeSilentTerminalIsOffline(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	result, err := Probe(int(slave.Fd()), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Offline, result.State)
	assert.Empty(t, result.Reply)
}

func TestProbeTransientNoiseIsOnlineWithCapture(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _ = master.Write([]byte("?"))
	}()

	result, err := Probe(int(slave.Fd()), 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, Online, result.State)
	assert.Equal(t, []byte("?"), result.Reply)
}

// TestProbeXOFFExtendsDeadline exercises the spec §8 round-trip law: an
// embedded XOFF before the CPR reply, with IXOFF set on the probed
// terminal, extends the deadline by xoffExtension rather than letting the
// probe time out. The reply is timed to land after the original deadline
// would have expired but within the extended one, so the test fails back
// to Offline if the extension doesn't fire.
func TestProbeXOFFExtendsDeadline(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	require.NoError(t, termstate.SetIXOFF(int(slave.Fd()), true))

	const reply = 50 * time.Millisecond

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = master.Write([]byte{xoff})

		time.Sleep(reply) // past the original (un-extended) deadline
		_, _ = master.Write([]byte("\x1b[1;1R"))
	}()

	result, err := Probe(int(slave.Fd()), reply)
	require.NoError(t, err)
	assert.Equal(t, Online, result.State)
	assert.Empty(t, result.Reply)
}
