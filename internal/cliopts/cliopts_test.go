package cliopts

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsBelowMinimumReply(t *testing.T) {
	_, err := Parse([]string{"-r", "0.009", "-h", "cat"}, "hupmon", io.Discard)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestParseRejectsBelowMinimumTimeout(t *testing.T) {
	_, err := Parse([]string{"-t", "0.999", "-h", "cat"}, "hupmon", io.Discard)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestParseAcceptsMinimumBoundaries(t *testing.T) {
	opts, err := Parse([]string{"-r", "0.01", "-t", "1", "-h", "cat"}, "hupmon", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, opts.Reply)
	assert.Equal(t, 1*time.Second, opts.Timeout)
}

func TestParseDefaultsWhenUnset(t *testing.T) {
	opts, err := Parse([]string{"-h", "cat"}, "hupmon", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, defaultReply, opts.Reply)
	assert.Equal(t, defaultTimeout, opts.Timeout)
}

func TestParseOneShotForbidsCommand(t *testing.T) {
	_, err := Parse([]string{"-1", "cat"}, "hupmon", io.Discard)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestParseWrapRequiresCommand(t *testing.T) {
	_, err := Parse([]string{"-h"}, "hupmon", io.Discard)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestParseMutuallyExclusiveModes(t *testing.T) {
	_, err := Parse([]string{"-1", "-f"}, "hupmon", io.Discard)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestParseFlowControlDisablesTimeout(t *testing.T) {
	opts, err := Parse([]string{"-f", "cat"}, "hupmon", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ModeFlowControl, opts.Mode)
	assert.True(t, opts.Timeout < 0)
}

func TestParseStopsAtFirstNonOption(t *testing.T) {
	opts, err := Parse([]string{"-h", "cat", "-r", "0.5"}, "hupmon", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "-r", "0.5"}, opts.Argv)
}

func TestParseHelp(t *testing.T) {
	var out writeRecorder
	_, err := Parse([]string{"--help"}, "hupmon", &out)
	require.Error(t, err)
	assert.True(t, IsHelpRequested(err))
	assert.Contains(t, out.String(), "Usage:")
}

type writeRecorder struct {
	data []byte
}

func (w *writeRecorder) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *writeRecorder) String() string { return string(w.data) }
