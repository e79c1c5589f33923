//go:build unix

package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemuxStripsXonXoffWhenIXOFFActive(t *testing.T) {
	transmitOK := true
	buf := []byte{'A', xoff, 'B', 'C', xon, 'D'}
	out := demux(buf, true, &transmitOK)
	assert.Equal(t, []byte("ABCD"), out)
	assert.True(t, transmitOK)
}

func TestDemuxLastFlowControlByteWins(t *testing.T) {
	transmitOK := true
	buf := []byte{xoff, xon, xoff}
	demux(buf, true, &transmitOK)
	assert.False(t, transmitOK)
}

func TestDemuxPassthroughWhenIXOFFInactive(t *testing.T) {
	transmitOK := true
	buf := []byte{'A', xoff, 'B'}
	out := demux(buf, false, &transmitOK)
	assert.Equal(t, buf, out)
	assert.True(t, transmitOK)
}

func TestDemuxEmptyBuffer(t *testing.T) {
	transmitOK := true
	out := demux(nil, true, &transmitOK)
	assert.Empty(t, out)
}
