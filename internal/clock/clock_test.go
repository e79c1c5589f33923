package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeadlineRemainingCountsDown(t *testing.T) {
	d := NewDeadline(50 * time.Millisecond)
	assert.False(t, d.Expired())
	assert.True(t, d.Remaining() > 0)
	assert.True(t, d.Remaining() <= 50*time.Millisecond)
}

func TestDeadlineExpired(t *testing.T) {
	d := NewDeadline(-1 * time.Millisecond)
	assert.True(t, d.Expired())
	assert.Equal(t, time.Duration(0), d.Remaining())
}

func TestDeadlineExtendIsAdditive(t *testing.T) {
	d := NewDeadline(10 * time.Millisecond)
	extended := d.Extend(100 * time.Millisecond)
	assert.True(t, extended.Remaining() > d.Remaining())
	assert.True(t, extended.Remaining() >= 100*time.Millisecond)
}

func TestDeadlineRemainingMillisNeverNegative(t *testing.T) {
	d := NewDeadline(-5 * time.Second)
	assert.Equal(t, 0, d.RemainingMillis())
}
