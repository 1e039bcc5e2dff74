package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fired(t Timer) bool {
	select {
	case <-t.C():
		return true
	default:
		return false
	}
}

func TestMockTimer(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMock(start)

	timer := m.NewTimer(100 * time.Millisecond)
	m.Advance(99 * time.Millisecond)
	assert.False(t, fired(timer))

	m.Advance(time.Millisecond)
	assert.True(t, fired(timer))
	assert.Equal(t, 100*time.Millisecond, m.Since(start))

	// fires once until re-armed
	m.Advance(time.Second)
	assert.False(t, fired(timer))

	assert.False(t, timer.Reset(50*time.Millisecond))
	m.Advance(50 * time.Millisecond)
	assert.True(t, fired(timer))
}

func TestMockTimerStop(t *testing.T) {
	m := NewMock(time.Unix(0, 0))
	timer := m.NewTimer(time.Millisecond)

	assert.True(t, timer.Stop())
	m.Advance(time.Second)
	assert.False(t, fired(timer))
	assert.False(t, timer.Stop())
}

func TestRealTimer(t *testing.T) {
	var c Clock = Real{}
	timer := c.NewTimer(time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	assert.Greater(t, c.Since(c.Now().Add(-time.Second)), time.Duration(0))
}
