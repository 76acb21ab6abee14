package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_RunsWhenDue(t *testing.T) {
	s := NewManualScheduler()
	var ran []string

	s.AfterFunc(100*time.Millisecond, func() { ran = append(ran, "late") })
	s.AfterFunc(50*time.Millisecond, func() { ran = append(ran, "early") })
	assert.Equal(t, 2, s.Pending())

	s.Advance(49 * time.Millisecond)
	assert.Empty(t, ran)

	s.Advance(1 * time.Millisecond)
	assert.Equal(t, []string{"early"}, ran)

	s.Advance(time.Second)
	assert.Equal(t, []string{"early", "late"}, ran)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 2, s.Fired())
}

func TestManualScheduler_Stop(t *testing.T) {
	s := NewManualScheduler()
	ran := false

	timer := s.AfterFunc(10*time.Millisecond, func() { ran = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports false")

	s.Advance(time.Second)
	assert.False(t, ran)
	assert.Equal(t, 0, s.Fired())
}

func TestManualScheduler_StopAfterRun(t *testing.T) {
	s := NewManualScheduler()
	timer := s.AfterFunc(0, func() {})
	s.Advance(0)
	assert.False(t, timer.Stop())
}
