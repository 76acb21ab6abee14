package debounce_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/costbook/internal/debounce"
	"github.com/roach88/costbook/internal/testutil"
)

const quiet = 400 * time.Millisecond

func TestDebouncer_CoalescesRapidSchedules(t *testing.T) {
	sched := testutil.NewManualScheduler()
	d := debounce.New(quiet, sched)

	var runs []int
	for i := 1; i <= 5; i++ {
		i := i
		d.Schedule(func() { runs = append(runs, i) })
		sched.Advance(quiet / 4)
	}
	assert.Empty(t, runs, "nothing runs inside the quiet window")
	assert.True(t, d.Pending())

	sched.Advance(quiet)
	assert.Equal(t, []int{5}, runs, "only the last task runs")
	assert.False(t, d.Pending())
	assert.Equal(t, 1, sched.Fired())
}

func TestDebouncer_Cancel(t *testing.T) {
	sched := testutil.NewManualScheduler()
	d := debounce.New(quiet, sched)

	ran := false
	d.Schedule(func() { ran = true })
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel(), "nothing left to cancel")

	sched.Advance(time.Minute)
	assert.False(t, ran)
}

func TestDebouncer_Flush(t *testing.T) {
	sched := testutil.NewManualScheduler()
	d := debounce.New(quiet, sched)

	count := 0
	d.Schedule(func() { count++ })
	assert.True(t, d.Flush())
	assert.Equal(t, 1, count)

	sched.Advance(time.Minute)
	assert.Equal(t, 1, count, "flushed task must not run again")
	assert.False(t, d.Flush())
}

func TestDebouncer_RescheduleAfterFire(t *testing.T) {
	sched := testutil.NewManualScheduler()
	d := debounce.New(quiet, sched)

	count := 0
	d.Schedule(func() { count++ })
	sched.Advance(quiet)
	d.Schedule(func() { count++ })
	sched.Advance(quiet)

	assert.Equal(t, 2, count)
}

func TestDebouncer_RealScheduler(t *testing.T) {
	d := debounce.New(20*time.Millisecond, nil)
	assert.Equal(t, 20*time.Millisecond, d.Delay())

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		d.Schedule(func() { count.Add(1) })
	}

	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}
