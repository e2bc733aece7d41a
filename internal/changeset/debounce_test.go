package changeset

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	assert.Equal(t, int32(0), calls.Load(), "leading edge is suppressed")
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_Flush(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func() { calls.Add(1) })
	defer d.Stop()

	d.Flush()
	assert.Equal(t, int32(0), calls.Load(), "nothing pending")

	d.Trigger()
	d.Trigger()
	d.Flush()
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_StopDropsPendingCall(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Trigger()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebouncer_ZeroWaitIsSynchronous(t *testing.T) {
	calls := 0
	d := NewDebouncer(0, func() { calls++ })
	d.Trigger()
	d.Trigger()
	assert.Equal(t, 2, calls)
}
