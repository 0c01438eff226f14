package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_CoalescesRepeatedCalls(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs atomic.Int32
	var last atomic.Value
	for _, v := range []string{"a", "ab", "abc"} {
		v := v
		s.Schedule("tab", 30*time.Millisecond, func() {
			runs.Add(1)
			last.Store(v)
		})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, "abc", last.Load())
	assert.False(t, s.Pending("tab"))
}

func TestSchedule_KeysAreIndependent(t *testing.T) {
	s := New()
	defer s.Stop()

	var a, b atomic.Int32
	s.Schedule("a", 20*time.Millisecond, func() { a.Add(1) })
	s.Schedule("b", 20*time.Millisecond, func() { b.Add(1) })
	// Rescheduling b must not delay a.
	time.Sleep(10 * time.Millisecond)
	s.Schedule("b", 100*time.Millisecond, func() { b.Add(1) })

	require.Eventually(t, func() bool { return a.Load() == 1 }, 80*time.Millisecond, 2*time.Millisecond)
	assert.Equal(t, int32(0), b.Load())
	assert.True(t, s.Pending("b"))
}

func TestCancel(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs atomic.Int32
	s.Schedule("k", 20*time.Millisecond, func() { runs.Add(1) })
	assert.True(t, s.Cancel("k"))
	assert.False(t, s.Cancel("k"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestStop_CancelsAllAndIgnoresLaterSchedules(t *testing.T) {
	s := New()
	var runs atomic.Int32
	s.Schedule("a", 20*time.Millisecond, func() { runs.Add(1) })
	s.Schedule("b", 20*time.Millisecond, func() { runs.Add(1) })
	require.Equal(t, 2, s.Len())

	s.Stop()
	s.Schedule("c", time.Millisecond, func() { runs.Add(1) })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
	assert.Equal(t, 0, s.Len())
}
