package systems

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsEveryTaskOnce(t *testing.T) {
	for _, threads := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			s := NewScheduler(threads)
			const n = 200

			for batch := 0; batch < 2; batch++ {
				var counts [n]atomic.Int32
				for i := 0; i < n; i++ {
					s.AddTask(func() {
						counts[i].Add(1)
					})
				}
				require.Equal(t, n, s.Len())
				s.LaunchThreads()
				s.WaitForThreads()

				for i := range counts {
					assert.Equal(t, int32(1), counts[i].Load(), "task %d in batch %d", i, batch)
				}
				assert.Equal(t, 0, s.Len())
			}
		})
	}
}

func TestSchedulerJoinsBeforeReturning(t *testing.T) {
	s := NewScheduler(4)
	var done atomic.Int32
	for i := 0; i < 16; i++ {
		s.AddTask(func() {
			time.Sleep(5 * time.Millisecond)
			done.Add(1)
		})
	}
	s.Run()
	assert.Equal(t, int32(16), done.Load())
}

func TestSchedulerAddAfterLaunchPanics(t *testing.T) {
	s := NewScheduler(2)
	s.AddTask(func() {})
	s.LaunchThreads()
	assert.PanicsWithError(t, ErrTaskAfterLaunch.Error(), func() {
		s.AddTask(func() {})
	})
	s.WaitForThreads()

	// the scheduler accepts tasks again after the join
	assert.NotPanics(t, func() { s.AddTask(func() {}) })
	s.Run()
}

func TestSchedulerEmptyBatch(t *testing.T) {
	s := NewScheduler(3)
	s.Run()
	require.NoError(t, s.Shutdown())
}

func TestResult(t *testing.T) {
	var r Result[string]
	assert.False(t, r.Ready())
	_, err := r.Load()
	assert.ErrorIs(t, err, ErrNoResult)

	s := NewScheduler(2)
	s.AddTask(func() { r.Store("decoded", nil) })
	s.Run()

	v, err := r.Load()
	require.NoError(t, err)
	assert.Equal(t, "decoded", v)
}
