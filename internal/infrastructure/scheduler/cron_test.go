package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunsJobImmediately(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	s := NewIntervalScheduler(30*time.Second, nil)

	require.NoError(t, s.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		fired <- struct{}{}
	}))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}

func TestStartTwiceIsNoop(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(30*time.Second, nil)
	job := func(time.Time) { runs.Add(1) }

	require.NoError(t, s.Start(context.Background(), job))
	require.NoError(t, s.Start(context.Background(), job))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestJobRepeatsOnInterval(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(time.Second, nil)
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(1) }))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
}

func TestContextCancelStopsScheduler(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(30*time.Second, nil)
	require.NoError(t, s.Start(ctx, func(time.Time) {}))

	cancel()
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cron == nil
	}, time.Second, 5*time.Millisecond)
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Second, nil)
	assert.NoError(t, s.Stop(context.Background()))
}
