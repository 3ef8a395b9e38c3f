package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/infrastructure/scheduler"
)

func TestPollerOnIntervalScheduler(t *testing.T) {
	t.Parallel()

	secondStarted := make(chan struct{})
	release := make(chan struct{})
	fetcher := &funcFetcher{fetch: func(_ context.Context, n int32) (domain.PortfolioStats, error) {
		if n == 2 {
			close(secondStarted)
			<-release
		}
		return statsWithLoans(int(n)), nil
	}}
	p := NewStatsPoller(StatsPollerDeps{
		Fetcher: fetcher,
		Driver:  scheduler.NewIntervalScheduler(time.Second, nil),
	})

	require.NoError(t, p.Start(context.Background()))
	assert.Eventually(t, func() bool {
		snap := p.Snapshot()
		return snap != nil && snap.Stats.TotalActiveLoans == 1
	}, time.Second, 10*time.Millisecond, "first poll runs on start")

	select {
	case <-secondStarted:
	case <-time.After(3 * time.Second):
		t.Fatal("interval tick did not poll")
	}

	// At least one more tick lands while the second fetch is still running.
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, int32(2), fetcher.calls.Load())

	close(release)
	assert.Eventually(t, func() bool {
		snap := p.Snapshot()
		return snap != nil && snap.Stats.TotalActiveLoans >= 2
	}, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(stopCtx))

	calls := fetcher.calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, calls, fetcher.calls.Load(), "no poll after stop")
	assert.Nil(t, p.Snapshot())
}
