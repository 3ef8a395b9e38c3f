package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"MicroloanCore/internal/domain"
	"MicroloanCore/internal/metrics"
	"MicroloanCore/internal/ports"
)

// PollState is the poller's lifecycle state.
type PollState int32

const (
	PollIdle PollState = iota
	PollFetching
	PollUpdated
	PollFailed
	PollStopped
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollFetching:
		return "fetching"
	case PollUpdated:
		return "updated"
	case PollFailed:
		return "failed"
	case PollStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TickOutcome reports what a single tick did.
type TickOutcome string

const (
	TickUpdated   TickOutcome = "updated"
	TickFailed    TickOutcome = "failed"
	TickSkipped   TickOutcome = "skipped"
	TickDiscarded TickOutcome = "discarded"
	TickStopped   TickOutcome = "stopped"
)

// ErrPollerStopped is returned when starting a poller that was already stopped.
var ErrPollerStopped = errors.New("stats poller is stopped")

// StatsSnapshot is one published portfolio snapshot. It is never mutated
// after publication.
type StatsSnapshot struct {
	Stats     domain.PortfolioStats
	FetchedAt time.Time
}

// pollView pairs the latest snapshot with the outcome of the most recent
// poll so that readers observe both from a single load.
type pollView struct {
	snapshot *StatsSnapshot
	stale    bool
}

// StatsPollerDeps wires the poller's collaborators.
type StatsPollerDeps struct {
	Fetcher ports.StatsFetcher
	Driver  ports.Scheduler
	// Timeout bounds each fetch; zero leaves only the poller's own lifetime.
	Timeout time.Duration
	Metrics *metrics.Recorder
	Logger  *slog.Logger
	Now     func() time.Time
}

// StatsPoller keeps the latest portfolio snapshot fresh. At most one fetch is
// in flight; ticks arriving meanwhile are skipped.
type StatsPoller struct {
	fetcher ports.StatsFetcher
	driver  ports.Scheduler
	timeout time.Duration
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time

	state atomic.Int32
	view  atomic.Pointer[pollView]

	// mu orders lifecycle changes against snapshot publication so that a
	// response landing after Stop is never published.
	mu      sync.Mutex
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
}

// NewStatsPoller returns an idle poller.
func NewStatsPoller(deps StatsPollerDeps) *StatsPoller {
	p := &StatsPoller{
		fetcher: deps.Fetcher,
		driver:  deps.Driver,
		timeout: deps.Timeout,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
		runCtx:  context.Background(),
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.state.Store(int32(PollIdle))
	return p
}

// Start hands the tick job to the scheduler driver, which polls immediately
// and then on its interval. Starting twice is a no-op.
func (p *StatsPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.State() == PollStopped {
		p.mu.Unlock()
		return ErrPollerStopped
	}
	if p.started {
		p.mu.Unlock()
		return nil
	}
	if p.fetcher == nil || p.driver == nil {
		p.mu.Unlock()
		return errors.New("stats poller: fetcher and driver are required")
	}
	p.started = true
	p.runCtx, p.cancel = context.WithCancel(ctx)
	runCtx := p.runCtx
	p.mu.Unlock()

	p.logger.Info("stats poller started")
	return p.driver.Start(runCtx, func(at time.Time) {
		p.Tick(at)
	})
}

// Stop halts scheduling, cancels any in-flight fetch and drops the snapshot.
// The poller cannot be restarted.
// A fetch that ignores cancellation is waited for until ctx is done, in which
// case ctx's error is returned.
func (p *StatsPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.State() == PollStopped {
		p.mu.Unlock()
		return nil
	}
	p.state.Store(int32(PollStopped))
	p.view.Store(nil)
	if p.cancel != nil {
		p.cancel()
	}
	started := p.started
	p.mu.Unlock()

	p.logger.Info("stats poller stopped")
	if !started {
		return nil
	}
	return p.driver.Stop(ctx)
}

// Tick performs one poll unless a poll is already running or the poller is
// stopped.
func (p *StatsPoller) Tick(at time.Time) TickOutcome {
	if !p.state.CompareAndSwap(int32(PollIdle), int32(PollFetching)) {
		outcome := TickSkipped
		if p.State() == PollStopped {
			outcome = TickStopped
		}
		p.metrics.Poll(string(outcome))
		p.logger.Debug("stats tick skipped", "state", p.State(), "at", at)
		return outcome
	}

	p.mu.Lock()
	ctx := p.runCtx
	p.mu.Unlock()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	stats, err := p.fetcher.FetchStats(ctx)
	p.metrics.ServiceCall(domain.ServiceStats, err, time.Since(start))

	outcome := p.complete(stats, err)
	p.metrics.Poll(string(outcome))
	return outcome
}

func (p *StatsPoller) complete(stats domain.PortfolioStats, err error) TickOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() != PollFetching {
		p.logger.Debug("stats response discarded after stop")
		return TickDiscarded
	}

	if err != nil {
		p.state.Store(int32(PollFailed))
		var kept *StatsSnapshot
		if cur := p.view.Load(); cur != nil {
			kept = cur.snapshot
		}
		p.view.Store(&pollView{snapshot: kept, stale: true})
		p.logger.Error("fetch portfolio stats", "error", err)
		p.state.Store(int32(PollIdle))
		return TickFailed
	}

	p.view.Store(&pollView{snapshot: &StatsSnapshot{Stats: stats, FetchedAt: p.now()}})
	p.state.Store(int32(PollUpdated))
	p.logger.Debug("portfolio stats updated", "active_loans", stats.TotalActiveLoans)
	p.state.Store(int32(PollIdle))
	return TickUpdated
}

// Snapshot returns the latest published snapshot, or nil before the first
// successful poll and after Stop.
func (p *StatsPoller) Snapshot() *StatsSnapshot {
	snap, _ := p.View()
	return snap
}

// Stale reports whether the most recent completed poll failed.
func (p *StatsPoller) Stale() bool {
	_, stale := p.View()
	return stale
}

// View returns the snapshot and stale flag as published together.
func (p *StatsPoller) View() (*StatsSnapshot, bool) {
	v := p.view.Load()
	if v == nil {
		return nil, false
	}
	return v.snapshot, v.stale
}

// State returns the current lifecycle state.
func (p *StatsPoller) State() PollState {
	return PollState(p.state.Load())
}
