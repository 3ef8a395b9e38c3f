package usecase

import (
	"context"
	"errors"
	"sync"
)

// ErrDashboardInactive is returned when stats are read while no dashboard is active.
var ErrDashboardInactive = errors.New("dashboard is not active")

// Dashboard owns the stats poller for the lifetime of an active dashboard
// view. Each activation gets a fresh poller and snapshot.
type Dashboard struct {
	newPoller func() *StatsPoller

	mu     sync.Mutex
	poller *StatsPoller
}

// NewDashboard builds a dashboard that creates pollers with newPoller.
func NewDashboard(newPoller func() *StatsPoller) *Dashboard {
	return &Dashboard{newPoller: newPoller}
}

// Activate starts polling. Activating an active dashboard is a no-op.
// ctx bounds the poller's lifetime.
func (d *Dashboard) Activate(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.poller != nil {
		return nil
	}
	p := d.newPoller()
	if err := p.Start(ctx); err != nil {
		_ = p.Stop(context.Background())
		return err
	}
	d.poller = p
	return nil
}

// Deactivate stops polling and discards the snapshot.
func (d *Dashboard) Deactivate(ctx context.Context) error {
	d.mu.Lock()
	p := d.poller
	d.poller = nil
	d.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Stop(ctx)
}

// Active reports whether a poller is running.
func (d *Dashboard) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poller != nil
}

// Stats returns the latest snapshot (nil before the first successful poll)
// and whether it is stale.
func (d *Dashboard) Stats() (*StatsSnapshot, bool, error) {
	d.mu.Lock()
	p := d.poller
	d.mu.Unlock()

	if p == nil {
		return nil, false, ErrDashboardInactive
	}
	snap, stale := p.View()
	return snap, stale, nil
}
