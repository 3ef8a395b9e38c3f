package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"MicroloanCore/internal/ports"
)

// IntervalScheduler runs a job immediately and then on a fixed interval using
// a cron runner. Overlap control is left to the job.
type IntervalScheduler struct {
	interval time.Duration
	logger   cron.Logger

	mu   sync.Mutex
	cron *cron.Cron
	stop chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler firing every interval. cron
// schedules have one-second resolution, so shorter intervals round up to 1s.
func NewIntervalScheduler(interval time.Duration, log *slog.Logger) *IntervalScheduler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &IntervalScheduler{interval: interval, logger: cronLogger{log: log}}
}

// Start fires job now and then every interval until Stop or ctx is done.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	wrapped := cron.NewChain(cron.Recover(s.logger)).Then(cron.FuncJob(func() {
		job(time.Now())
	}))

	c := cron.New(cron.WithLogger(s.logger))
	c.Schedule(cron.Every(s.interval), wrapped)
	s.cron = c
	s.stop = make(chan struct{})

	go wrapped.Run()
	c.Start()

	stop := s.stop
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop(context.Background())
		case <-stop:
		}
	}()

	return nil
}

// Stop halts the cron runner and waits for running jobs until ctx is done.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
