package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Defaults used when the configuration leaves schedule or retention empty.
const (
	DefaultSchedule  = "0 * * * *"
	DefaultRetention = 720 * time.Hour
)

// SnapshotPruner is the part of the store the pruner needs.
// Satisfied by *store.LibSQLStore.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, olderThan time.Time) (int64, error)
}

// Pruner deletes graph snapshots older than the retention window on a cron schedule.
type Pruner struct {
	store     SnapshotPruner
	schedule  cron.Schedule
	spec      string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pruner) { p.now = now }
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	return schedule, nil
}

// NewPruner validates the schedule and returns a stopped pruner.
func NewPruner(s SnapshotPruner, spec string, retention time.Duration, logger *slog.Logger, opts ...Option) (*Pruner, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	p := &Pruner{
		store:     s,
		schedule:  schedule,
		spec:      spec,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NextRun returns the next scheduled prune after from.
func (p *Pruner) NextRun(from time.Time) time.Time {
	return p.schedule.Next(from)
}

// RunOnce prunes everything older than now minus the retention window.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().UTC().Add(-p.retention)
	n, err := p.store.PruneSnapshots(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		p.logger.Info("pruned snapshots",
			slog.Int64("count", n),
			slog.Time("cutoff", cutoff),
		)
	}
	return n, nil
}

// Start launches the background loop. An initial prune runs immediately.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return fmt.Errorf("pruner already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.loop(loopCtx)
	p.logger.Info("snapshot pruner started",
		slog.String("schedule", p.spec),
		slog.Duration("retention", p.retention),
	)
	return nil
}

func (p *Pruner) loop(ctx context.Context) {
	defer close(p.done)

	p.tick(ctx)
	for {
		now := p.now()
		timer := time.NewTimer(p.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.tick(ctx)
		}
	}
}

func (p *Pruner) tick(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("snapshot prune failed", slog.String("error", err.Error()))
	}
}

// Stop cancels the loop and waits for it to exit.
func (p *Pruner) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return nil
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.logger.Info("snapshot pruner stopped")
	return nil
}
