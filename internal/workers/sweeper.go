// Package workers holds the periodic maintenance tasks. Nothing in the
// decision path depends on them; all lifecycle checks are evaluated live.
package workers

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultInterval = 15 * time.Minute

// ConsentSweeps is the consent store slice the sweeper drives.
type ConsentSweeps interface {
	ExpirePendingRequests(ctx context.Context, now time.Time) (int, error)
}

// ShareCounts refreshes the active-share gauge.
type ShareCounts interface {
	CountActive(ctx context.Context) (int, error)
}

// Pruner drops expired rate-limit windows.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically marks stale PENDING consent requests EXPIRED and
// refreshes share telemetry. A missed or failed sweep affects bookkeeping
// only, never authorization.
type Sweeper struct {
	consents ConsentSweeps
	shares   ShareCounts
	limits   Pruner
	logger   *slog.Logger
	interval time.Duration
}

// Option configures the Sweeper.
type Option func(*Sweeper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimitPrune registers a rate-limit store for periodic pruning.
func WithRateLimitPrune(limits Pruner) Option {
	return func(s *Sweeper) {
		s.limits = limits
	}
}

// WithInterval overrides the sweep interval. Defaults to 15 minutes.
func WithInterval(interval time.Duration) Option {
	return func(s *Sweeper) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func New(consents ConsentSweeps, shares ShareCounts, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		consents: consents,
		shares:   shares,
		logger:   slog.Default(),
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(sweeper)
	}
	return sweeper
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("maintenance sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs the maintenance tasks concurrently. Individual failures are
// logged and do not abort the other tasks.
func (s *Sweeper) Sweep(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		expired, err := s.consents.ExpirePendingRequests(ctx, time.Now())
		if err != nil {
			s.logger.Error("failed to expire pending consent requests", "error", err)
			return nil
		}
		if expired > 0 {
			s.logger.Info("expired stale consent requests", "count", expired)
		}
		return nil
	})

	g.Go(func() error {
		if s.shares == nil {
			return nil
		}
		if _, err := s.shares.CountActive(ctx); err != nil {
			s.logger.Error("failed to refresh active share count", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		if s.limits == nil {
			return nil
		}
		pruned, err := s.limits.Prune(ctx, time.Now())
		if err != nil {
			s.logger.Error("failed to prune rate limit windows", "error", err)
			return nil
		}
		if pruned > 0 {
			s.logger.Debug("pruned rate limit windows", "count", pruned)
		}
		return nil
	})

	_ = g.Wait()
}
