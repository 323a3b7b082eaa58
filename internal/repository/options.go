package repository

import (
	"context"
	"time"
)

// QueryObserver receives timing for every storage call.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// Option configures repository behaviour shared by the attendance core stores.
type Option func(*queryRunner)

// WithQueryTimeout bounds every storage call made by the repository.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *queryRunner) {
		r.timeout = d
	}
}

// WithQueryObserver reports query durations, typically to Prometheus.
func WithQueryObserver(o QueryObserver) Option {
	return func(r *queryRunner) {
		r.observer = o
	}
}

type queryRunner struct {
	timeout  time.Duration
	observer QueryObserver
}

func newQueryRunner(opts []Option) queryRunner {
	var r queryRunner
	for _, opt := range opts {
		if opt != nil {
			opt(&r)
		}
	}
	return r
}

// run executes fn under the configured deadline and records its duration.
func (r queryRunner) run(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
	return err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
