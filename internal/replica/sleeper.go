package replica

import (
	"context"
	"time"
)

// Sleeper suspends the caller for a simulated network delay
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper waits on a timer and aborts early when ctx is done
type RealSleeper struct{}

// Sleep implements Sleeper
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoopSleeper returns immediately; used for deterministic tests
type NoopSleeper struct{}

// Sleep implements Sleeper
func (NoopSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// SleeperFunc adapts a function to the Sleeper interface
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep implements Sleeper
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}
