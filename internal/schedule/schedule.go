// Package schedule runs the service's background loops: the periodic
// payment reconciliation sweep and the midnight quota reset. Loops never
// exit on iteration failure, they log, back off and continue.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vaultgram/vaultgram-server/internal/log"
)

var failureBackoff = time.Minute

// Every runs fn on a fixed interval until the context ends. Call in its own
// goroutine. A failed or panicking iteration delays the next run by the
// backoff instead of the interval.
func Every(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, fn func(context.Context) error) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next := interval
		if err := runSafe(ctx, fn); err != nil {
			logger.Error("background task failed", slog.String("task", name), log.Err(err))
			next = failureBackoff
		}
		timer.Reset(next)
	}
}

// Daily runs fn at every midnight UTC until the context ends. Call in its
// own goroutine.
func Daily(ctx context.Context, name string, logger *slog.Logger, fn func(context.Context) error) {
	for {
		wait := time.Until(nextMidnight(time.Now().UTC()))
		logger.Info("daily task scheduled",
			slog.String("task", name),
			slog.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := runSafe(ctx, fn); err != nil {
			logger.Error("daily task failed", slog.String("task", name), log.Err(err))
		}
	}
}

func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func runSafe(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
