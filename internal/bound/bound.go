// Package bound runs an external operation once under its own timeout.
package bound

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Config bounds one external operation. A zero Timeout leaves the call
// bounded only by the caller's context.
type Config struct {
	Name    string
	Timeout time.Duration
}

// Call runs operation a single time. Its error is returned unchanged so
// callers can inspect it with errors.As.
func Call[T any](ctx context.Context, config Config, operation func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	opCtx, cancel := callContext(ctx, config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := operation(opCtx)
	if err != nil {
		log.Debug().
			Err(err).
			Str("operation", config.Name).
			Dur("elapsed", time.Since(start)).
			Msg("Operation failed")
		return zero, err
	}
	return result, nil
}

// Do is Call for operations without a result.
func Do(ctx context.Context, config Config, operation func(context.Context) error) error {
	_, err := Call(ctx, config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}

func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
