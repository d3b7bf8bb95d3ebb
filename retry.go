package imagesweep

import (
	"context"
	"time"
)

// pausePollInterval is how often a paused download re-checks the session.
const pausePollInterval = 200 * time.Millisecond

// backoffDelay returns the wait before the next attempt. attempt is 1-based
// and counts attempts already made: InitialBackoff after the first failure,
// doubling each time, capped at MaxBackoff. A server-signalled delay from a
// 429 response takes precedence.
func (cfg *Config) backoffDelay(attempt int, err error) time.Duration {
	if d := retryAfter(err); d > 0 {
		return d
	}
	if attempt <= 0 {
		attempt = 1
	}
	delay := cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	return min(delay, cfg.MaxBackoff)
}

// sleepWithContext blocks for d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitWhilePaused blocks while the session asks for a pause.
func (cfg *Config) waitWhilePaused(ctx context.Context) error {
	if cfg.Session == nil {
		return nil
	}
	logged := false
	for cfg.Session.ShouldPause() {
		if !logged {
			cfg.Logger.Info("imagesweep: downloads paused")
			logged = true
		}
		if err := sleepWithContext(ctx, pausePollInterval); err != nil {
			return err
		}
	}
	if logged {
		cfg.Logger.Info("imagesweep: downloads resumed")
	}
	return ctx.Err()
}
