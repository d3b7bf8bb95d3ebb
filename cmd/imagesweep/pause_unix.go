//go:build unix

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
)

// watchPauseSignal toggles pc on every SIGUSR1 until the returned stop is called.
func watchPauseSignal(ctx context.Context, pc *imagesweep.PauseController, logger *slog.Logger) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				logger.Info("imagesweep: pause toggled", "paused", pc.Toggle())
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
