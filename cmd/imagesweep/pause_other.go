//go:build !unix

package main

import (
	"context"
	"log/slog"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
)

func watchPauseSignal(context.Context, *imagesweep.PauseController, *slog.Logger) (stop func()) {
	return func() {}
}
