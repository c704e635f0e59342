// Command worker consumes the secondary review queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/app"
	"draw-backend/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "failed to load configuration: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "failed to initialize: %v", err)
	}
	defer a.Close()

	clog.InfoContextf(ctx, "secondary review worker starting with concurrency %d", cfg.WorkerConcurrency)
	if err := a.Poller().Run(ctx); err != nil {
		clog.FatalContextf(ctx, "worker failed: %v", err)
	}
}
