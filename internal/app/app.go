// Package app wires the clients and services shared by the server, the
// worker and drawctl.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/config"
	"draw-backend/internal/database"
	"draw-backend/internal/drawing"
	"draw-backend/internal/inference"
	"draw-backend/internal/services"
	"draw-backend/internal/supabase"
	"draw-backend/internal/worker"
)

type App struct {
	Config  *config.Config
	DB      *supabase.DatabaseClient
	Storage *supabase.StorageClient
	Queue   *supabase.QueueClient
	// Visibility is the queue's effective visibility timeout.
	Visibility time.Duration
	Prompts    *drawing.PromptResolver
	Inferrer   *inference.Client

	Uploads     *services.UploadService
	Submissions *services.SubmissionService
	Reviewer    *services.SecondaryReviewer
	Leaderboard *services.LeaderboardService
	Cleanup     *services.CleanupService
	Purge       *services.PurgeService
	Rescore     *services.RescoreService
}

// New connects to Postgres, Supabase Storage and the model provider and
// builds every service over them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := supabase.NewDatabaseClient(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	sb, err := supabase.NewClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	storage := sb.Storage()

	inferrer, err := inference.NewClient(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}
	clog.InfoContextf(ctx, "inference provider %s, primary model %s", cfg.LLMProvider, cfg.PrimaryModelID)

	visibility := cfg.QueueVisibilityTimeout
	if minimum := worker.MinVisibilityTimeout(inference.RequestTimeout); visibility < minimum {
		clog.WarnContextf(ctx, "QUEUE_VISIBILITY_TIMEOUT %s is shorter than one review attempt, using %s", visibility, minimum)
		visibility = minimum
	}
	queue := supabase.NewQueueClient(db, visibility, cfg.QueueMaxDeliveries)
	prompts := drawing.NewPromptResolver(nil)
	scorer := services.NewPrimaryScorer(inferrer, cfg.PrimaryModelID)

	return &App{
		Config:     cfg,
		DB:         db,
		Storage:    storage,
		Queue:      queue,
		Visibility: visibility,
		Prompts:    prompts,
		Inferrer:   inferrer,

		Uploads:     services.NewUploadService(storage, prompts),
		Submissions: services.NewSubmissionService(db, storage, queue, scorer, prompts, cfg.SubmissionTTL()),
		Reviewer:    services.NewSecondaryReviewer(db, storage, inferrer, cfg.SecondaryModelID),
		Leaderboard: services.NewLeaderboardService(db, storage, prompts, cfg.ImageTTL()),
		Cleanup:     services.NewCleanupService(db, storage, prompts, cfg.LeaderboardKeepLimit),
		Purge:       services.NewPurgeService(db),
		Rescore:     services.NewRescoreService(db, storage, scorer),
	}, nil
}

// Migrate applies pending schema migrations over the app's pool.
func (a *App) Migrate(ctx context.Context) error {
	return database.NewMigratorWithDB(a.DB.DB()).Run(ctx)
}

// Poller builds the secondary review consumer.
func (a *App) Poller() *worker.Poller {
	return worker.NewPoller(a.Queue, a.Reviewer, a.Config.WorkerConcurrency, a.Config.WorkerPollInterval).
		WithJobTimeout(worker.JobTimeout(a.Visibility))
}

func (a *App) Close() error {
	return a.DB.Close()
}
