// @title           Draw Backend API
// @version         1.0.0
// @description     Backend for the 30-second drawing game: upload URLs, AI scoring, monthly leaderboards and asynchronous secondary reviews.

// @BasePath  /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an admin JWT.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"draw-backend/internal/app"
	"draw-backend/internal/config"
	"draw-backend/internal/handlers"
	"draw-backend/internal/middleware"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "failed to initialize: %v", err)
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		clog.FatalContextf(ctx, "migration failed: %v", err)
	}
	clog.InfoContextf(ctx, "migrations completed successfully")

	workerDone := make(chan struct{})
	if cfg.RunWorkerInProcess {
		poller := a.Poller()
		go func() {
			defer close(workerDone)
			if err := poller.Run(ctx); err != nil {
				clog.ErrorContextf(ctx, "secondary review worker stopped: %v", err)
			}
		}()
	} else {
		close(workerDone)
	}

	limiter := middleware.NewRateLimiter(a.DB, cfg.RateLimitWindow())

	healthHandler := handlers.NewHealthHandler(a.DB)
	promptHandler := handlers.NewPromptHandler(a.Prompts)
	uploadHandler := handlers.NewUploadHandler(a.Uploads)
	submitHandler := handlers.NewSubmitHandler(a.Submissions)
	leaderboardHandler := handlers.NewLeaderboardHandler(a.Leaderboard)
	secondaryHandler := handlers.NewSecondaryHandler(a.Reviewer)
	adminHandler := handlers.NewAdminHandler(a.Cleanup, a.Purge)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	draw := router.Group("/api/draw")
	draw.POST("/upload-url", limiter.Limit("upload-url", cfg.RateLimitUpload), uploadHandler.CreateUploadURL)
	draw.GET("/prompt", promptHandler.GetPrompt)
	draw.POST("/submit", submitHandler.RequireFields, limiter.Limit("submit", cfg.RateLimitSubmit), submitHandler.Submit)
	draw.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
	draw.GET("/secondary", secondaryHandler.GetSecondary)

	admin := draw.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware(cfg))
	admin.POST("/cleanup", adminHandler.Cleanup)
	admin.POST("/purge-expired", adminHandler.PurgeExpired)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			clog.ErrorContextf(ctx, "shutdown: %v", err)
		}
	}()

	clog.InfoContextf(ctx, "server starting on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		clog.FatalContextf(ctx, "failed to start server: %v", err)
	}

	// In-flight requests and reviews still need the database.
	<-serverDone
	<-workerDone
}
