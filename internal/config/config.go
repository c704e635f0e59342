package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderVertex    = "vertex"
)

type Config struct {
	// Server
	Port        string `env:"PORT,default=8080"`
	Environment string `env:"ENVIRONMENT,default=development"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Supabase
	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabaseServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseStorageBucket  string `env:"SUPABASE_STORAGE_BUCKET,default=draw-uploads"`

	// Admin routes
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	// Inference
	LLMProvider         string `env:"LLM_PROVIDER,default=bedrock"`
	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	VertexRegion        string `env:"VERTEX_REGION,default=us-east5"`
	VertexProjectID     string `env:"VERTEX_PROJECT_ID"`
	PrimaryModelID      string `env:"PRIMARY_MODEL_ID,default=anthropic.claude-3-haiku-20240307-v1:0"`
	SecondaryModelID    string `env:"SECONDARY_MODEL_ID,default=jp.anthropic.claude-haiku-4-5-20251001-v1:0"`
	InferenceMaxRetries int    `env:"INFERENCE_MAX_RETRIES,default=1"`

	// Game
	ImageTTLSeconds        int      `env:"IMAGE_TTL_SECONDS,default=900"`
	SubmissionTTLDays      int      `env:"SUBMISSION_TTL_DAYS,default=7"`
	RateLimitWindowSeconds int      `env:"RATE_LIMIT_WINDOW_SECONDS,default=300"`
	RateLimitUpload        int      `env:"RATE_LIMIT_UPLOAD,default=10"`
	RateLimitSubmit        int      `env:"RATE_LIMIT_SUBMIT,default=5"`
	LeaderboardKeepLimit   int      `env:"LEADERBOARD_KEEP_LIMIT,default=20"`
	AllowedOrigins         []string `env:"ALLOWED_ORIGINS,default=https://subaru-is-running.com,http://localhost:4321,http://localhost:3000"`

	// Secondary review worker
	WorkerConcurrency      int           `env:"WORKER_CONCURRENCY,default=2"`
	WorkerPollInterval     time.Duration `env:"WORKER_POLL_INTERVAL,default=2s"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=90s"`
	QueueMaxDeliveries     int           `env:"QUEUE_MAX_DELIVERIES,default=5"`
	RunWorkerInProcess     bool          `env:"RUN_WORKER_IN_PROCESS,default=false"`
}

// LoadDotEnv loads variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Load(ctx context.Context) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceRoleKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
	}
	switch strings.ToLower(c.LLMProvider) {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	case ProviderBedrock:
	case ProviderVertex:
		if c.VertexProjectID == "" {
			return fmt.Errorf("VERTEX_PROJECT_ID is required")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of anthropic, bedrock, vertex")
	}
	if c.RateLimitWindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	return nil
}

func (c *Config) ImageTTL() time.Duration {
	return time.Duration(c.ImageTTLSeconds) * time.Second
}

func (c *Config) SubmissionTTL() time.Duration {
	return time.Duration(c.SubmissionTTLDays) * 24 * time.Hour
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
