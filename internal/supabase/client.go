package supabase

import (
	"fmt"

	"github.com/supabase-community/supabase-go"

	"draw-backend/internal/config"
)

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

// Storage returns an object store bound to the configured drawing bucket.
func (c *Client) Storage() *StorageClient {
	return NewStorageClient(c.Supabase.Storage, c.Config.SupabaseURL, c.Config.SupabaseStorageBucket)
}
