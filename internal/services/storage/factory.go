package storage

import (
	"context"
	"fmt"

	"github.com/socialchef/sizzle/internal/config"
)

// New builds the object store selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.Storage.Bucket), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			PublicURL: cfg.Storage.PublicURL,
		})
	case "par":
		return NewPARStore(cfg.Storage.PARURL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
