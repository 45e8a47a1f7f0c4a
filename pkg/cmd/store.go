// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/trigion/trigion/pkg/store"
	"github.com/trigion/trigion/pkg/store/file"
	"github.com/trigion/trigion/pkg/store/postgres"
	"github.com/trigion/trigion/pkg/store/redis"
)

// NewStore selects the flow store by the database URL scheme. Anything
// without a recognized scheme is treated as a file path.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (store.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err := postgres.NewStore(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}

		return s, nil
	case strings.HasPrefix(databaseURL, "redis://"), strings.HasPrefix(databaseURL, "rediss://"):
		s, err := redis.NewStore(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}

		return s, nil
	default:
		return file.NewStore(databaseURL), nil
	}
}
