package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/retry"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/file"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

// openStores builds the embedding store and attendance ledger for the
// configured backend. The returned close function releases the backend's
// resources and is safe to call once.
func openStores(ctx context.Context, cfg *config.Config) (store.EmbeddingStore, store.Ledger, func(), error) {
	switch cfg.Storage.Backend {
	case "file":
		embeddings, err := file.NewEmbeddingStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening embedding store: %w", err)
		}
		ledger, err := file.NewLedger(cfg.Storage.DataDir, cfg.Attendance.Cooldown)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening attendance ledger: %w", err)
		}
		return embeddings, ledger, func() {}, nil

	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return nil, nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := postgres.Connect(ctx, &cfg.Storage)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, cfg.Detector.Dim); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrating schema: %w", err)
		}
		return postgres.NewEmbeddingStore(pool), postgres.NewLedger(pool, cfg.Attendance.Cooldown), pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q (expected file or postgres)", cfg.Storage.Backend)
	}
}

// newService assembles the full recognition pipeline from configuration.
func newService(ctx context.Context, cfg *config.Config) (*recognizer.Service, func(), error) {
	embeddings, ledger, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	det := detector.NewClient(cfg.Detector.URL, cfg.Detector.MaxImageSize)
	svc := recognizer.New(det, embeddings, ledger, recognizer.Options{
		Threshold: cfg.Match.Threshold,
		ANNCutoff: cfg.Match.ANNCutoff,
		Retry: retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
	})
	return svc, closeStores, nil
}
