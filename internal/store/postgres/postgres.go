// Package postgres implements the store contracts on PostgreSQL with
// pgvector for embedding columns.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Connect creates a connection pool to PostgreSQL.
func Connect(ctx context.Context, cfg *config.StorageConfig) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Migrate creates the schema. embeddingDim fixes the vector column width
// and must match the detector's output dimension.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDim int) error {
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createEnrollments := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS enrollments (
			id           BIGSERIAL PRIMARY KEY,
			user_id      VARCHAR(255) NOT NULL,
			embedding    vector(%d) NOT NULL,
			created_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, embeddingDim)
	if _, err := pool.Exec(ctx, createEnrollments); err != nil {
		return fmt.Errorf("failed to create enrollments table: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS enrollments_user_id_idx ON enrollments(user_id)
	`); err != nil {
		return fmt.Errorf("failed to create enrollments index: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_events (
			id           UUID PRIMARY KEY,
			user_id      VARCHAR(255) NOT NULL,
			logged_at    TIMESTAMP WITH TIME ZONE NOT NULL,
			source       VARCHAR(255) NOT NULL DEFAULT ''
		)
	`); err != nil {
		return fmt.Errorf("failed to create attendance_events table: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS attendance_events_user_time_idx
		ON attendance_events(user_id, logged_at)
	`); err != nil {
		return fmt.Errorf("failed to create attendance_events index: %w", err)
	}

	return nil
}

// vecTo32 narrows a float64 vector for the pgvector column type.
func vecTo32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, c := range v {
		out[i] = float32(c)
	}
	return out
}

// vecTo64 widens a stored pgvector back to the core's float64 vectors.
func vecTo64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, c := range v {
		out[i] = float64(c)
	}
	return out
}
