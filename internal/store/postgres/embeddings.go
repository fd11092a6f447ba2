package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// EmbeddingStore persists enrolled embeddings in the enrollments table,
// one row per vector.
type EmbeddingStore struct {
	pool *pgxpool.Pool
}

// NewEmbeddingStore creates a PostgreSQL-backed embedding store.
func NewEmbeddingStore(pool *pgxpool.Pool) *EmbeddingStore {
	return &EmbeddingStore{pool: pool}
}

// Load returns the full enrolled mapping.
func (s *EmbeddingStore) Load(ctx context.Context) (store.Mapping, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, embedding
		FROM enrollments
		ORDER BY user_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	m := make(store.Mapping)
	for rows.Next() {
		var userID string
		var vec pgvector.Vector
		if err := rows.Scan(&userID, &vec); err != nil {
			return nil, fmt.Errorf("%w: scanning enrollment: %v", store.ErrStoreUnavailable, err)
		}
		m[userID] = append(m[userID], vecTo64(vec.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return m, nil
}

// Save replaces the full mapping in one transaction, so concurrent
// readers see either the old or the new enrolled set.
func (s *EmbeddingStore) Save(ctx context.Context, m store.Mapping) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM enrollments"); err != nil {
		return fmt.Errorf("clearing enrollments: %w", err)
	}

	for userID, vectors := range m {
		for _, v := range vectors {
			if _, err := tx.Exec(ctx, `
				INSERT INTO enrollments (user_id, embedding) VALUES ($1, $2)
			`, userID, pgvector.NewVector(vecTo32(v))); err != nil {
				return fmt.Errorf("inserting enrollment for %s: %w", userID, err)
			}
		}
	}

	return tx.Commit(ctx)
}

// Upsert appends one vector to a user's record.
func (s *EmbeddingStore) Upsert(ctx context.Context, userID string, embedding []float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO enrollments (user_id, embedding) VALUES ($1, $2)
	`, userID, pgvector.NewVector(vecTo32(embedding)))
	if err != nil {
		return fmt.Errorf("inserting enrollment for %s: %w", userID, err)
	}
	return nil
}

// Remove deletes all vectors for a user.
func (s *EmbeddingStore) Remove(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM enrollments WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("removing enrollments for %s: %w", userID, err)
	}
	return nil
}

// Users lists enrolled users with vector counts and first enrollment time.
func (s *EmbeddingStore) Users(ctx context.Context) ([]store.EnrolledUser, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, COUNT(*), MIN(created_at)
		FROM enrollments
		GROUP BY user_id
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	users := make([]store.EnrolledUser, 0)
	for rows.Next() {
		var u store.EnrolledUser
		if err := rows.Scan(&u.UserID, &u.Embeddings, &u.EnrolledAt); err != nil {
			return nil, fmt.Errorf("%w: scanning user: %v", store.ErrStoreUnavailable, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
