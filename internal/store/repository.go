// Package store defines the persistence contracts for the enrolled
// embedding set and the attendance ledger, shared by the file and
// PostgreSQL backends.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable means the embedding store could not be read.
	// Callers degrade to a cached or empty snapshot instead of failing
	// the recognition call.
	ErrStoreUnavailable = errors.New("embedding store unavailable")

	// ErrLedgerWriteFailed means an attendance append could not be
	// committed after retries. The caller must not report the event as
	// logged.
	ErrLedgerWriteFailed = errors.New("attendance ledger write failed")
)

// EmbeddingStore owns the durable user -> embedding vectors mapping.
type EmbeddingStore interface {
	// Load returns the current enrolled set. A missing backing file or
	// empty table yields an empty mapping, not an error.
	Load(ctx context.Context) (Mapping, error)

	// Save atomically replaces the full mapping. Concurrent readers
	// never observe a partially written state.
	Save(ctx context.Context, m Mapping) error

	// Upsert appends one vector to a user's record, creating the record
	// if the user is not yet enrolled.
	Upsert(ctx context.Context, userID string, embedding []float64) error

	// Remove deletes a user's record entirely.
	Remove(ctx context.Context, userID string) error

	// Users lists enrolled users with their embedding counts.
	Users(ctx context.Context) ([]EnrolledUser, error)
}

// Ledger is the append-only attendance log with duplicate suppression.
type Ledger interface {
	// Log appends an event for userID unless a prior event exists within
	// the cooldown window. Returns true if a new event was written,
	// false if the detection was suppressed as a duplicate. The
	// check-then-append sequence is atomic per user.
	Log(ctx context.Context, userID, source string, now time.Time) (bool, error)

	// LastEvent returns the most recent event for a user, or nil.
	LastEvent(ctx context.Context, userID string) (*Event, error)

	// Records returns events passing the filter, ordered by timestamp
	// ascending. An unmatched filter yields an empty slice.
	Records(ctx context.Context, filter RecordFilter) ([]Event, error)
}
