package store

import (
	"time"
)

// Mapping is the full enrolled set: user ID to that user's reference
// embedding vectors, one per enrollment photo.
type Mapping map[string][][]float64

// Clone returns a deep copy of the mapping. Snapshots handed to the
// matcher must not alias store-owned slices.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for userID, vectors := range m {
		copied := make([][]float64, len(vectors))
		for i, v := range vectors {
			cv := make([]float64, len(v))
			copy(cv, v)
			copied[i] = cv
		}
		out[userID] = copied
	}
	return out
}

// EnrolledUser summarizes one user's enrollment state.
type EnrolledUser struct {
	UserID     string    `json:"user_id"`
	Embeddings int       `json:"embeddings"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Event is a single attendance record. Events are append-only and never
// mutated after being written.
type Event struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	LoggedAt time.Time `json:"logged_at"`
	Source   string    `json:"source"`
}

// RecordFilter narrows a Records query. Zero values mean "no bound".
// Start and End are inclusive.
type RecordFilter struct {
	UserID string
	Start  time.Time
	End    time.Time
}

// Matches reports whether an event passes the filter.
func (f RecordFilter) Matches(e Event) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if !f.Start.IsZero() && e.LoggedAt.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.LoggedAt.After(f.End) {
		return false
	}
	return true
}
