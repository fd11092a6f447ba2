// Package mock provides in-memory implementations of the store
// interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// EmbeddingStore is an in-memory store.EmbeddingStore with error injection.
type EmbeddingStore struct {
	mu      sync.RWMutex
	mapping store.Mapping

	// Error injection
	LoadError   error
	SaveError   error
	UpsertError error
	RemoveError error

	// Counters
	LoadCalls int
}

// NewEmbeddingStore creates an empty mock embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{mapping: store.Mapping{}}
}

// Seed replaces the mock's mapping.
func (m *EmbeddingStore) Seed(mapping store.Mapping) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mapping = mapping.Clone()
}

func (m *EmbeddingStore) Load(ctx context.Context) (store.Mapping, error) {
	m.mu.Lock()
	m.LoadCalls++
	m.mu.Unlock()
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mapping.Clone(), nil
}

func (m *EmbeddingStore) Save(ctx context.Context, mapping store.Mapping) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mapping = mapping.Clone()
	return nil
}

func (m *EmbeddingStore) Upsert(ctx context.Context, userID string, embedding []float64) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	vec := make([]float64, len(embedding))
	copy(vec, embedding)
	m.mapping[userID] = append(m.mapping[userID], vec)
	return nil
}

func (m *EmbeddingStore) Remove(ctx context.Context, userID string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mapping, userID)
	return nil
}

func (m *EmbeddingStore) Users(ctx context.Context) ([]store.EnrolledUser, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]store.EnrolledUser, 0, len(m.mapping))
	for userID, vectors := range m.mapping {
		users = append(users, store.EnrolledUser{UserID: userID, Embeddings: len(vectors)})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

// Ledger is an in-memory store.Ledger with error injection.
type Ledger struct {
	mu       sync.Mutex
	cooldown time.Duration
	events   []store.Event

	// Error injection
	LogError     error
	RecordsError error
}

// NewLedger creates an empty mock ledger.
func NewLedger(cooldown time.Duration) *Ledger {
	return &Ledger{cooldown: cooldown}
}

// Events returns a copy of all stored events.
func (l *Ledger) Events() []store.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]store.Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Ledger) Log(ctx context.Context, userID, source string, now time.Time) (bool, error) {
	if l.LogError != nil {
		return false, l.LogError
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.UserID == userID && now.Sub(e.LoggedAt) < l.cooldown {
			return false, nil
		}
	}
	l.events = append(l.events, store.Event{
		ID:       uuid.NewString(),
		UserID:   userID,
		LoggedAt: now,
		Source:   source,
	})
	return true, nil
}

func (l *Ledger) LastEvent(ctx context.Context, userID string) (*store.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var last *store.Event
	for i := range l.events {
		e := l.events[i]
		if e.UserID != userID {
			continue
		}
		if last == nil || e.LoggedAt.After(last.LoggedAt) {
			copied := e
			last = &copied
		}
	}
	return last, nil
}

func (l *Ledger) Records(ctx context.Context, filter store.RecordFilter) ([]store.Event, error) {
	if l.RecordsError != nil {
		return nil, l.RecordsError
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	events := make([]store.Event, 0)
	for _, e := range l.events {
		if filter.Matches(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].LoggedAt.Before(events[j].LoggedAt) })
	return events, nil
}
