// Package file implements the store contracts on flat, human-inspectable
// files: a JSON document for the enrolled embedding mapping and a JSONL
// append-only log for attendance events. Operators can export or migrate
// the data with standard tools.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

const embeddingsFileName = "embeddings.json"

// userRecord is the on-disk shape of one enrolled user.
type userRecord struct {
	EnrolledAt time.Time   `json:"enrolled_at"`
	Embeddings [][]float64 `json:"embeddings"`
}

// embeddingsFile is the on-disk shape of the full mapping.
type embeddingsFile struct {
	Version   int                   `json:"version"`
	UpdatedAt time.Time             `json:"updated_at"`
	Users     map[string]userRecord `json:"users"`
}

const embeddingsFileVersion = 1

// EmbeddingStore persists the enrolled mapping in a single JSON file.
// Mutations are serialized by a writer mutex; a save writes to a temp
// file in the same directory and renames it over the old one, so readers
// never observe a half-written mapping.
type EmbeddingStore struct {
	path string
	mu   sync.RWMutex
}

// NewEmbeddingStore creates a store backed by <dataDir>/embeddings.json.
func NewEmbeddingStore(dataDir string) (*EmbeddingStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &EmbeddingStore{path: filepath.Join(dataDir, embeddingsFileName)}, nil
}

func (s *EmbeddingStore) readFile() (*embeddingsFile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		// Nothing enrolled yet.
		return &embeddingsFile{Version: embeddingsFileVersion, Users: map[string]userRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", store.ErrStoreUnavailable, s.path, err)
	}

	var f embeddingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: corrupt %s: %v", store.ErrStoreUnavailable, s.path, err)
	}
	if f.Users == nil {
		f.Users = map[string]userRecord{}
	}
	return &f, nil
}

// writeFile commits the document with a temp-file-then-rename sequence.
func (s *EmbeddingStore) writeFile(f *embeddingsFile) error {
	f.Version = embeddingsFileVersion
	f.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding embeddings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".embeddings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Load returns the current enrolled mapping.
func (s *EmbeddingStore) Load(ctx context.Context) (store.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.readFile()
	if err != nil {
		return nil, err
	}
	m := make(store.Mapping, len(f.Users))
	for userID, rec := range f.Users {
		m[userID] = rec.Embeddings
	}
	return m.Clone(), nil
}

// Save atomically replaces the full mapping. Enrollment timestamps of
// existing users are preserved.
func (s *EmbeddingStore) Save(ctx context.Context, m store.Mapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.readFile()
	if err != nil {
		// Backing file unreadable, replace it wholesale.
		prev = &embeddingsFile{Users: map[string]userRecord{}}
	}

	next := &embeddingsFile{Users: make(map[string]userRecord, len(m))}
	now := time.Now().UTC()
	for userID, vectors := range m.Clone() {
		enrolledAt := now
		if old, ok := prev.Users[userID]; ok && !old.EnrolledAt.IsZero() {
			enrolledAt = old.EnrolledAt
		}
		next.Users[userID] = userRecord{EnrolledAt: enrolledAt, Embeddings: vectors}
	}
	return s.writeFile(next)
}

// Upsert appends one vector to a user's record.
func (s *EmbeddingStore) Upsert(ctx context.Context, userID string, embedding []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.readFile()
	if err != nil {
		return err
	}

	vec := make([]float64, len(embedding))
	copy(vec, embedding)

	rec, ok := f.Users[userID]
	if !ok {
		rec = userRecord{EnrolledAt: time.Now().UTC()}
	}
	rec.Embeddings = append(rec.Embeddings, vec)
	f.Users[userID] = rec

	return s.writeFile(f)
}

// Remove deletes a user's record entirely.
func (s *EmbeddingStore) Remove(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.readFile()
	if err != nil {
		return err
	}
	delete(f.Users, userID)
	return s.writeFile(f)
}

// Users lists enrolled users sorted by ID.
func (s *EmbeddingStore) Users(ctx context.Context) ([]store.EnrolledUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.readFile()
	if err != nil {
		return nil, err
	}

	users := make([]store.EnrolledUser, 0, len(f.Users))
	for userID, rec := range f.Users {
		users = append(users, store.EnrolledUser{
			UserID:     userID,
			Embeddings: len(rec.Embeddings),
			EnrolledAt: rec.EnrolledAt,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}
