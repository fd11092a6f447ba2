package file

import (
	"bufio"
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

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/store"
)

const ledgerFileName = "attendance.jsonl"

// Ledger is an append-only attendance log stored as one JSON event per
// line. Duplicate suppression uses an in-memory last-event index built
// at open time; the check-then-append sequence for one user is guarded
// by a per-user lock so concurrent detections cannot double-log.
type Ledger struct {
	path     string
	cooldown time.Duration

	fileMu sync.Mutex // serializes all file I/O

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex // per-user locks for Log

	lastMu sync.RWMutex
	last   map[string]store.Event // most recent event per user
}

// NewLedger opens (or creates) <dataDir>/attendance.jsonl and indexes the
// most recent event per user.
func NewLedger(dataDir string, cooldown time.Duration) (*Ledger, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	l := &Ledger{
		path:     filepath.Join(dataDir, ledgerFileName),
		cooldown: cooldown,
		keys:     make(map[string]*sync.Mutex),
		last:     make(map[string]store.Event),
	}

	events, err := l.readAll()
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		prev, ok := l.last[e.UserID]
		if !ok || e.LoggedAt.After(prev.LoggedAt) {
			l.last[e.UserID] = e
		}
	}
	return l, nil
}

// userLock returns the lock for one user, creating it on first use.
func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.keyMu.Lock()
	defer l.keyMu.Unlock()
	mu, ok := l.keys[userID]
	if !ok {
		mu = &sync.Mutex{}
		l.keys[userID] = mu
	}
	return mu
}

func (l *Ledger) readAll() ([]store.Event, error) {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", l.path, err)
	}
	defer f.Close()

	var events []store.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e store.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("corrupt ledger line %d in %s: %w", line, l.path, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	return events, nil
}

// append writes one event line. The event is fully on disk (or the write
// has failed) before append returns; cancellation mid-call never leaves
// a half-written line visible to the index.
func (l *Ledger) append(e store.Event) error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", store.ErrLedgerWriteFailed, l.path, err)
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %v", store.ErrLedgerWriteFailed, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: appending to %s: %v", store.ErrLedgerWriteFailed, l.path, err)
	}
	return nil
}

// Log appends a new event unless the user already has one inside the
// cooldown window. Returns true when a new event was written.
func (l *Ledger) Log(ctx context.Context, userID, source string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	l.lastMu.RLock()
	prev, ok := l.last[userID]
	l.lastMu.RUnlock()

	if ok && now.Sub(prev.LoggedAt) < l.cooldown {
		return false, nil
	}

	e := store.Event{
		ID:       uuid.NewString(),
		UserID:   userID,
		LoggedAt: now.UTC(),
		Source:   source,
	}
	if err := l.append(e); err != nil {
		return false, err
	}

	l.lastMu.Lock()
	l.last[userID] = e
	l.lastMu.Unlock()
	return true, nil
}

// LastEvent returns the most recent event for a user, or nil.
func (l *Ledger) LastEvent(ctx context.Context, userID string) (*store.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.lastMu.RLock()
	defer l.lastMu.RUnlock()
	if e, ok := l.last[userID]; ok {
		copied := e
		return &copied, nil
	}
	return nil, nil
}

// Records returns matching events ordered by timestamp ascending.
func (l *Ledger) Records(ctx context.Context, filter store.RecordFilter) ([]store.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := l.readAll()
	if err != nil {
		return nil, err
	}

	events := make([]store.Event, 0)
	for _, e := range all {
		if filter.Matches(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].LoggedAt.Before(events[j].LoggedAt) })
	return events, nil
}
