package file

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

func newTestLedger(t *testing.T, cooldown time.Duration) *Ledger {
	t.Helper()
	l, err := NewLedger(t.TempDir(), cooldown)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	return l
}

func TestLedger_DuplicateSuppression(t *testing.T) {
	l := newTestLedger(t, 5*time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	logged, err := l.Log(ctx, "alice", "camera", now)
	if err != nil {
		t.Fatalf("first log failed: %v", err)
	}
	if !logged {
		t.Fatal("first log should create an event")
	}

	// Second detection one minute later is suppressed.
	logged, err = l.Log(ctx, "alice", "camera", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second log failed: %v", err)
	}
	if logged {
		t.Error("log within cooldown should be suppressed")
	}

	// Third detection after the cooldown creates a second event.
	logged, err = l.Log(ctx, "alice", "camera", now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("third log failed: %v", err)
	}
	if !logged {
		t.Error("log after cooldown should create an event")
	}

	events, err := l.Records(ctx, store.RecordFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected exactly 2 stored events, got %d", len(events))
	}
}

func TestLedger_ConcurrentLogSingleEvent(t *testing.T) {
	l := newTestLedger(t, 5*time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	const n = 32
	var wg sync.WaitGroup
	logged := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Log(ctx, "bob", "camera", now)
			if err != nil {
				t.Errorf("log failed: %v", err)
				return
			}
			logged <- ok
		}()
	}
	wg.Wait()
	close(logged)

	success := 0
	for ok := range logged {
		if ok {
			success++
		}
	}
	if success != 1 {
		t.Errorf("expected exactly 1 successful log, got %d", success)
	}

	events, err := l.Records(ctx, store.RecordFilter{UserID: "bob"})
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected exactly 1 stored event, got %d", len(events))
	}
}

func TestLedger_RangeQueryInclusive(t *testing.T) {
	l := newTestLedger(t, time.Minute)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(10 * time.Minute)
	t3 := t1.Add(20 * time.Minute)
	for _, ts := range []time.Time{t1, t2, t3} {
		if ok, err := l.Log(ctx, "alice", "camera", ts); err != nil || !ok {
			t.Fatalf("log at %v failed: ok=%v err=%v", ts, ok, err)
		}
	}

	events, err := l.Records(ctx, store.RecordFilter{UserID: "alice", Start: t1, End: t2})
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events in [t1, t2], got %d", len(events))
	}
	if !events[0].LoggedAt.Equal(t1) || !events[1].LoggedAt.Equal(t2) {
		t.Errorf("expected events at t1 and t2 ascending, got %v and %v", events[0].LoggedAt, events[1].LoggedAt)
	}
}

func TestLedger_RecordsNoMatchReturnsEmpty(t *testing.T) {
	l := newTestLedger(t, time.Minute)
	ctx := context.Background()

	events, err := l.Records(ctx, store.RecordFilter{UserID: "nobody"})
	if err != nil {
		t.Fatalf("records should never fail on unmatched filters: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", events)
	}
}

func TestLedger_LastEvent(t *testing.T) {
	l := newTestLedger(t, time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	e, err := l.LastEvent(ctx, "alice")
	if err != nil {
		t.Fatalf("last event failed: %v", err)
	}
	if e != nil {
		t.Errorf("expected nil for user without events, got %+v", e)
	}

	if _, err := l.Log(ctx, "alice", "web-ui", now); err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if _, err := l.Log(ctx, "alice", "camera", now.Add(2*time.Minute)); err != nil {
		t.Fatalf("log failed: %v", err)
	}

	e, err = l.LastEvent(ctx, "alice")
	if err != nil {
		t.Fatalf("last event failed: %v", err)
	}
	if e == nil {
		t.Fatal("expected an event")
	}
	if e.Source != "camera" || !e.LoggedAt.Equal(now.Add(2*time.Minute)) {
		t.Errorf("expected most recent event, got %+v", e)
	}
}

func TestLedger_ReopenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLedger(dir, 5*time.Minute)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, err := l.Log(ctx, "alice", "camera", now); err != nil {
		t.Fatalf("log failed: %v", err)
	}

	// A fresh ledger over the same file must still suppress duplicates.
	reopened, err := NewLedger(dir, 5*time.Minute)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	logged, err := reopened.Log(ctx, "alice", "camera", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if logged {
		t.Error("reopened ledger should suppress duplicate within cooldown")
	}
}
