package recognizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/retry"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/mock"
)

// stubDetector returns canned detections without touching the network.
type stubDetector struct {
	detections []detector.Detection
	err        error
}

func (s *stubDetector) Detect(ctx context.Context, image []byte) ([]detector.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detections, nil
}

func vec(vals ...float64) []float64 { return vals }

func fastOptions() Options {
	return Options{
		Threshold:   0.6,
		SnapshotTTL: time.Minute,
		Retry: retry.Policy{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		},
	}
}

func seededStore() *mock.EmbeddingStore {
	st := mock.NewEmbeddingStore()
	st.Seed(store.Mapping{
		"alice": {vec(0, 0, 0, 0)},
		"bob":   {vec(10, 10, 10, 10)},
	})
	return st
}

func detection(embedding []float64, box detector.BBox) detector.Detection {
	return detector.Detection{BBox: box, Embedding: embedding, Score: 0.99}
}

func TestRecognizeAndLogKnownFace(t *testing.T) {
	st := seededStore()
	ledger := mock.NewLedger(5 * time.Minute)
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(0.1, 0, 0, 0), detector.BBox{Top: 10, Right: 50, Bottom: 60, Left: 5}),
	}}
	svc := New(det, st, ledger, fastOptions())

	results, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "camera-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.UserID != "alice" {
		t.Errorf("expected alice, got %q", r.UserID)
	}
	if r.Distance >= 0.6 {
		t.Errorf("distance %f should be below threshold", r.Distance)
	}

	events := ledger.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 ledger event, got %d", len(events))
	}
	if events[0].UserID != "alice" || events[0].Source != "camera-1" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestRecognizeAndLogUnknownFace(t *testing.T) {
	st := seededStore()
	ledger := mock.NewLedger(5 * time.Minute)
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(5, 5, 5, 5), detector.BBox{}),
	}}
	svc := New(det, st, ledger, fastOptions())

	results, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].UserID != match.Unknown {
		t.Errorf("expected %q, got %q", match.Unknown, results[0].UserID)
	}
	if len(ledger.Events()) != 0 {
		t.Errorf("expected no ledger events, got %d", len(ledger.Events()))
	}
}

func TestRecognizeAndLogNoFaces(t *testing.T) {
	svc := New(&stubDetector{}, seededStore(), mock.NewLedger(time.Minute), fastOptions())

	results, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestRecognizeAndLogCooldownSuppression(t *testing.T) {
	st := seededStore()
	ledger := mock.NewLedger(5 * time.Minute)
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(0, 0, 0, 0), detector.BBox{}),
	}}
	svc := New(det, st, ledger, fastOptions())

	for i := 0; i < 2; i++ {
		results, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk")
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if results[0].UserID != "alice" {
			t.Fatalf("call %d: expected alice, got %q", i, results[0].UserID)
		}
	}

	// Both calls match; only the first sighting creates an event.
	if len(ledger.Events()) != 1 {
		t.Errorf("expected 1 event, got %d", len(ledger.Events()))
	}
}

func TestRecognizeAndLogLedgerFailureStillReturnsResults(t *testing.T) {
	st := seededStore()
	ledger := mock.NewLedger(time.Minute)
	ledger.LogError = errors.New("disk full")
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(0, 0, 0, 0), detector.BBox{}),
	}}
	svc := New(det, st, ledger, fastOptions())

	results, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk")
	if !errors.Is(err, store.ErrLedgerWriteFailed) {
		t.Errorf("expected ledger write error, got %v", err)
	}
	if len(results) != 1 || results[0].UserID != "alice" {
		t.Fatalf("match results must survive ledger failure, got %v", results)
	}
}

func TestRecognizeAndLogDetectorFailure(t *testing.T) {
	det := &stubDetector{err: detector.ErrDetectionFailed}
	svc := New(det, seededStore(), mock.NewLedger(time.Minute), fastOptions())

	_, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk")
	if !errors.Is(err, detector.ErrDetectionFailed) {
		t.Errorf("expected detection error, got %v", err)
	}
}

func TestRecognizeServesStaleSnapshotWhenStoreDown(t *testing.T) {
	st := seededStore()
	ledger := mock.NewLedger(time.Minute)
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(0, 0, 0, 0), detector.BBox{}),
	}}
	opts := fastOptions()
	opts.SnapshotTTL = time.Millisecond
	svc := New(det, st, ledger, opts)

	if _, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk"); err != nil {
		t.Fatalf("warm-up failed: %v", err)
	}

	// Expire the snapshot and take the store down.
	base := svc.now()
	svc.now = func() time.Time { return base.Add(time.Hour) }
	st.LoadError = errors.New("connection refused")

	results, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk")
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("expected degraded-mode warning, got %v", err)
	}
	if len(results) != 1 || results[0].UserID != "alice" {
		t.Errorf("stale snapshot should still match alice, got %v", results)
	}
}

func TestRecognizeDegradesToEmptySnapshotWhenStoreDown(t *testing.T) {
	st := seededStore()
	st.LoadError = errors.New("connection refused")
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(0, 0, 0, 0), detector.BBox{}),
	}}
	svc := New(det, st, mock.NewLedger(time.Minute), fastOptions())

	results, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk")
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("expected degraded-mode warning, got %v", err)
	}
	if len(results) != 1 || results[0].UserID != match.Unknown {
		t.Errorf("empty snapshot should yield Unknown, got %v", results)
	}
	if results[0].Distance != match.SentinelDistance {
		t.Errorf("expected sentinel distance, got %f", results[0].Distance)
	}
}

func TestEnroll(t *testing.T) {
	st := mock.NewEmbeddingStore()
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(1, 2, 3, 4), detector.BBox{Top: 0, Right: 100, Bottom: 100, Left: 0}),
	}}
	svc := New(det, st, mock.NewLedger(time.Minute), fastOptions())

	res, err := svc.Enroll(context.Background(), "Jiří Novák", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UserID != "jiri_novak" {
		t.Errorf("expected normalized id jiri_novak, got %q", res.UserID)
	}
	if res.Embeddings != 1 {
		t.Errorf("expected 1 embedding, got %d", res.Embeddings)
	}

	mapping, _ := st.Load(context.Background())
	if len(mapping["jiri_novak"]) != 1 {
		t.Errorf("embedding not stored: %v", mapping)
	}
}

func TestEnrollPicksLargestFace(t *testing.T) {
	st := mock.NewEmbeddingStore()
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(1, 1, 1, 1), detector.BBox{Top: 0, Right: 10, Bottom: 10, Left: 0}),
		detection(vec(2, 2, 2, 2), detector.BBox{Top: 0, Right: 200, Bottom: 200, Left: 0}),
	}}
	svc := New(det, st, mock.NewLedger(time.Minute), fastOptions())

	if _, err := svc.Enroll(context.Background(), "carol", []byte("img")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mapping, _ := st.Load(context.Background())
	got := mapping["carol"][0]
	if got[0] != 2 {
		t.Errorf("expected embedding from the larger face, got %v", got)
	}
}

func TestEnrollRejectsInvalidIDs(t *testing.T) {
	svc := New(&stubDetector{}, mock.NewEmbeddingStore(), mock.NewLedger(time.Minute), fastOptions())

	for _, id := range []string{"", "   ", "Unknown", "unknown"} {
		if _, err := svc.Enroll(context.Background(), id, []byte("img")); !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("Enroll(%q): expected ErrInvalidUserID, got %v", id, err)
		}
	}
}

func TestEnrollNoFace(t *testing.T) {
	svc := New(&stubDetector{}, mock.NewEmbeddingStore(), mock.NewLedger(time.Minute), fastOptions())

	if _, err := svc.Enroll(context.Background(), "dave", []byte("img")); !errors.Is(err, ErrNoFace) {
		t.Errorf("expected ErrNoFace, got %v", err)
	}
}

func TestEnrollInvalidatesSnapshot(t *testing.T) {
	st := seededStore()
	ledger := mock.NewLedger(time.Minute)
	det := &stubDetector{detections: []detector.Detection{
		detection(vec(0, 0, 0, 0), detector.BBox{Top: 0, Right: 10, Bottom: 10, Left: 0}),
	}}
	svc := New(det, st, ledger, fastOptions())

	if _, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk"); err != nil {
		t.Fatalf("warm-up failed: %v", err)
	}
	loadsBefore := st.LoadCalls

	if _, err := svc.Enroll(context.Background(), "erin", []byte("img")); err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	if _, err := svc.RecognizeAndLog(context.Background(), []byte("img"), "kiosk"); err != nil {
		t.Fatalf("recognition failed: %v", err)
	}

	if st.LoadCalls <= loadsBefore {
		t.Error("enrollment should force a snapshot reload")
	}
}

func TestRemoveUser(t *testing.T) {
	st := seededStore()
	svc := New(&stubDetector{}, st, mock.NewLedger(time.Minute), fastOptions())

	if err := svc.RemoveUser(context.Background(), "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mapping, _ := st.Load(context.Background())
	if _, ok := mapping["alice"]; ok {
		t.Error("alice should have been removed")
	}

	if err := svc.RemoveUser(context.Background(), "  "); !errors.Is(err, ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestRecordsNormalizesFilterUserID(t *testing.T) {
	ledger := mock.NewLedger(time.Minute)
	now := time.Now()
	if _, err := ledger.Log(context.Background(), "alice", "kiosk", now); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	svc := New(&stubDetector{}, seededStore(), ledger, fastOptions())

	events, err := svc.Records(context.Background(), store.RecordFilter{UserID: "Alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestEnrolledCount(t *testing.T) {
	svc := New(&stubDetector{}, seededStore(), mock.NewLedger(time.Minute), fastOptions())

	count, err := svc.EnrolledCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 enrolled users, got %d", count)
	}
}
