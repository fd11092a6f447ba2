// Package recognizer orchestrates the full pipeline: face detection,
// embedding match against enrolled users, and attendance logging with
// duplicate suppression.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/detector"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/retry"
	"github.com/kozaktomas/face-attendance/internal/store"
)

var (
	// ErrNoFace is returned by Enroll when the detector finds no face.
	ErrNoFace = errors.New("no face found in image")
	// ErrInvalidUserID is returned by Enroll for empty or sentinel user IDs.
	ErrInvalidUserID = errors.New("invalid user id")
)

// MatchResult describes one detected face and its closest enrolled user.
// Attendance logging is a side effect of recognition and is not part of
// the result shape; callers learn about write failures from the error
// return.
type MatchResult struct {
	UserID   string        `json:"user_id"`
	Distance float64       `json:"distance"`
	BBox     detector.BBox `json:"bbox"`
}

// Known reports whether the face matched an enrolled user.
func (r MatchResult) Known() bool {
	return r.UserID != match.Unknown
}

// EnrollResult summarizes an enrollment write.
type EnrollResult struct {
	UserID     string `json:"user_id"`
	Embeddings int    `json:"embeddings"`
}

// Options tune the recognizer service.
type Options struct {
	Threshold   float64       // strict upper bound on match distance
	ANNCutoff   int           // build an ANN index above this many vectors; 0 disables
	SnapshotTTL time.Duration // how long a loaded snapshot may be reused
	Retry       retry.Policy
}

// Service is the attendance pipeline. Matching runs against an immutable
// snapshot of the enrollment store, so concurrent enrollments never tear a
// recognition mid-flight.
type Service struct {
	detector detector.Detector
	store    store.EmbeddingStore
	ledger   store.Ledger
	opts     Options

	cache snapshotCache

	now func() time.Time
}

// New creates a Service. Zero option fields fall back to safe defaults.
func New(det detector.Detector, st store.EmbeddingStore, ledger store.Ledger, opts Options) *Service {
	if opts.Threshold <= 0 {
		opts.Threshold = constants.DefaultDistanceThreshold
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = 5 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy
	}
	return &Service{
		detector: det,
		store:    st,
		ledger:   ledger,
		opts:     opts,
		now:      time.Now,
	}
}

// RecognizeAndLog detects faces in image, matches each against the enrolled
// users and logs attendance for every known match. Results are returned even
// when some ledger writes fail; the joined write errors come back alongside.
func (s *Service) RecognizeAndLog(ctx context.Context, image []byte, source string) ([]MatchResult, error) {
	detections, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(detections) == 0 {
		return []MatchResult{}, nil
	}

	// One snapshot per request so every face in the image is matched
	// against the same enrollment state. A store outage degrades to the
	// last-good (or empty) snapshot and is reported alongside the results.
	snap, degraded := s.snapshot(ctx)

	now := s.now()
	results := make([]MatchResult, 0, len(detections))
	var errs []error
	if degraded != nil {
		errs = append(errs, degraded)
	}
	for _, d := range detections {
		m := snap.Match(d.Embedding, s.opts.Threshold)
		res := MatchResult{
			UserID:   m.UserID,
			Distance: m.Distance,
			BBox:     d.BBox,
		}
		if res.Known() {
			if err := s.logAttendance(ctx, res.UserID, source, now); err != nil {
				errs = append(errs, fmt.Errorf("log attendance for %q: %w", res.UserID, err))
			}
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// Recognize matches faces without touching the attendance ledger.
func (s *Service) Recognize(ctx context.Context, image []byte) ([]MatchResult, error) {
	detections, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(detections) == 0 {
		return []MatchResult{}, nil
	}

	snap, degraded := s.snapshot(ctx)

	results := make([]MatchResult, 0, len(detections))
	for _, d := range detections {
		m := snap.Match(d.Embedding, s.opts.Threshold)
		results = append(results, MatchResult{UserID: m.UserID, Distance: m.Distance, BBox: d.BBox})
	}
	return results, degraded
}

// Enroll stores a face embedding for userID, taken from the largest face in
// the image. The ID is normalized before storage; the "Unknown" sentinel and
// empty IDs are rejected.
func (s *Service) Enroll(ctx context.Context, userID string, image []byte) (EnrollResult, error) {
	userID = NormalizeUserID(userID)
	if userID == "" || userID == NormalizeUserID(match.Unknown) {
		return EnrollResult{}, ErrInvalidUserID
	}

	detections, err := s.detector.Detect(ctx, image)
	if err != nil {
		return EnrollResult{}, fmt.Errorf("face detection failed: %w", err)
	}
	if len(detections) == 0 {
		return EnrollResult{}, ErrNoFace
	}

	best := largestFace(detections)
	err = s.opts.Retry.Do(ctx, func() error {
		return s.store.Upsert(ctx, userID, best.Embedding)
	})
	if err != nil {
		return EnrollResult{}, fmt.Errorf("store embedding for %q: %w", userID, err)
	}

	// Enrollment changed the store; next recognition must see it.
	s.cache.invalidate()

	count := 1
	users, err := s.store.Users(ctx)
	if err == nil {
		for _, u := range users {
			if u.UserID == userID {
				count = u.Embeddings
				break
			}
		}
	}

	return EnrollResult{UserID: userID, Embeddings: count}, nil
}

// Users lists enrolled users with their embedding counts.
func (s *Service) Users(ctx context.Context) ([]store.EnrolledUser, error) {
	var users []store.EnrolledUser
	err := s.opts.Retry.Do(ctx, func() error {
		var err error
		users, err = s.store.Users(ctx)
		return err
	})
	return users, err
}

// RemoveUser deletes all embeddings for userID.
func (s *Service) RemoveUser(ctx context.Context, userID string) error {
	userID = NormalizeUserID(userID)
	if userID == "" {
		return ErrInvalidUserID
	}
	err := s.opts.Retry.Do(ctx, func() error {
		return s.store.Remove(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

// Records returns attendance events matching filter, oldest first.
func (s *Service) Records(ctx context.Context, filter store.RecordFilter) ([]store.Event, error) {
	filter.UserID = NormalizeUserID(filter.UserID)
	var events []store.Event
	err := s.opts.Retry.Do(ctx, func() error {
		var err error
		events, err = s.ledger.Records(ctx, filter)
		return err
	})
	return events, err
}

// EnrolledCount reports the number of distinct enrolled users.
func (s *Service) EnrolledCount(ctx context.Context) (int, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

func (s *Service) logAttendance(ctx context.Context, userID, source string, now time.Time) error {
	return s.opts.Retry.Do(ctx, func() error {
		if _, err := s.ledger.Log(ctx, userID, source, now); err != nil {
			return fmt.Errorf("%w: %v", store.ErrLedgerWriteFailed, err)
		}
		return nil
	})
}

// snapshot returns the current match snapshot, reloading from the store when
// the cached one has expired. A snapshot always comes back: when the store is
// unreachable the last good snapshot (or an empty one) is served and the
// outage is returned as a degraded-mode warning.
func (s *Service) snapshot(ctx context.Context) (*match.Snapshot, error) {
	if snap := s.cache.get(s.now()); snap != nil {
		return snap, nil
	}

	var mapping store.Mapping
	err := s.opts.Retry.Do(ctx, func() error {
		var err error
		mapping, err = s.store.Load(ctx)
		return err
	})
	if err != nil {
		degraded := fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		if stale := s.cache.stale(); stale != nil {
			log.Printf("embedding store unavailable, serving stale snapshot: %v", err)
			return stale, degraded
		}
		log.Printf("embedding store unavailable, no cached snapshot: %v", err)
		return match.NewSnapshot(nil), degraded
	}

	snap := match.NewSnapshot(mapping)
	if s.opts.ANNCutoff > 0 && snap.Vectors() >= s.opts.ANNCutoff {
		if err := snap.BuildIndex(); err != nil {
			log.Printf("ann index build failed, falling back to exact scan: %v", err)
		}
	}
	s.cache.put(snap, s.now().Add(s.opts.SnapshotTTL))
	return snap, nil
}

func largestFace(detections []detector.Detection) detector.Detection {
	best := detections[0]
	bestArea := best.BBox.Area()
	for _, d := range detections[1:] {
		if a := d.BBox.Area(); a > bestArea {
			best = d
			bestArea = a
		}
	}
	return best
}
