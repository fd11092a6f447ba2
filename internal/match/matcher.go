// Package match implements nearest-neighbor classification of detected
// face embeddings against an immutable snapshot of the enrolled set.
package match

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Unknown is the sentinel user ID for detections that match nobody.
const Unknown = "Unknown"

// SentinelDistance is reported when there is nothing to match against.
// Negative, so it cannot collide with a real Euclidean distance.
const SentinelDistance = -1

// Result is the outcome of matching one detected embedding.
type Result struct {
	UserID   string
	Distance float64
}

// Known reports whether the result identifies an enrolled user.
func (r Result) Known() bool {
	return r.UserID != Unknown
}

type entry struct {
	userID string
	vector []float64
}

// Snapshot is a point-in-time, immutable copy of the enrolled set. All
// detections of one recognition call are matched against the same
// snapshot, so enrollment changes mid-call cannot skew results. Users
// with zero stored vectors are dropped at construction: they cannot be
// matched and cannot win ties.
type Snapshot struct {
	entries []entry
	users   int
	index   *annIndex
}

// NewSnapshot builds a snapshot from a store mapping. Entries are held
// in lexical user ID order, which makes tie-breaking deterministic:
// when two users sit at the identical minimal distance, the first one
// scanned (the lexically smaller ID) wins.
func NewSnapshot(m store.Mapping) *Snapshot {
	userIDs := make([]string, 0, len(m))
	for userID, vectors := range m {
		if len(vectors) == 0 {
			continue
		}
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	s := &Snapshot{users: len(userIDs)}
	for _, userID := range userIDs {
		for _, v := range m[userID] {
			s.entries = append(s.entries, entry{userID: userID, vector: v})
		}
	}
	return s
}

// Users returns the number of matchable users in the snapshot.
func (s *Snapshot) Users() int { return s.users }

// Vectors returns the total number of stored vectors in the snapshot.
func (s *Snapshot) Vectors() int { return len(s.entries) }

// Empty reports whether there is nothing to match against.
func (s *Snapshot) Empty() bool { return len(s.entries) == 0 }

// distance is the Euclidean (L2) distance between two vectors. Vectors
// of mismatched dimension are incomparable and report no match.
func distance(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	return floats.Distance(a, b, 2), true
}

// Match classifies one embedding against the snapshot. It computes the
// minimum distance to any stored vector per user (best-of-N for
// multi-photo enrollment) and accepts the globally nearest user when
// that distance is strictly below threshold. Pure function of its
// inputs: same snapshot and embedding always yield the same result.
func (s *Snapshot) Match(embedding []float64, threshold float64) Result {
	if s.Empty() {
		return Result{UserID: Unknown, Distance: SentinelDistance}
	}

	if s.index != nil {
		if r, ok := s.index.match(embedding, threshold); ok {
			return r
		}
	}
	return s.scan(embedding, threshold)
}

// scan is the exact linear path over every stored vector.
func (s *Snapshot) scan(embedding []float64, threshold float64) Result {
	best := Result{UserID: Unknown, Distance: SentinelDistance}
	found := false
	for _, e := range s.entries {
		d, ok := distance(embedding, e.vector)
		if !ok {
			continue
		}
		// Strict less keeps the first (lexically smallest) user on ties.
		if !found || d < best.Distance {
			best = Result{UserID: e.userID, Distance: d}
			found = true
		}
	}
	if !found {
		return Result{UserID: Unknown, Distance: SentinelDistance}
	}
	if best.Distance >= threshold {
		best.UserID = Unknown
	}
	return best
}
