package recognizer

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/match"
)

// snapshotCache holds the last loaded match snapshot. Enrollment writes
// invalidate it; an expired snapshot is still kept around so recognition
// can keep answering while the store is down.
type snapshotCache struct {
	mu      sync.Mutex
	snap    *match.Snapshot
	validTo time.Time
}

func (c *snapshotCache) get(now time.Time) *match.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil || now.After(c.validTo) {
		return nil
	}
	return c.snap
}

// stale returns the last snapshot regardless of expiry.
func (c *snapshotCache) stale() *match.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *snapshotCache) put(snap *match.Snapshot, validTo time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.validTo = validTo
}

func (c *snapshotCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validTo = time.Time{}
}
