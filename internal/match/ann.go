package match

import (
	"errors"
	"sort"

	"github.com/coder/hnsw"
)

// HNSW parameters for candidate search over enrolled face vectors.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// annCandidates is how many nearest vectors the graph is asked for.
	// Oversized on purpose: candidates are re-ranked with exact float64
	// distances, so the graph only has to put the true winner somewhere
	// in the candidate set.
	annCandidates = 48
)

// annIndex accelerates matching for large enrolled sets. The graph
// holds float32 copies of the vectors keyed by entry position; the
// final decision always re-ranks candidates with the exact float64
// distance, so threshold and tie-break semantics are identical to the
// linear scan.
type annIndex struct {
	graph   *hnsw.Graph[int]
	entries []entry
}

// BuildIndex builds the HNSW candidate index over the snapshot. Worth
// it only for enrolled sets past a few hundred vectors; the caller
// decides based on its configured cutoff. The snapshot stays usable
// without it.
func (s *Snapshot) BuildIndex() error {
	if s.Empty() {
		return errors.New("cannot index an empty snapshot")
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for i, e := range s.entries {
		vec := make([]float32, len(e.vector))
		for j, c := range e.vector {
			vec[j] = float32(c)
		}
		g.Add(hnsw.MakeNode(i, vec))
	}

	s.index = &annIndex{graph: g, entries: s.entries}
	return nil
}

// Indexed reports whether the ANN index has been built.
func (s *Snapshot) Indexed() bool { return s.index != nil }

// match runs candidate search plus exact re-rank. Returns ok=false when
// the graph produced no usable candidates, in which case the caller
// falls back to the linear scan.
func (i *annIndex) match(embedding []float64, threshold float64) (Result, bool) {
	query := make([]float32, len(embedding))
	for j, c := range embedding {
		query[j] = float32(c)
	}

	k := annCandidates
	if k > len(i.entries) {
		k = len(i.entries)
	}
	neighbors := i.graph.Search(query, k)
	if len(neighbors) == 0 {
		return Result{}, false
	}

	// Exact re-rank in lexical user order for deterministic ties.
	ids := make([]int, 0, len(neighbors))
	for _, n := range neighbors {
		ids = append(ids, n.Key)
	}
	sort.Ints(ids) // entries are stored sorted by user ID

	best := Result{UserID: Unknown, Distance: SentinelDistance}
	found := false
	for _, id := range ids {
		e := i.entries[id]
		d, ok := distance(embedding, e.vector)
		if !ok {
			continue
		}
		if !found || d < best.Distance {
			best = Result{UserID: e.userID, Distance: d}
			found = true
		}
	}
	if !found {
		return Result{}, false
	}
	if best.Distance >= threshold {
		best.UserID = Unknown
	}
	return best, true
}
