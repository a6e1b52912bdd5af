// Package vindex implements the exact, brute-force dense vector top-k
// engine: an append-only, f16-quantized matrix keyed by document id.
//
// Grounded on the teacher's index/flat package (dimension/distance
// validation, brute-force scoring), with its copy-on-write state replaced
// by a sync.RWMutex and trimmed to the spec's exactness contract: no ANN,
// no sharding, no quantization beyond f16 storage, no WAL.
package vindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hupe1980/hybridsearch/internal/f16"
)

// DistanceKind selects the scoring function used by Search.
type DistanceKind int

const (
	// Cosine requires stored rows to be L2-normalized; queries are
	// normalized on search. Scores are in [-1, 1].
	Cosine DistanceKind = iota
	// Dot scores the raw dot product; vectors are stored as provided.
	Dot
)

func (d DistanceKind) String() string {
	switch d {
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	default:
		return "unknown"
	}
}

// ParseDistanceKind parses the persisted "cosine"|"dot" string.
func ParseDistanceKind(s string) (DistanceKind, error) {
	switch s {
	case "cosine":
		return Cosine, nil
	case "dot":
		return Dot, nil
	default:
		return 0, fmt.Errorf("vindex: unknown distance kind %q", s)
	}
}

// ErrDuplicateID is returned by Add when doc_id is already known.
type ErrDuplicateID struct {
	DocID string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("vindex: duplicate doc id %q", e.DocID)
}

// ErrDimensionMismatch is returned by Add/Search when a vector's length
// disagrees with the index's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vindex: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Hit is a single scored result.
type Hit struct {
	DocID string
	Score float32
}

// Index owns an append-only matrix of f16 vectors keyed by document id.
// Mutations (Add) are serialized with a write lock; reads (Search) proceed
// concurrently with each other.
type Index struct {
	mu sync.RWMutex

	dimension  int
	distance   DistanceKind
	embedderID string

	rows  [][]f16.Bits // row-major; rows[i] has length dimension
	ids   []string     // ids[i] is the doc id stored at row i
	rowOf map[string]int
}

// New creates an empty vector index. dimension must be > 0 and embedderID
// must be non-empty: both are fixed for the lifetime of the index.
func New(dimension int, distance DistanceKind, embedderID string) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vindex: dimension must be > 0, got %d", dimension)
	}
	if embedderID == "" {
		return nil, fmt.Errorf("vindex: embedderID must be non-empty")
	}
	return &Index{
		dimension:  dimension,
		distance:   distance,
		embedderID: embedderID,
		rowOf:      make(map[string]int),
	}, nil
}

// Dimension returns the fixed vector dimensionality.
func (ix *Index) Dimension() int { return ix.dimension }

// DistanceKind returns the configured distance kind.
func (ix *Index) DistanceKind() DistanceKind { return ix.distance }

// EmbedderID returns the embedder id recorded for this index's vectors.
func (ix *Index) EmbedderID() string { return ix.embedderID }

// Count returns the number of live rows.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.rows)
}

// Add appends vector under doc_id. It fails with ErrDuplicateID if doc_id
// is already known, or *ErrDimensionMismatch if len(vector) != Dimension.
// No partial state is visible on failure.
func (ix *Index) Add(docID string, vector []float32) error {
	if len(vector) != ix.dimension {
		return &ErrDimensionMismatch{Expected: ix.dimension, Actual: len(vector)}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.rowOf[docID]; exists {
		return &ErrDuplicateID{DocID: docID}
	}

	stored := vector
	if ix.distance == Cosine {
		stored = normalizeL2(vector)
	}

	row := make([]f16.Bits, ix.dimension)
	f16.Encode(row, stored)

	ix.rows = append(ix.rows, row)
	ix.ids = append(ix.ids, docID)
	ix.rowOf[docID] = len(ix.ids) - 1

	return nil
}

// Search returns the exact top-k hits by descending score, ties broken by
// ascending insertion (row) order. Length is min(k, Count()).
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dimension {
		return nil, &ErrDimensionMismatch{Expected: ix.dimension, Actual: len(query)}
	}
	if k <= 0 {
		return nil, fmt.Errorf("vindex: k must be positive, got %d", k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.rows)
	if n == 0 {
		return nil, nil
	}

	q := query
	if ix.distance == Cosine {
		q = normalizeL2(query)
	}

	type scored struct {
		row   int
		score float32
	}
	all := make([]scored, n)
	buf := make([]float32, ix.dimension)
	for i, row := range ix.rows {
		f16.Decode(buf, row)
		all[i] = scored{row: i, score: dot(q, buf)}
	}

	sort.SliceStable(all, func(a, b int) bool {
		if all[a].score != all[b].score {
			return all[a].score > all[b].score
		}
		return all[a].row < all[b].row
	})

	if k > n {
		k = n
	}

	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{DocID: ix.ids[all[i].row], Score: all[i].score}
	}
	return hits, nil
}

// VectorFor returns the stored (decoded, post-normalization) vector for
// docID, or ok=false if docID is not present.
func (ix *Index) VectorFor(docID string) (vector []float32, ok bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	row, exists := ix.rowOf[docID]
	if !exists {
		return nil, false
	}
	buf := make([]float32, ix.dimension)
	f16.Decode(buf, ix.rows[row])
	return buf, true
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalizeL2 returns an L2-normalized copy of v. A zero vector is returned
// unchanged (scored 0 against any query, per spec).
func normalizeL2(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	inv := float32(1 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
