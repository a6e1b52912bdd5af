package vindex

import (
	"fmt"

	"github.com/hupe1980/hybridsearch/internal/f16"
)

// Snapshot is the full, serializable state of an Index, consumed by the
// persistence package for save/load. Row order in Vectors/DocIDs matches
// insertion order.
type Snapshot struct {
	Dimension  int
	Distance   DistanceKind
	EmbedderID string
	DocIDs     []string
	Vectors    [][]uint16 // raw f16 bit patterns, row-major
}

// Snapshot captures the index's current state for persistence. The
// returned value does not alias internal storage.
func (ix *Index) Snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	docIDs := make([]string, len(ix.ids))
	copy(docIDs, ix.ids)

	vectors := make([][]uint16, len(ix.rows))
	for i, row := range ix.rows {
		v := make([]uint16, len(row))
		for j, b := range row {
			v[j] = uint16(b)
		}
		vectors[i] = v
	}

	return &Snapshot{
		Dimension:  ix.dimension,
		Distance:   ix.distance,
		EmbedderID: ix.embedderID,
		DocIDs:     docIDs,
		Vectors:    vectors,
	}
}

// FromSnapshot rebuilds an Index from a previously captured Snapshot.
// It fails with an error if the snapshot is internally inconsistent
// (shape disagreement between DocIDs and Vectors).
func FromSnapshot(snap *Snapshot) (*Index, error) {
	if len(snap.DocIDs) != len(snap.Vectors) {
		return nil, fmt.Errorf("vindex: snapshot shape mismatch: %d doc ids, %d vectors", len(snap.DocIDs), len(snap.Vectors))
	}

	ix, err := New(snap.Dimension, snap.Distance, snap.EmbedderID)
	if err != nil {
		return nil, err
	}

	ix.ids = make([]string, len(snap.DocIDs))
	copy(ix.ids, snap.DocIDs)

	ix.rows = make([][]f16.Bits, len(snap.Vectors))
	ix.rowOf = make(map[string]int, len(ix.ids))

	for i, v := range snap.Vectors {
		if len(v) != snap.Dimension {
			return nil, fmt.Errorf("vindex: snapshot shape mismatch: row %d has %d dims, expected %d", i, len(v), snap.Dimension)
		}
		row := make([]f16.Bits, len(v))
		for j, b := range v {
			row[j] = f16.Bits(b)
		}
		ix.rows[i] = row
		ix.rowOf[ix.ids[i]] = i
	}

	return ix, nil
}
