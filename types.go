package hybridsearch

import "context"

// Phase identifies which stage of a two-tier search produced a
// SearchResult.
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseRefined
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "INITIAL"
	case PhaseRefined:
		return "REFINED"
	default:
		return "UNKNOWN"
	}
}

// RankedHit is one fused, ranked result. Score is the RRF sum after the
// INITIAL phase, or the blended score after REFINED (the blended score
// replaces the RRF sum). LexicalScore/VectorScore are the source's native
// score, 0 if the candidate was absent from that source; InBoth reports
// whether the candidate appeared in both the lexical and the semantic
// ranked list.
type RankedHit struct {
	DocID        string
	Score        float64
	LexicalScore float32
	VectorScore  float32
	InBoth       bool
}

// SearchResult is one emission of a two-tier search: a complete, ordered
// list of up to k RankedHit for one Phase. Results are never emitted
// partially.
type SearchResult struct {
	Phase Phase
	Hits  []RankedHit
}

// TextResolver supplies the canonical text of a document the orchestrator
// does not itself own (the vector index stores only vectors). It is
// called during the REFINED phase to re-embed INITIAL candidates whose
// stored vector was not produced by the quality embedder.
type TextResolver func(ctx context.Context, docID string) (string, error)

// Reranker is a reserved interface for a caller-supplied third phase
// after REFINED. The orchestrator declares it but never invokes it: no
// third phase is added unless a caller explicitly supplies one and wires
// the call itself.
type Reranker interface {
	ScorePairs(ctx context.Context, query string, docs []string) ([]float64, error)
}
