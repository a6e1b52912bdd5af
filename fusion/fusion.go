// Package fusion implements Reciprocal Rank Fusion and the two-tier score
// blend: deterministic, rank-based combination of a lexical and a semantic
// ranked list, with a total order defined by a 4-step tie-break cascade.
//
// Grounded on the rank-sum accumulators seen in the retrieval pack
// (jyang234-ai-engineering-framework's reciprocalRankFusion,
// kailas-cloud-vecdex's internal/usecase/search/rrf.go) and extended with
// per-side weights and the deterministic tie-break cascade the spec
// requires, which neither reference implements.
package fusion

import "sort"

// ScoredID is one entry of a ranked source list handed to RRF: a document
// id at some position, carrying that source's native score.
type ScoredID struct {
	DocID string
	Score float32
}

// Weights are the per-source RRF weights selected by query class.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// RankedHit is a fused candidate. RRFScore holds the RRF sum after RRF, and
// is overwritten with the blended score after Blend (per spec: "the
// blended score replaces the RRF sum"). LexicalScore/VectorScore are the
// source's native score, 0 if the candidate was absent from that source.
type RankedHit struct {
	DocID        string
	RRFScore     float64
	LexicalScore float32
	VectorScore  float32
	InBoth       bool
}

// RRF fuses a lexical and a semantic ranked list by weighted Reciprocal
// Rank Fusion. Both lists are assumed already truncated by the caller (to
// k*candidate_multiplier). Output is sorted by the tie-break cascade and
// truncated to limit (no truncation if limit <= 0).
func RRF(lexicalList, semanticList []ScoredID, w Weights, rrfK float64, limit int) []RankedHit {
	type acc struct {
		rrf      float64
		lexScore float32
		vecScore float32
		inLex    bool
		inVec    bool
	}

	accum := make(map[string]*acc)

	for rank, s := range lexicalList {
		a := accum[s.DocID]
		if a == nil {
			a = &acc{}
			accum[s.DocID] = a
		}
		a.rrf += w.Lexical * (1.0 / (rrfK + float64(rank+1)))
		a.lexScore = s.Score
		a.inLex = true
	}

	for rank, s := range semanticList {
		a := accum[s.DocID]
		if a == nil {
			a = &acc{}
			accum[s.DocID] = a
		}
		a.rrf += w.Semantic * (1.0 / (rrfK + float64(rank+1)))
		a.vecScore = s.Score
		a.inVec = true
	}

	hits := make([]RankedHit, 0, len(accum))
	for id, a := range accum {
		hits = append(hits, RankedHit{
			DocID:        id,
			RRFScore:     a.rrf,
			LexicalScore: a.lexScore,
			VectorScore:  a.vecScore,
			InBoth:       a.inLex && a.inVec,
		})
	}

	sortByTieBreak(hits)

	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits
}

// Blend computes the two-tier REFINED score for each candidate: a
// min-max-normalized blend of its quality score (qualityScores, keyed by
// doc id) and its fast vector score (candidates[i].VectorScore), weighted
// by qualityWeight. The tie-break cascade is re-applied on the blended
// score.
func Blend(candidates []RankedHit, qualityScores map[string]float64, qualityWeight float64) []RankedHit {
	n := len(candidates)
	if n == 0 {
		return candidates
	}

	fastVals := make([]float64, n)
	qualVals := make([]float64, n)
	for i, c := range candidates {
		fastVals[i] = float64(c.VectorScore)
		qualVals[i] = qualityScores[c.DocID]
	}

	fastNorm := minMaxNormalize(fastVals)
	qualNorm := minMaxNormalize(qualVals)

	out := make([]RankedHit, n)
	for i, c := range candidates {
		c.RRFScore = qualityWeight*qualNorm[i] + (1-qualityWeight)*fastNorm[i]
		out[i] = c
	}

	sortByTieBreak(out)
	return out
}

func sortByTieBreak(hits []RankedHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].RRFScore != hits[j].RRFScore {
			return hits[i].RRFScore > hits[j].RRFScore
		}
		if hits[i].InBoth != hits[j].InBoth {
			return hits[i].InBoth
		}
		if hits[i].LexicalScore != hits[j].LexicalScore {
			return hits[i].LexicalScore > hits[j].LexicalScore
		}
		return hits[i].DocID < hits[j].DocID
	})
}

// minMaxNormalize maps vals onto [0,1]; a constant set maps to 0.5 for
// every element (ill-defined min-max range per spec).
func minMaxNormalize(vals []float64) []float64 {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(vals))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range vals {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
