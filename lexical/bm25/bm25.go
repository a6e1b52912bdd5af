package bm25

import (
	"math"
	"sort"
	"strings"

	"github.com/hupe1980/hybridsearch/lexical"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Doc is one corpus document, keyed by doc id, in canonical form.
type Doc struct {
	DocID string
	Text  string
}

type posting struct {
	row   int // insertion order, used for deterministic tie-breaking
	count int
}

// Index is an in-memory BM25 lexical backend built once from a fixed
// corpus. It owns its own tokenization (lowercase, whitespace-split) and
// agrees with the vector index on doc id insertion order.
type Index struct {
	docIDs      []string
	inverted    map[string][]posting
	docLengths  []int
	totalLength int64
}

var _ lexical.Backend = (*Index)(nil)

// Build constructs a BM25 index from docs, in the given order. The order
// is the corpus insertion order used for tie-breaking in Search.
func Build(docs []Doc) *Index {
	idx := &Index{
		docIDs:     make([]string, len(docs)),
		inverted:   make(map[string][]posting),
		docLengths: make([]int, len(docs)),
	}

	for row, d := range docs {
		idx.docIDs[row] = d.DocID

		tokens := tokenize(d.Text)
		idx.docLengths[row] = len(tokens)
		idx.totalLength += int64(len(tokens))

		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t, count := range tf {
			idx.inverted[t] = append(idx.inverted[t], posting{row: row, count: count})
		}
	}

	return idx
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Search returns up to k hits in descending BM25 score order, ties broken
// by ascending corpus insertion order.
func (idx *Index) Search(canonQuery string, k int) ([]lexical.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	n := len(idx.docIDs)
	if n == 0 {
		return nil, nil
	}

	tokens := tokenize(canonQuery)
	scores := make(map[int]float64)

	avgDL := float64(idx.totalLength) / float64(n)

	for _, t := range tokens {
		postings, ok := idx.inverted[t]
		if !ok {
			continue
		}
		idf := idx.computeIDF(len(postings))

		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(idx.docLengths[p.row])

			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/avgDL))
			scores[p.row] += idf * (num / denom)
		}
	}

	type scored struct {
		row   int
		score float64
	}
	all := make([]scored, 0, len(scores))
	for row, s := range scores {
		all = append(all, scored{row: row, score: s})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].row < all[j].row
	})

	if k > len(all) {
		k = len(all)
	}
	hits := make([]lexical.Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = lexical.Hit{DocID: idx.docIDs[all[i].row], Score: float32(all[i].score)}
	}
	return hits, nil
}

func (idx *Index) computeIDF(df int) float64 {
	N := float64(len(idx.docIDs))
	n := float64(df)
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}
