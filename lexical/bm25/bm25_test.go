package bm25

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpus() []Doc {
	return []Doc{
		{DocID: "d0", Text: "the quick brown fox jumps over the lazy dog"},
		{DocID: "d1", Text: "reset your password using the account recovery flow"},
		{DocID: "d2", Text: "oauth refresh token expired, reauthenticate the user"},
		{DocID: "d3", Text: "the dog barked at the quick fox near the fence"},
	}
}

func TestSearchRanksMatchingDocsFirst(t *testing.T) {
	idx := Build(corpus())
	hits, err := idx.Search("oauth token refresh", 4)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d2", hits[0].DocID)
}

func TestSearchRespectsK(t *testing.T) {
	idx := Build(corpus())
	hits, err := idx.Search("dog fox", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 2)
}

func TestSearchNoMatchesReturnsEmpty(t *testing.T) {
	idx := Build(corpus())
	hits, err := idx.Search("nonexistent terminology zzzqq", 4)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchEmptyCorpus(t *testing.T) {
	idx := Build(nil)
	hits, err := idx.Search("anything", 4)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchDeterministicTieBreakByInsertionOrder(t *testing.T) {
	docs := []Doc{
		{DocID: "a", Text: "shared term"},
		{DocID: "b", Text: "shared term"},
		{DocID: "c", Text: "shared term"},
	}
	idx := Build(docs)
	hits, err := idx.Search("shared term", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{hits[0].DocID, hits[1].DocID, hits[2].DocID})
}

func TestSearchKLargerThanCorpus(t *testing.T) {
	idx := Build(corpus())
	hits, err := idx.Search("dog", 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), len(corpus()))
}

func TestSearchZeroKReturnsNoHits(t *testing.T) {
	idx := Build(corpus())
	hits, err := idx.Search("dog", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchIsRepeatable(t *testing.T) {
	idx := Build(corpus())
	h1, err := idx.Search("password reset", 4)
	require.NoError(t, err)
	h2, err := idx.Search("password reset", 4)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
