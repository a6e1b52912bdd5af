package hybridsearch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hybridsearch/embed"
	"github.com/hupe1980/hybridsearch/lexical/bm25"
	"github.com/hupe1980/hybridsearch/vindex"
)

func buildIndex(t *testing.T, fast embed.Embedder) (*vindex.Index, []bm25.Doc) {
	t.Helper()
	ix, err := vindex.New(fast.Dimension(), vindex.Cosine, fast.ModelID())
	require.NoError(t, err)

	texts := map[string]string{
		"doc-0": "reset your password using the account recovery flow",
		"doc-1": "oauth refresh token expired, please reauthenticate",
		"doc-2": "the quick brown fox jumps over the lazy dog",
		"doc-3": "billing invoice payment failed for subscription",
	}
	var docs []bm25.Doc
	for id, text := range texts {
		vec, err := fast.Embed(context.Background(), text)
		require.NoError(t, err)
		require.NoError(t, ix.Add(id, vec))
		docs = append(docs, bm25.Doc{DocID: id, Text: text})
	}
	return ix, docs
}

func TestSearchEmptyQueryYieldsSingleEmptyResult(t *testing.T) {
	fast := embed.NewHash(32)
	ix, _ := buildIndex(t, fast)
	orc, err := New(ix, fast)
	require.NoError(t, err)

	stream, err := orc.Search(context.Background(), "   ", 5)
	require.NoError(t, err)

	result, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseInitial, result.Phase)
	assert.Empty(t, result.Hits)

	_, ok, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchRejectsNonPositiveK(t *testing.T) {
	fast := embed.NewHash(16)
	ix, _ := buildIndex(t, fast)
	orc, err := New(ix, fast)
	require.NoError(t, err)

	_, err = orc.Search(context.Background(), "password", 0)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestNewRejectsNilArgs(t *testing.T) {
	fast := embed.NewHash(8)
	ix, err := vindex.New(8, vindex.Cosine, fast.ModelID())
	require.NoError(t, err)

	_, err = New(nil, fast)
	assert.Error(t, err)

	_, err = New(ix, nil)
	assert.Error(t, err)
}

func TestFastOnlyNeverEmitsRefined(t *testing.T) {
	fast := embed.NewHash(32)
	ix, docs := buildIndex(t, fast)

	cfg := DefaultTwoTierConfig()
	cfg.FastOnly = true

	orc, err := New(ix, fast,
		WithConfig(cfg),
		WithLexicalBackend(bm25.Build(docs)),
		WithQualityEmbedder(embed.NewHash(32)),
	)
	require.NoError(t, err)

	stream, err := orc.Search(context.Background(), "password reset", 3)
	require.NoError(t, err)

	result, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseInitial, result.Phase)

	_, ok, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "FastOnly must never yield a REFINED phase")
}

func TestNoQualityEmbedderNeverEmitsRefined(t *testing.T) {
	fast := embed.NewHash(32)
	ix, docs := buildIndex(t, fast)

	orc, err := New(ix, fast, WithLexicalBackend(bm25.Build(docs)))
	require.NoError(t, err)

	stream, err := orc.Search(context.Background(), "payment failed", 3)
	require.NoError(t, err)

	_, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefinedPhaseEmittedWithSameEmbedder(t *testing.T) {
	fast := embed.NewHash(32)
	ix, docs := buildIndex(t, fast)

	// The quality embedder shares fast's model id, so scoreCandidatesByQuality
	// reuses stored vectors instead of requiring a TextResolver.
	quality := embed.NewHash(32)
	orc, err := New(ix, fast,
		WithLexicalBackend(bm25.Build(docs)),
		WithQualityEmbedder(quality),
	)
	require.NoError(t, err)

	stream, err := orc.Search(context.Background(), "oauth token", 3)
	require.NoError(t, err)

	initial, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseInitial, initial.Phase)

	refined, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseRefined, refined.Phase)

	_, ok, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefinedPhaseRequiresTextResolverForDistinctEmbedder(t *testing.T) {
	fast := embed.NewHash(32)
	ix, docs := buildIndex(t, fast)

	distinctQuality := &fixedModelIDEmbedder{Embedder: embed.NewHash(32), modelID: "other-model"}
	orc, err := New(ix, fast,
		WithLexicalBackend(bm25.Build(docs)),
		WithQualityEmbedder(distinctQuality),
	)
	require.NoError(t, err)

	mc := &BasicMetricsCollector{}
	orc.opts.metricsCollector = mc

	stream, err := orc.Search(context.Background(), "billing invoice", 3)
	require.NoError(t, err)

	_, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "missing TextResolver must degrade, not error")
	assert.Equal(t, int64(1), mc.GetStats().RefinedDegraded)
}

func TestRefinedPhaseDegradesOnQualityEmbedderFailure(t *testing.T) {
	fast := embed.NewHash(32)
	ix, docs := buildIndex(t, fast)

	orc, err := New(ix, fast,
		WithLexicalBackend(bm25.Build(docs)),
		WithQualityEmbedder(&failingEmbedder{}),
	)
	require.NoError(t, err)

	stream, err := orc.Search(context.Background(), "billing invoice", 3)
	require.NoError(t, err)

	_, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	result, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, result)
}

func TestSearchCancellationStopsStream(t *testing.T) {
	fast := embed.NewHash(32)
	ix, docs := buildIndex(t, fast)

	orc, err := New(ix, fast, WithLexicalBackend(bm25.Build(docs)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream, err := orc.Search(ctx, "password", 3)
	require.NoError(t, err)

	_, ok, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVectorOnlySearchWithoutLexicalBackend(t *testing.T) {
	fast := embed.NewHash(32)
	ix, _ := buildIndex(t, fast)

	orc, err := New(ix, fast)
	require.NoError(t, err)

	stream, err := orc.Search(context.Background(), "fox dog", 2)
	require.NoError(t, err)

	result, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, result.Hits)
}

type fixedModelIDEmbedder struct {
	embed.Embedder
	modelID string
}

func (f *fixedModelIDEmbedder) ModelID() string { return f.modelID }

type failingEmbedder struct{}

func (f *failingEmbedder) ModelID() string  { return "failing" }
func (f *failingEmbedder) Dimension() int   { return 32 }
func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("quality embedder unavailable")
}
func (f *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quality embedder unavailable")
}
