package hybridsearch

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/hybridsearch/canon"
	"github.com/hupe1980/hybridsearch/embed"
	"github.com/hupe1980/hybridsearch/fusion"
	"github.com/hupe1980/hybridsearch/lexical"
	"github.com/hupe1980/hybridsearch/qclass"
	"github.com/hupe1980/hybridsearch/vindex"
)

// Orchestrator is a staged, cancellable producer of INITIAL and REFINED
// SearchResult values over one vector index. It owns no mutable state
// beyond what is supplied at construction; Search is safe for concurrent
// callers.
type Orchestrator struct {
	index *vindex.Index
	fast  embed.Embedder
	opts  options
}

// New constructs an Orchestrator over an existing vector index and fast
// embedder. A quality embedder and a lexical backend are both optional
// (supplied via WithQualityEmbedder and WithLexicalBackend); omitting
// either degrades the fused ranking gracefully, per spec.
func New(index *vindex.Index, fastEmbedder embed.Embedder, optFns ...Option) (*Orchestrator, error) {
	if index == nil {
		return nil, &ValidationError{Field: "index", Reason: "must not be nil"}
	}
	if fastEmbedder == nil {
		return nil, &ValidationError{Field: "fastEmbedder", Reason: "must not be nil"}
	}

	o := &Orchestrator{
		index: index,
		fast:  fastEmbedder,
		opts:  applyOptions(optFns),
	}
	return o, nil
}

// WithQualityEmbedder configures the higher-quality embedder used by the
// REFINED phase. Pass nil (the default) to disable the REFINED phase.
func WithQualityEmbedder(e embed.Embedder) Option {
	return func(o *options) {
		o.quality = e
	}
}

// WithLexicalBackend configures the BM25-family backend fused alongside
// the vector index. Pass nil (the default) to run vector-only search.
func WithLexicalBackend(b lexical.Backend) Option {
	return func(o *options) {
		o.lexicalBackend = b
	}
}

// Search canonicalizes query, classifies it, and returns a Stream that
// yields an INITIAL SearchResult and then, unless the configuration or
// circumstances rule it out, a REFINED SearchResult.
func (o *Orchestrator) Search(ctx context.Context, query string, k int) (*Stream, error) {
	if k <= 0 {
		return nil, &ValidationError{Field: "k", Reason: "must be positive"}
	}

	canonQuery := canon.Canonicalize(query)
	class := qclass.Classify(canonQuery)

	if class == qclass.Empty {
		return &Stream{done: true, emittedEmpty: true}, nil
	}

	return &Stream{
		orc:        o,
		canonQuery: canonQuery,
		class:      class,
		k:          k,
		state:      streamPendingInitial,
	}, nil
}

type streamState int

const (
	streamPendingInitial streamState = iota
	streamPendingRefined
	streamDone
)

// Stream is a pull-based, two-emission state machine: at most one INITIAL
// SearchResult followed by at most one REFINED SearchResult. Next blocks
// until the next phase is ready, or returns ok=false once the sequence is
// exhausted. It is not safe for concurrent use by multiple goroutines.
type Stream struct {
	orc        *Orchestrator
	canonQuery string
	class      qclass.Class
	k          int
	state      streamState

	// carried from INITIAL into REFINED
	initialHits []fusion.RankedHit

	done         bool
	emittedEmpty bool
}

// Next advances the stream by one phase. ok is false once the stream is
// exhausted; err is non-nil only for failures the spec treats as real
// errors (validation, fast-path embedder failure) — timeouts and a
// skipped REFINED phase are communicated solely by ok==false, never err.
func (s *Stream) Next(ctx context.Context) (*SearchResult, bool, error) {
	if s.done {
		if s.emittedEmpty {
			s.emittedEmpty = false
			return &SearchResult{Phase: PhaseInitial, Hits: nil}, true, nil
		}
		return nil, false, nil
	}

	select {
	case <-ctx.Done():
		s.state = streamDone
		s.done = true
		return nil, false, nil
	default:
	}

	switch s.state {
	case streamPendingInitial:
		return s.emitInitial(ctx)
	case streamPendingRefined:
		return s.emitRefined(ctx)
	default:
		s.done = true
		return nil, false, nil
	}
}

func (s *Stream) emitInitial(ctx context.Context) (*SearchResult, bool, error) {
	start := time.Now()
	o := s.orc
	candidateK := s.k * o.opts.config.CandidateMultiplier

	var (
		vecHits []vindex.Hit
		lexHits []lexical.Hit
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec, err := o.fast.Embed(gctx, s.canonQuery)
		if err != nil {
			return &EmbedderError{ModelID: o.fast.ModelID(), Phase: PhaseInitial, cause: err}
		}
		hits, err := o.index.Search(vec, candidateK)
		if err != nil {
			return fmt.Errorf("hybridsearch: vector search: %w", err)
		}
		vecHits = hits
		return nil
	})

	if o.opts.lexicalBackend != nil {
		g.Go(func() error {
			hits, err := o.opts.lexicalBackend.Search(s.canonQuery, candidateK)
			if err != nil {
				return fmt.Errorf("hybridsearch: lexical search: %w", err)
			}
			lexHits = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.opts.metricsCollector.RecordPhase(PhaseInitial, time.Since(start), err)
		o.opts.logger.LogSearch(ctx, PhaseInitial, s.k, 0, err)
		s.state = streamDone
		s.done = true
		return nil, false, err
	}

	wLex, wSem := qclass.Weights(s.class)
	fused := fusion.RRF(
		toScoredIDs(lexHits),
		toScoredIDsFromVec(vecHits),
		fusion.Weights{Lexical: wLex, Semantic: wSem},
		o.opts.config.RRFK,
		s.k,
	)

	s.initialHits = fused
	result := &SearchResult{Phase: PhaseInitial, Hits: toRankedHits(fused)}

	o.opts.metricsCollector.RecordPhase(PhaseInitial, time.Since(start), nil)
	o.opts.logger.LogSearch(ctx, PhaseInitial, s.k, len(result.Hits), nil)

	if o.opts.config.FastOnly || o.opts.quality == nil {
		s.state = streamDone
		s.done = true
	} else {
		s.state = streamPendingRefined
	}
	return result, true, nil
}

func (s *Stream) emitRefined(ctx context.Context) (*SearchResult, bool, error) {
	start := time.Now()
	o := s.orc
	s.state = streamDone
	s.done = true

	quality := o.opts.quality

	deadline := time.Duration(o.opts.config.QualityTimeoutMS) * time.Millisecond
	qctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	qualityScores, err := s.scoreCandidatesByQuality(qctx, quality)
	if err == nil {
		// An embedder that does not watch ctx can return after the
		// deadline or a cancellation; REFINED is dropped in that case too.
		err = qctx.Err()
	}
	if err != nil {
		o.opts.metricsCollector.RecordQualityDegraded()
		o.opts.logger.LogQualityDegraded(ctx, err.Error())
		return nil, false, nil
	}

	blended := fusion.Blend(s.initialHits, qualityScores, o.opts.config.QualityWeight)
	result := &SearchResult{Phase: PhaseRefined, Hits: toRankedHits(blended)}

	o.opts.metricsCollector.RecordPhase(PhaseRefined, time.Since(start), nil)
	o.opts.logger.LogSearch(ctx, PhaseRefined, s.k, len(result.Hits), nil)
	return result, true, nil
}

// scoreCandidatesByQuality computes, for each INITIAL candidate, its
// cosine/dot score against the query under the quality embedder's space.
// If the candidate's stored vector already came from the quality
// embedder it is reused; otherwise the candidate's canonical text is
// resolved via the registered TextResolver and re-embedded.
func (s *Stream) scoreCandidatesByQuality(ctx context.Context, quality embed.Embedder) (map[string]float64, error) {
	o := s.orc

	queryVec, err := quality.Embed(ctx, s.canonQuery)
	if err != nil {
		return nil, &EmbedderError{ModelID: quality.ModelID(), Phase: PhaseRefined, cause: err}
	}

	sameEmbedder := o.index.EmbedderID() == quality.ModelID()

	var toResolve []string
	if !sameEmbedder {
		if o.opts.textResolver == nil {
			return nil, &ValidationError{Field: "textResolver", Reason: "required to re-embed candidates for a distinct quality embedder"}
		}
		for _, h := range s.initialHits {
			toResolve = append(toResolve, h.DocID)
		}
	}

	texts := make(map[string]string, len(toResolve))
	for _, docID := range toResolve {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := o.opts.textResolver(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("hybridsearch: resolve text for %q: %w", docID, err)
		}
		texts[docID] = text
	}

	batch := make([]string, 0, len(texts))
	order := make([]string, 0, len(texts))
	for docID, text := range texts {
		order = append(order, docID)
		batch = append(batch, text)
	}

	var reEmbedded map[string][]float32
	if len(batch) > 0 {
		vectors, err := quality.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, &EmbedderError{ModelID: quality.ModelID(), Phase: PhaseRefined, cause: err}
		}
		reEmbedded = make(map[string][]float32, len(order))
		for i, docID := range order {
			reEmbedded[docID] = vectors[i]
		}
	}

	scores := make(map[string]float64, len(s.initialHits))
	for _, h := range s.initialHits {
		var candidateVec []float32
		if sameEmbedder {
			vec, ok := o.index.VectorFor(h.DocID)
			if !ok {
				continue
			}
			candidateVec = vec
		} else {
			vec, ok := reEmbedded[h.DocID]
			if !ok {
				continue
			}
			candidateVec = vec
		}
		scores[h.DocID] = float64(cosineOrDot(o.index.DistanceKind(), queryVec, candidateVec))
	}
	return scores, nil
}

// cosineOrDot scores a and b under distance, matching the vector index's
// own scoring rule so fast and quality scores live on comparable scales.
func cosineOrDot(distance vindex.DistanceKind, a, b []float32) float32 {
	if distance == vindex.Cosine {
		a = normalizeL2(a)
		b = normalizeL2(b)
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalizeL2(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func toScoredIDs(hits []lexical.Hit) []fusion.ScoredID {
	out := make([]fusion.ScoredID, len(hits))
	for i, h := range hits {
		out[i] = fusion.ScoredID{DocID: h.DocID, Score: h.Score}
	}
	return out
}

func toScoredIDsFromVec(hits []vindex.Hit) []fusion.ScoredID {
	out := make([]fusion.ScoredID, len(hits))
	for i, h := range hits {
		out[i] = fusion.ScoredID{DocID: h.DocID, Score: h.Score}
	}
	return out
}

func toRankedHits(hits []fusion.RankedHit) []RankedHit {
	out := make([]RankedHit, len(hits))
	for i, h := range hits {
		out[i] = RankedHit{
			DocID:        h.DocID,
			Score:        h.RRFScore,
			LexicalScore: h.LexicalScore,
			VectorScore:  h.VectorScore,
			InBoth:       h.InBoth,
		}
	}
	return out
}
