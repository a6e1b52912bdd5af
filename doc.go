// Package hybridsearch fuses a lexical (BM25-family) scorer with a dense
// vector scorer by Reciprocal Rank Fusion, and exposes results as a
// two-phase stream: an INITIAL phase computed by a fast embedder and
// delivered with minimum latency, followed by an optional REFINED phase
// that re-embeds the top candidates with a higher-quality embedder and
// blends the two ranking signals.
//
// # Quick start
//
//	idx, _ := vindex.New(dim, vindex.Cosine, fastEmbedder.ModelID())
//	lex := bm25.Build(docs)
//	orc, _ := hybridsearch.New(idx, fastEmbedder,
//	    hybridsearch.WithLexicalBackend(lex),
//	)
//	stream, _ := orc.Search(ctx, "oauth refresh", 10)
//	for {
//	    result, ok, err := stream.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println(result.Phase, result.Hits)
//	}
//
// # Two-tier results
//
// A search call returns a Stream with length 1 or 2: at most one INITIAL
// SearchResult, followed by at most one REFINED SearchResult. Neither a
// missing REFINED phase nor a cancelled search is surfaced as an error —
// both are observable only as stream length.
package hybridsearch
