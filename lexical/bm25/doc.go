// Package bm25 provides an in-memory BM25-based lexical.Backend.
//
// BM25 (Best Matching 25) is a ranking function over an inverted index.
// This implementation is grounded on the teacher's lexical/bm25 package
// (same k1/b constants, same IDF/TF formula) generalized from a single
// incrementally-mutated primary key to a corpus built once from a fixed,
// insertion-ordered document sequence, per the spec's requirement that a
// lexical backend agree with the vector index's insertion order and break
// ties deterministically by it.
//
// # Usage
//
//	idx := bm25.Build([]bm25.Doc{{DocID: "a", Text: canon.Canonicalize(text)}, ...})
//	hits, _ := idx.Search(canon.Canonicalize(query), 10)
//
// # Parameters
//
// Uses standard BM25 parameters: k1=1.2, b=0.75.
package bm25
