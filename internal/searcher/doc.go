// Package searcher coordinates retrieval across the vector and lexical
// indexes and fuses their results.
//
// Three entry points are provided: SimilaritySearch (cosine over
// embeddings), LexicalSearch (term rank over chunk text) and HybridSearch,
// which runs both concurrently and combines them with a weighted linear
// blend. Hybrid results are cached in an LRU with TTL expiry; the ingest
// layer invalidates the cache whenever the corpus changes.
package searcher
