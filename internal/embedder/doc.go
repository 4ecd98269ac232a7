// Package embedder turns text into embedding vectors for the vector index.
//
// Two providers are available: HTTPProvider speaks the OpenAI-compatible
// /v1/embeddings protocol to any hosted or local model server, and
// LocalProvider produces deterministic hash-derived vectors for offline use
// and tests. Both share an LRU cache keyed by content hash, and HTTP calls
// retry with exponential backoff.
//
// Every provider emits vectors of the system embedding dimension; mixed
// dimensions are rejected at the store and index boundaries, so the
// embedder is configured once and pads or truncates never.
package embedder
