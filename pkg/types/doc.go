// Package types provides shared domain types for the docvault retrieval
// engine.
//
// # Core Types
//
// Document is a titled unit of content with provenance metadata and
// required classification references (document type, issuing org unit,
// site). Chunk is a contiguous slice of a document's content and the unit
// of retrieval:
//
//	chunk := types.ChunkInput{
//	    Content:    "jumps over the lazy dog",
//	    Embedding:  vec,       // fixed dimensionality, nil allowed
//	    ChunkIndex: 1,         // zero-based, contiguous per document
//	    TokenCount: 6,
//	}
//
// Search results come in three shapes: VectorHit (cosine similarity),
// LexicalHit (term rank) and HybridHit (weighted linear fusion of both).
//
// # Error Kinds
//
// All failure modes are sentinel errors matched with errors.Is:
//
//	if errors.Is(err, types.ErrDimensionMismatch) { ... }
//
// Validation errors (ErrValidation, ErrInvalidArgument,
// ErrDimensionMismatch) are raised before any I/O. ErrStorageUnavailable
// wraps transient store failures and is never retried internally.
package types
