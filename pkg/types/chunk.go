package types

import (
	"fmt"
	"time"
)

// DefaultEmbeddingDim is the system-wide embedding dimensionality used when
// the store is opened without an explicit value.
const DefaultEmbeddingDim = 1024

// ChunkInput is the record an ingestion pipeline supplies for one slice of
// a document. Embedding may be nil for chunks that were not embedded; such
// chunks never appear in similarity results.
type ChunkInput struct {
	Content    string
	Embedding  []float32 // nil = no embedding
	ChunkIndex int
	TokenCount int
	Metadata   map[string]any
}

// Chunk is a stored slice of a document's content. (DocumentID, ChunkIndex)
// is unique; chunks are ordered and gapless so the source document can be
// reconstructed by concatenation.
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	Embedding  []float32 // nil = no embedding
	TokenCount int
	Metadata   map[string]any
	CreatedAt  time.Time
}

// ValidateChunkInputs checks that a replacement chunk set has unique,
// zero-based, contiguous indices and that every present embedding matches
// the store dimension. Runs before any I/O.
func ValidateChunkInputs(chunks []ChunkInput, dimension int) error {
	seen := make(map[int]bool, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.Content == "" {
			return fmt.Errorf("%w: chunk %d has empty content", ErrValidation, i)
		}
		if c.ChunkIndex < 0 || c.ChunkIndex >= len(chunks) {
			return fmt.Errorf("%w: chunk index %d out of range [0,%d)", ErrValidation, c.ChunkIndex, len(chunks))
		}
		if seen[c.ChunkIndex] {
			return fmt.Errorf("%w: duplicate chunk index %d", ErrValidation, c.ChunkIndex)
		}
		seen[c.ChunkIndex] = true
		if c.Embedding != nil && len(c.Embedding) != dimension {
			return fmt.Errorf("%w: chunk %d has %d components, store uses %d",
				ErrDimensionMismatch, c.ChunkIndex, len(c.Embedding), dimension)
		}
	}
	return nil
}

// EstimateTokenCount estimates tokens for a text using the chars/4
// heuristic. Used when the ingestion pipeline does not supply a count.
func EstimateTokenCount(text string) int {
	return len(text) / 4
}
