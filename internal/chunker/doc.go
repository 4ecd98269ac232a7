// Package chunker splits document text into indexable chunks.
//
// Text is divided on paragraph boundaries first; paragraphs that exceed
// the token budget are further split on sentence boundaries, and adjacent
// small pieces are packed together up to the budget. Chunk indexes are
// zero-based and contiguous in document order, which is what the chunk
// store requires.
package chunker
