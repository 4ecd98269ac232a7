// Package index provides the in-memory retrieval indexes of the engine: a
// vector index for cosine similarity search over chunk embeddings and an
// inverted lexical index for term-rank keyword search.
//
// Both indexes are rebuilt from the chunk store on startup and kept current
// by the ingest layer as documents change. They are safe for concurrent use;
// reads proceed under a shared lock while mutations take the exclusive lock.
//
// The vector index scans exhaustively for small corpora and switches to an
// IVF partition layout (coarse k-means centroids, probe the nearest few
// partitions) once the corpus is large enough for the training cost to pay
// off. Exact scan and IVF return identically shaped results; IVF trades a
// little recall for speed.
package index
