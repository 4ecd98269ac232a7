// Package ingest coordinates the document pipeline: chunk -> embed ->
// store -> index.
//
// Every mutation keeps the chunk store and both in-memory indexes in
// agreement and invalidates the search cache. Versions are recorded as
// immutable snapshots on every ingest, so any prior state of a document
// can be rolled back to; a rollback itself produces a new version rather
// than rewriting history.
package ingest
