// Package storage persists documents, chunks, versions, reference
// vocabulary and chat sessions in SQLite.
//
// The package compiles with either of two drivers selected by build tag:
// modernc.org/sqlite (pure Go, the default) or github.com/mattn/go-sqlite3
// (cgo, tag sqlite_cgo). Schema changes ship as semver-ordered migrations
// applied on open.
//
// # Write semantics
//
// ReplaceChunks supersedes all chunks of a document in a single
// transaction: a concurrent reader sees the full old set or the full new
// set, never a mix. The connection pool is capped to one writer, which
// also serializes concurrent replacements of the same document
// (last commit wins). Deleting a document cascades to its chunks,
// versions and junction rows.
//
// # Error mapping
//
// Driver errors are mapped onto the engine's sentinel kinds: missing rows
// to types.ErrNotFound, constraint violations to types.ErrValidation, and
// everything else to types.ErrStorageUnavailable for the caller to retry.
package storage
