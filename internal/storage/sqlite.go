package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db  *sql.DB
	dim int
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer; this also serializes concurrent
	// ReplaceChunks calls for the same document (last committed wins)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys so document deletion cascades to chunks/versions
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance. dimension is the
// system-wide embedding dimensionality; <= 0 selects the default.
func NewSQLiteStorage(dbPath string, dimension int) (*SQLiteStorage, error) {
	if dimension <= 0 {
		dimension = types.DefaultEmbeddingDim
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w: %v", types.ErrStorageUnavailable, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, dim: dimension}, nil
}

// Dimension returns the embedding dimensionality the store validates against
func (s *SQLiteStorage) Dimension() int {
	return s.dim
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// dbErr maps a driver error onto the engine's error kinds. Constraint
// violations are caller mistakes (ErrValidation); everything else from the
// driver is treated as a transient store failure the caller may retry.
func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	msg := err.Error()
	if strings.Contains(msg, "constraint") || strings.Contains(msg, "CONSTRAINT") {
		return fmt.Errorf("%s: %w: %s", op, types.ErrValidation, msg)
	}
	return fmt.Errorf("%s: %w: %s", op, types.ErrStorageUnavailable, msg)
}

// encodeMetadata serializes a metadata map for storage; nil becomes "{}"
func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("%w: metadata not serializable: %v", types.ErrValidation, err)
	}
	return string(raw), nil
}

// decodeMetadata parses stored metadata; malformed rows decode to empty
func decodeMetadata(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Document operations

func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *types.Document) error {
	if doc.Status == "" {
		doc.Status = types.StatusActive
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	if doc.ID == "" {
		// Ids are assigned here, not by storage-layer defaults
		doc.ID = uuid.NewString()
	}

	meta, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	var authorID any
	if doc.AuthorID != nil {
		authorID = *doc.AuthorID
	}
	var effective any
	if doc.EffectiveDate != nil {
		effective = *doc.EffectiveDate
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (
			id, title, source, content, metadata,
			document_type_id, issuing_unit_id, site_id, author_id, effective_date,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		doc.ID, doc.Title, doc.Source, doc.Content, meta,
		doc.DocumentTypeID, doc.IssuingUnitID, doc.SiteID, authorID, effective,
		string(doc.Status), now, now,
	)
	return dbErr("create document", err)
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	query := `
		SELECT id, title, source, content, metadata,
		       document_type_id, issuing_unit_id, site_id, author_id, effective_date,
		       status, created_at, updated_at
		FROM documents
		WHERE id = ?
	`
	var (
		doc       types.Document
		meta      string
		status    string
		authorID  sql.NullString
		effective sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Title, &doc.Source, &doc.Content, &meta,
		&doc.DocumentTypeID, &doc.IssuingUnitID, &doc.SiteID, &authorID, &effective,
		&status, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, dbErr("get document", err)
	}

	doc.Metadata = decodeMetadata(meta)
	doc.Status = types.DocumentStatus(status)
	if authorID.Valid {
		doc.AuthorID = &authorID.String
	}
	if effective.Valid {
		t := effective.Time
		doc.EffectiveDate = &t
	}
	return &doc, nil
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context, opts ListOptions) ([]*types.DocumentSummary, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	query := `
		SELECT d.id, d.title, d.source, d.status, d.metadata,
		       d.created_at, d.updated_at, COUNT(c.id) AS chunk_count
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
	`
	var conds []string
	var args []any
	if opts.Status != "" {
		conds = append(conds, "d.status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.DocumentTypeID != "" {
		conds = append(conds, "d.document_type_id = ?")
		args = append(args, opts.DocumentTypeID)
	}
	if opts.SiteID != "" {
		conds = append(conds, "d.site_id = ?")
		args = append(args, opts.SiteID)
	}
	if opts.IssuingUnitID != "" {
		conds = append(conds, "d.issuing_unit_id = ?")
		args = append(args, opts.IssuingUnitID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += `
		GROUP BY d.id
		ORDER BY d.created_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list documents", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.DocumentSummary
	for rows.Next() {
		var (
			sum    types.DocumentSummary
			meta   string
			status string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Source, &status, &meta,
			&sum.CreatedAt, &sum.UpdatedAt, &sum.ChunkCount); err != nil {
			return nil, dbErr("list documents", err)
		}
		sum.Status = types.DocumentStatus(status)
		sum.Metadata = decodeMetadata(meta)
		out = append(out, &sum)
	}
	return out, dbErr("list documents", rows.Err())
}

func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *types.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}

	meta, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	var authorID any
	if doc.AuthorID != nil {
		authorID = *doc.AuthorID
	}
	var effective any
	if doc.EffectiveDate != nil {
		effective = *doc.EffectiveDate
	}

	doc.UpdatedAt = time.Now()
	query := `
		UPDATE documents SET
			title = ?, source = ?, content = ?, metadata = ?,
			document_type_id = ?, issuing_unit_id = ?, site_id = ?,
			author_id = ?, effective_date = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		doc.Title, doc.Source, doc.Content, meta,
		doc.DocumentTypeID, doc.IssuingUnitID, doc.SiteID,
		authorID, effective, string(doc.Status), doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		return dbErr("update document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update document %s: %w", doc.ID, types.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	// Chunks, versions and junction rows go with the document via
	// ON DELETE CASCADE; orphaned chunks must never exist
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return dbErr("delete document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete document %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// Chunk store operations

// documentExists reports whether a document row exists, using the given
// querier so it can run inside a transaction
func documentExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceChunks atomically supersedes all chunks of a document. Validation
// runs before the transaction opens; the delete+insert pair commits as one
// unit so readers never observe a partial replacement.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, documentID string, chunks []types.ChunkInput) ([]*types.Chunk, error) {
	if err := types.ValidateChunkInputs(chunks, s.dim); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbErr("replace chunks", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := documentExists(ctx, tx, documentID)
	if err != nil {
		return nil, dbErr("replace chunks", err)
	}
	if !ok {
		return nil, fmt.Errorf("replace chunks: document %s: %w", documentID, types.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return nil, dbErr("replace chunks", err)
	}

	// Insert in index order so the returned slice is already ordered
	ordered := make([]types.ChunkInput, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ChunkIndex < ordered[j].ChunkIndex })

	now := time.Now()
	out := make([]*types.Chunk, 0, len(ordered))
	for _, in := range ordered {
		meta, err := encodeMetadata(in.Metadata)
		if err != nil {
			return nil, err
		}
		tokens := in.TokenCount
		if tokens <= 0 {
			tokens = types.EstimateTokenCount(in.Content)
		}

		var blob any
		if in.Embedding != nil {
			blob = serializeVector(in.Embedding)
		}

		chunk := &types.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ChunkIndex: in.ChunkIndex,
			Content:    in.Content,
			Embedding:  in.Embedding,
			TokenCount: tokens,
			Metadata:   decodeMetadata(meta),
			CreatedAt:  now,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, content, embedding, token_count, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, chunk.ID, documentID, chunk.ChunkIndex, chunk.Content, blob, tokens, meta, now)
		if err != nil {
			return nil, dbErr("replace chunks", err)
		}
		out = append(out, chunk)
	}

	if err := tx.Commit(); err != nil {
		return nil, dbErr("replace chunks", err)
	}
	return out, nil
}

// GetDocumentChunks returns all chunks of a document ordered by chunk index.
// A document with no chunks yields an empty slice; an unknown document id is
// ErrNotFound.
func (s *SQLiteStorage) GetDocumentChunks(ctx context.Context, documentID string) ([]*types.Chunk, error) {
	ok, err := documentExists(ctx, s.db, documentID)
	if err != nil {
		return nil, dbErr("get document chunks", err)
	}
	if !ok {
		return nil, fmt.Errorf("get document chunks: document %s: %w", documentID, types.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, embedding, token_count, metadata, created_at
		FROM chunks
		WHERE document_id = ?
		ORDER BY chunk_index ASC
	`, documentID)
	if err != nil {
		return nil, dbErr("get document chunks", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*types.Chunk, 0)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, dbErr("get document chunks", err)
		}
		out = append(out, chunk)
	}
	return out, dbErr("get document chunks", rows.Err())
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, embedding, token_count, metadata, created_at
		FROM chunks
		WHERE id = ?
	`, chunkID)
	if err != nil {
		return nil, dbErr("get chunk", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, dbErr("get chunk", err)
		}
		return nil, fmt.Errorf("get chunk %s: %w", chunkID, types.ErrNotFound)
	}
	chunk, err := scanChunk(rows)
	if err != nil {
		return nil, dbErr("get chunk", err)
	}
	return chunk, nil
}

// scanChunk reads one chunk row from a result set positioned on it
func scanChunk(rows *sql.Rows) (*types.Chunk, error) {
	var (
		chunk  types.Chunk
		blob   []byte
		tokens sql.NullInt64
		meta   string
	)
	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex,
		&chunk.Content, &blob, &tokens, &meta, &chunk.CreatedAt); err != nil {
		return nil, err
	}
	if blob != nil {
		chunk.Embedding = deserializeVector(blob)
	}
	chunk.TokenCount = int(tokens.Int64)
	chunk.Metadata = decodeMetadata(meta)
	return &chunk, nil
}

// GetChunkMeta hydrates search results: for each requested chunk id, the
// chunk content/metadata plus the owning document's title and source
func (s *SQLiteStorage) GetChunkMeta(ctx context.Context, chunkIDs []string) (map[string]*ChunkMeta, error) {
	out := make(map[string]*ChunkMeta, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.content, c.metadata, d.title, d.source
		FROM chunks c
		INNER JOIN documents d ON d.id = c.document_id
		WHERE c.id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, dbErr("get chunk meta", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cm ChunkMeta
		var meta string
		if err := rows.Scan(&cm.ChunkID, &cm.DocumentID, &cm.Content, &meta,
			&cm.DocumentTitle, &cm.DocumentSource); err != nil {
			return nil, dbErr("get chunk meta", err)
		}
		cm.Metadata = decodeMetadata(meta)
		out[cm.ChunkID] = &cm
	}
	return out, dbErr("get chunk meta", rows.Err())
}

// AllChunkRefs returns the projection the in-memory indexes rebuild from
func (s *SQLiteStorage) AllChunkRefs(ctx context.Context) ([]ChunkRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, token_count, embedding
		FROM chunks
	`)
	if err != nil {
		return nil, dbErr("all chunk refs", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChunkRef
	for rows.Next() {
		var (
			ref    ChunkRef
			tokens sql.NullInt64
			blob   []byte
		)
		if err := rows.Scan(&ref.ChunkID, &ref.DocumentID, &ref.Content, &tokens, &blob); err != nil {
			return nil, dbErr("all chunk refs", err)
		}
		ref.TokenCount = int(tokens.Int64)
		if blob != nil {
			ref.Embedding = deserializeVector(blob)
		}
		out = append(out, ref)
	}
	return out, dbErr("all chunk refs", rows.Err())
}

// Version operations

func (s *SQLiteStorage) CreateVersion(ctx context.Context, v *types.DocumentVersion) error {
	if v.Version == "" {
		return fmt.Errorf("%w: version label cannot be empty", types.ErrValidation)
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_versions (id, document_id, version, change_summary, content, file_path, mime_type, file_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.DocumentID, v.Version, v.ChangeSummary, v.Content, v.FilePath, v.MimeType, v.FileSize, v.CreatedAt)
	return dbErr("create version", err)
}

func (s *SQLiteStorage) GetVersion(ctx context.Context, documentID, version string) (*types.DocumentVersion, error) {
	var v types.DocumentVersion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, version, change_summary, content, file_path, mime_type, file_size, created_at
		FROM document_versions
		WHERE document_id = ? AND version = ?
	`, documentID, version).Scan(
		&v.ID, &v.DocumentID, &v.Version, &v.ChangeSummary, &v.Content,
		&v.FilePath, &v.MimeType, &v.FileSize, &v.CreatedAt,
	)
	if err != nil {
		return nil, dbErr("get version", err)
	}
	return &v, nil
}

func (s *SQLiteStorage) ListVersions(ctx context.Context, documentID string) ([]*types.DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, version, change_summary, content, file_path, mime_type, file_size, created_at
		FROM document_versions
		WHERE document_id = ?
		ORDER BY created_at DESC, version DESC
	`, documentID)
	if err != nil {
		return nil, dbErr("list versions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.DocumentVersion
	for rows.Next() {
		var v types.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Version, &v.ChangeSummary, &v.Content,
			&v.FilePath, &v.MimeType, &v.FileSize, &v.CreatedAt); err != nil {
			return nil, dbErr("list versions", err)
		}
		out = append(out, &v)
	}
	return out, dbErr("list versions", rows.Err())
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	st := &Status{
		Dimension:     s.dim,
		SchemaVersion: CurrentSchemaVersion,
		DriverName:    DriverName,
		BuildMode:     BuildMode,
	}

	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM documents", &st.DocumentsCount},
		{"SELECT COUNT(*) FROM chunks", &st.ChunksCount},
		{"SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL", &st.EmbeddedCount},
		{"SELECT COUNT(*) FROM document_versions", &st.VersionsCount},
		{"SELECT COUNT(*) FROM sessions", &st.SessionsCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, dbErr("get status", err)
		}
	}
	return st, nil
}
