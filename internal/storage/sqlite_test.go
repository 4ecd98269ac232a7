package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

const testDim = 8

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:", testDim)
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

// seedRefs creates the reference rows a document needs and returns their ids
func seedRefs(t *testing.T, s *SQLiteStorage) (docType, orgUnit, site string) {
	t.Helper()
	ctx := context.Background()

	dt := &types.DocumentType{Name: "procedure", IsActive: true}
	require.NoError(t, s.CreateDocumentType(ctx, dt))
	ou := &types.OrgUnit{Name: "maintenance", IsActive: true}
	require.NoError(t, s.CreateOrgUnit(ctx, ou))
	st := &types.Site{Name: "plant-a", IsActive: true}
	require.NoError(t, s.CreateSite(ctx, st))
	return dt.ID, ou.ID, st.ID
}

func seedDocument(t *testing.T, s *SQLiteStorage, title string) *types.Document {
	t.Helper()
	dt, ou, site := seedRefs(t, s)
	doc := &types.Document{
		Title:          title,
		Source:         title + ".pdf",
		Content:        "full text of " + title,
		DocumentTypeID: dt,
		IssuingUnitID:  ou,
		SiteID:         site,
		Status:         types.StatusActive,
	}
	require.NoError(t, s.CreateDocument(context.Background(), doc))
	return doc
}

func embedding(fill float32) []float32 {
	v := make([]float32, testDim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
	assert.Equal(t, testDim, storage.Dimension())
}

func TestNewSQLiteStorageDefaultDimension(t *testing.T) {
	storage, err := NewSQLiteStorage(":memory:", 0)
	require.NoError(t, err)
	defer storage.Close()
	assert.Equal(t, types.DefaultEmbeddingDim, storage.Dimension())
}

func TestCreateDocument(t *testing.T) {
	s := setupTestDB(t)
	doc := seedDocument(t, s, "pump manual")

	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := s.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "pump manual", got.Title)
	assert.Equal(t, types.StatusActive, got.Status)
	assert.NotNil(t, got.Metadata)
}

func TestCreateDocumentMissingReferences(t *testing.T) {
	s := setupTestDB(t)
	doc := &types.Document{
		Title:          "orphan",
		DocumentTypeID: "nope",
		IssuingUnitID:  "nope",
		SiteID:         "nope",
	}
	err := s.CreateDocument(context.Background(), doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestGetDocumentNotFound(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateDocument(t *testing.T) {
	s := setupTestDB(t)
	doc := seedDocument(t, s, "valve procedure")

	doc.Title = "valve procedure rev B"
	doc.Status = types.StatusArchived
	require.NoError(t, s.UpdateDocument(context.Background(), doc))

	got, err := s.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "valve procedure rev B", got.Title)
	assert.Equal(t, types.StatusArchived, got.Status)
}

func TestListDocuments(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "first")

	// Second document reuses the same reference rows
	other := &types.Document{
		Title:          "second",
		DocumentTypeID: doc.DocumentTypeID,
		IssuingUnitID:  doc.IssuingUnitID,
		SiteID:         doc.SiteID,
		Status:         types.StatusArchived,
	}
	require.NoError(t, s.CreateDocument(ctx, other))

	all, err := s.ListDocuments(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	archived, err := s.ListDocuments(ctx, ListOptions{Status: types.StatusArchived})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "second", archived[0].Title)
}

func TestReplaceChunksRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "round trip")

	inputs := []types.ChunkInput{
		{Content: "the quick brown fox", ChunkIndex: 0, Embedding: embedding(0.1), TokenCount: 4},
		{Content: "jumps over the lazy dog", ChunkIndex: 1, Embedding: embedding(0.2), TokenCount: 5},
		{Content: "unrelated content about finance", ChunkIndex: 2, TokenCount: 4},
	}
	stored, err := s.ReplaceChunks(ctx, doc.ID, inputs)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	got, err := s.GetDocumentChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, inputs[i].Content, c.Content)
	}
	// Embeddings survive the blob round trip; the unembedded chunk stays nil
	assert.Equal(t, embedding(0.1), got[0].Embedding)
	assert.Nil(t, got[2].Embedding)
}

func TestReplaceChunksOutOfOrderInput(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "shuffled")

	inputs := []types.ChunkInput{
		{Content: "c", ChunkIndex: 2},
		{Content: "a", ChunkIndex: 0},
		{Content: "b", ChunkIndex: 1},
	}
	stored, err := s.ReplaceChunks(ctx, doc.ID, inputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"},
		[]string{stored[0].Content, stored[1].Content, stored[2].Content})
}

func TestReplaceChunksAtomicReplace(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "replaced")

	first := []types.ChunkInput{
		{Content: "old one", ChunkIndex: 0},
		{Content: "old two", ChunkIndex: 1},
		{Content: "old three", ChunkIndex: 2},
	}
	_, err := s.ReplaceChunks(ctx, doc.ID, first)
	require.NoError(t, err)

	second := []types.ChunkInput{
		{Content: "new one", ChunkIndex: 0},
		{Content: "new two", ChunkIndex: 1},
	}
	_, err = s.ReplaceChunks(ctx, doc.ID, second)
	require.NoError(t, err)

	// Exactly the chunks of the second call remain: no duplicates, no leftovers
	got, err := s.GetDocumentChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new one", got[0].Content)
	assert.Equal(t, "new two", got[1].Content)
}

func TestReplaceChunksValidation(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "validated")

	_, err := s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{
		{Content: "a", ChunkIndex: 0},
		{Content: "b", ChunkIndex: 0},
	})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{
		{Content: "a", ChunkIndex: 0, Embedding: make([]float32, testDim+1)},
	})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)

	// Failed validation must not have touched existing chunks
	_, err = s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{{Content: "keep", ChunkIndex: 0}})
	require.NoError(t, err)
	_, err = s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{
		{Content: "x", ChunkIndex: 0},
		{Content: "y", ChunkIndex: 2},
	})
	assert.ErrorIs(t, err, types.ErrValidation)
	got, err := s.GetDocumentChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].Content)
}

func TestReplaceChunksUnknownDocument(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.ReplaceChunks(context.Background(), "missing", []types.ChunkInput{
		{Content: "a", ChunkIndex: 0},
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGetDocumentChunksEmpty(t *testing.T) {
	s := setupTestDB(t)
	doc := seedDocument(t, s, "empty")

	// A document with no chunks yields an empty slice, not an error
	got, err := s.GetDocumentChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.GetDocumentChunks(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "doomed")

	_, err := s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{{Content: "a", ChunkIndex: 0}})
	require.NoError(t, err)
	require.NoError(t, s.CreateVersion(ctx, &types.DocumentVersion{
		DocumentID: doc.ID, Version: "1.0", ChangeSummary: "initial",
	}))

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	// No orphaned chunks or versions may exist after the cascade
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM document_versions").Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID), types.ErrNotFound)
}

func TestGetChunkMeta(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "hydrated")

	stored, err := s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{
		{Content: "alpha", ChunkIndex: 0, Metadata: map[string]any{"page": float64(1)}},
		{Content: "beta", ChunkIndex: 1},
	})
	require.NoError(t, err)

	meta, err := s.GetChunkMeta(ctx, []string{stored[0].ID, stored[1].ID, "missing"})
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, "hydrated", meta[stored[0].ID].DocumentTitle)
	assert.Equal(t, "hydrated.pdf", meta[stored[0].ID].DocumentSource)
	assert.Equal(t, float64(1), meta[stored[0].ID].Metadata["page"])

	empty, err := s.GetChunkMeta(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAllChunkRefs(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "refs")

	_, err := s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{
		{Content: "with embedding", ChunkIndex: 0, Embedding: embedding(0.5)},
		{Content: "without embedding", ChunkIndex: 1},
	})
	require.NoError(t, err)

	refs, err := s.AllChunkRefs(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	byContent := map[string]ChunkRef{}
	for _, r := range refs {
		byContent[r.Content] = r
	}
	assert.Equal(t, embedding(0.5), byContent["with embedding"].Embedding)
	assert.Nil(t, byContent["without embedding"].Embedding)
}

func TestVersions(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "versioned")

	v1 := &types.DocumentVersion{
		DocumentID: doc.ID, Version: "1.0", ChangeSummary: "initial upload",
		Content: "v1 content", FilePath: "/files/a.pdf", MimeType: "application/pdf", FileSize: 1234,
	}
	require.NoError(t, s.CreateVersion(ctx, v1))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.CreateVersion(ctx, &types.DocumentVersion{
		DocumentID: doc.ID, Version: "1.1", ChangeSummary: "typo fixes", Content: "v2 content",
	}))

	// (document_id, version) is unique
	err := s.CreateVersion(ctx, &types.DocumentVersion{DocumentID: doc.ID, Version: "1.0"})
	assert.ErrorIs(t, err, types.ErrValidation)

	got, err := s.GetVersion(ctx, doc.ID, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "initial upload", got.ChangeSummary)
	assert.Equal(t, int64(1234), got.FileSize)

	_, err = s.GetVersion(ctx, doc.ID, "9.9")
	assert.ErrorIs(t, err, types.ErrNotFound)

	list, err := s.ListVersions(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1.1", list[0].Version) // Newest first
}

func TestGetStatus(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "status")
	_, err := s.ReplaceChunks(ctx, doc.ID, []types.ChunkInput{
		{Content: "a", ChunkIndex: 0, Embedding: embedding(0.3)},
		{Content: "b", ChunkIndex: 1},
	})
	require.NoError(t, err)

	st, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.DocumentsCount)
	assert.Equal(t, 2, st.ChunksCount)
	assert.Equal(t, 1, st.EmbeddedCount)
	assert.Equal(t, testDim, st.Dimension)
	assert.Equal(t, CurrentSchemaVersion, st.SchemaVersion)
}
