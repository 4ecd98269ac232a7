package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archipel-labs/docvault-mcp/internal/embedder"
	"github.com/archipel-labs/docvault-mcp/internal/index"
	"github.com/archipel-labs/docvault-mcp/internal/storage"
	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

const testDim = 32

type fixture struct {
	store   *storage.SQLiteStorage
	vectors *index.VectorIndex
	lexical *index.LexicalIndex
	ing     *Ingestor
	refs    struct{ docType, orgUnit, site string }
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateCache() { c.calls++ }

func setup(t *testing.T) (*fixture, *countingInvalidator) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:", testDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dt := &types.DocumentType{Name: "manual", IsActive: true}
	require.NoError(t, store.CreateDocumentType(ctx, dt))
	ou := &types.OrgUnit{Name: "ops", IsActive: true}
	require.NoError(t, store.CreateOrgUnit(ctx, ou))
	site := &types.Site{Name: "hq", IsActive: true}
	require.NoError(t, store.CreateSite(ctx, site))

	emb, err := embedder.NewLocalProvider(testDim, nil)
	require.NoError(t, err)

	f := &fixture{
		store:   store,
		vectors: index.NewVectorIndex(testDim),
		lexical: index.NewLexicalIndex(),
	}
	f.refs.docType, f.refs.orgUnit, f.refs.site = dt.ID, ou.ID, site.ID

	inv := &countingInvalidator{}
	f.ing = New(store, emb, f.vectors, f.lexical, inv)
	return f, inv
}

func (f *fixture) newDoc(title string) *types.Document {
	return &types.Document{
		Title:          title,
		Source:         title + ".pdf",
		DocumentTypeID: f.refs.docType,
		IssuingUnitID:  f.refs.orgUnit,
		SiteID:         f.refs.site,
	}
}

func TestIngestDocument(t *testing.T) {
	f, inv := setup(t)
	ctx := context.Background()

	doc := f.newDoc("pump manual")
	res, err := f.ing.IngestDocument(ctx, doc, "Inspect the pump bearings quarterly. Replace the seal annually.")
	require.NoError(t, err)

	assert.Equal(t, doc.ID, res.DocumentID)
	assert.Equal(t, "1.0", res.Version)
	assert.Positive(t, res.ChunksCreated)
	assert.Equal(t, res.ChunksCreated, res.ChunksEmbedded)
	assert.Positive(t, inv.calls)

	// Chunks landed in the store
	chunks, err := f.store.GetDocumentChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, res.ChunksCreated)

	// Both indexes cover them
	assert.Equal(t, res.ChunksCreated, f.vectors.Len())
	assert.Equal(t, res.ChunksCreated, f.lexical.Len())

	// The initial version snapshot is recorded
	v, err := f.store.GetVersion(ctx, doc.ID, "1.0")
	require.NoError(t, err)
	assert.Contains(t, v.Content, "pump bearings")
}

func TestIngestDocumentInvalidDocument(t *testing.T) {
	f, _ := setup(t)

	doc := &types.Document{Title: ""}
	_, err := f.ing.IngestDocument(context.Background(), doc, "text")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestUpdateDocumentBumpsVersion(t *testing.T) {
	f, _ := setup(t)
	ctx := context.Background()

	doc := f.newDoc("procedure")
	_, err := f.ing.IngestDocument(ctx, doc, "Original step one.")
	require.NoError(t, err)

	res, err := f.ing.UpdateDocument(ctx, doc, "Revised step one. Added step two.", "revision B")
	require.NoError(t, err)
	assert.Equal(t, "1.1", res.Version)

	res, err = f.ing.UpdateDocument(ctx, doc, "Third revision.", "")
	require.NoError(t, err)
	assert.Equal(t, "1.2", res.Version)

	versions, err := f.store.ListVersions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 3)

	// The old content is no longer searchable, the new is
	matches, err := f.lexical.Search("revised", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
	matches, err = f.lexical.Search("third revision", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDeleteDocumentClearsIndexes(t *testing.T) {
	f, _ := setup(t)
	ctx := context.Background()

	doc := f.newDoc("temporary")
	_, err := f.ing.IngestDocument(ctx, doc, "Disposable content about filters.")
	require.NoError(t, err)
	require.Positive(t, f.lexical.Len())

	require.NoError(t, f.ing.DeleteDocument(ctx, doc.ID))
	assert.Zero(t, f.vectors.Len())
	assert.Zero(t, f.lexical.Len())

	_, err = f.store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, f.ing.DeleteDocument(ctx, "missing"), types.ErrNotFound)
}

func TestRollbackToVersion(t *testing.T) {
	f, _ := setup(t)
	ctx := context.Background()

	doc := f.newDoc("rollback target")
	_, err := f.ing.IngestDocument(ctx, doc, "The original valve procedure.")
	require.NoError(t, err)
	_, err = f.ing.UpdateDocument(ctx, doc, "A broken edit that removed everything.", "bad edit")
	require.NoError(t, err)

	res, err := f.ing.RollbackToVersion(ctx, doc.ID, "1.0")
	require.NoError(t, err)
	// Rollback is recorded as a new version, not a rewrite
	assert.Equal(t, "1.2", res.Version)

	got, err := f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "The original valve procedure.", got.Content)

	matches, err := f.lexical.Search("valve procedure", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = f.ing.RollbackToVersion(ctx, doc.ID, "9.9")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRebuildIndexes(t *testing.T) {
	f, _ := setup(t)
	ctx := context.Background()

	doc := f.newDoc("rebuilt")
	res, err := f.ing.IngestDocument(ctx, doc, "Rebuild source material. "+strings.Repeat("More text here. ", 20))
	require.NoError(t, err)

	// Fresh indexes, as after a restart
	vectors := index.NewVectorIndex(testDim)
	lexical := index.NewLexicalIndex()
	inv := &countingInvalidator{}
	ing := New(f.store, nil, vectors, lexical, inv)

	require.NoError(t, ing.RebuildIndexes(ctx))
	assert.Equal(t, res.ChunksCreated, vectors.Len())
	assert.Equal(t, res.ChunksCreated, lexical.Len())
	assert.Positive(t, inv.calls)
}

func TestIngestWithoutEmbedder(t *testing.T) {
	f, _ := setup(t)
	ctx := context.Background()

	ing := New(f.store, nil, f.vectors, f.lexical, nil)
	doc := f.newDoc("lexical only")
	res, err := ing.IngestDocument(ctx, doc, "Searchable by keywords alone.")
	require.NoError(t, err)

	assert.Positive(t, res.ChunksCreated)
	assert.Zero(t, res.ChunksEmbedded)
	assert.Zero(t, f.vectors.Len())
	assert.Positive(t, f.lexical.Len())
}

func TestNextVersionSkipsUnparsableLabels(t *testing.T) {
	f, _ := setup(t)
	ctx := context.Background()

	doc := f.newDoc("mixed labels")
	_, err := f.ing.IngestDocument(ctx, doc, "Base content.")
	require.NoError(t, err)
	require.NoError(t, f.store.CreateVersion(ctx, &types.DocumentVersion{
		DocumentID: doc.ID, Version: "draft-final-v2", Content: "odd label",
	}))

	res, err := f.ing.UpdateDocument(ctx, doc, "Updated content.", "")
	require.NoError(t, err)
	assert.Equal(t, "1.1", res.Version)
}
