package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/archipel-labs/docvault-mcp/internal/chunker"
	"github.com/archipel-labs/docvault-mcp/internal/embedder"
	"github.com/archipel-labs/docvault-mcp/internal/index"
	"github.com/archipel-labs/docvault-mcp/internal/storage"
	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// initialVersion labels the first ingest of every document
const initialVersion = "1.0"

// cacheInvalidator is the slice of the searcher the ingestor needs
type cacheInvalidator interface {
	InvalidateCache()
}

// Ingestor coordinates the ingestion pipeline and keeps the store, the
// indexes and the search cache consistent with each other
type Ingestor struct {
	store    storage.Storage
	chunker  *chunker.Chunker
	embedder embedder.Embedder // nil = ingest without embeddings
	vectors  *index.VectorIndex
	lexical  *index.LexicalIndex
	searcher cacheInvalidator
}

// Result describes one completed ingest
type Result struct {
	DocumentID     string
	Version        string
	ChunksCreated  int
	ChunksEmbedded int
	Duration       time.Duration
}

// New creates an Ingestor. emb may be nil, in which case chunks are stored
// and lexically indexed but carry no embeddings until a rebuild with an
// embedder configured.
func New(store storage.Storage, emb embedder.Embedder, vectors *index.VectorIndex, lexical *index.LexicalIndex, searcher cacheInvalidator) *Ingestor {
	return &Ingestor{
		store:    store,
		chunker:  chunker.New(nil),
		embedder: emb,
		vectors:  vectors,
		lexical:  lexical,
		searcher: searcher,
	}
}

// IngestDocument creates a document from text: record, initial version,
// chunks, embeddings and index entries
func (ing *Ingestor) IngestDocument(ctx context.Context, doc *types.Document, text string) (*Result, error) {
	start := time.Now()

	doc.Content = text
	if err := ing.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	res, err := ing.ingestContent(ctx, doc.ID, text, initialVersion, "initial upload")
	if err != nil {
		// Leave no half-ingested document behind
		_ = ing.store.DeleteDocument(ctx, doc.ID)
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// UpdateDocument replaces a document's content, recording a new version
// and reindexing its chunks
func (ing *Ingestor) UpdateDocument(ctx context.Context, doc *types.Document, text, changeSummary string) (*Result, error) {
	start := time.Now()

	doc.Content = text
	if err := ing.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	version, err := ing.nextVersion(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if changeSummary == "" {
		changeSummary = "content update"
	}

	res, err := ing.ingestContent(ctx, doc.ID, text, version, changeSummary)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// DeleteDocument removes a document from the store and both indexes
func (ing *Ingestor) DeleteDocument(ctx context.Context, documentID string) error {
	if err := ing.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	ing.vectors.RemoveDocument(documentID)
	ing.lexical.RemoveDocument(documentID)
	ing.invalidate()
	return nil
}

// RollbackToVersion restores a document's content to a recorded version.
// The restored content is ingested as a new version so the rollback is
// itself part of the history.
func (ing *Ingestor) RollbackToVersion(ctx context.Context, documentID, version string) (*Result, error) {
	start := time.Now()

	v, err := ing.store.GetVersion(ctx, documentID, version)
	if err != nil {
		return nil, err
	}

	doc, err := ing.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	doc.Content = v.Content
	if err := ing.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	next, err := ing.nextVersion(ctx, documentID)
	if err != nil {
		return nil, err
	}

	res, err := ing.ingestContent(ctx, documentID, v.Content, next,
		fmt.Sprintf("rollback to version %s", version))
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// RebuildIndexes repopulates both in-memory indexes from the chunk store.
// Run on startup and after bulk imports.
func (ing *Ingestor) RebuildIndexes(ctx context.Context) error {
	refs, err := ing.store.AllChunkRefs(ctx)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		for _, ref := range refs {
			if ref.Embedding == nil {
				continue
			}
			if err := ing.vectors.Add(ref.ChunkID, ref.DocumentID, ref.Embedding); err != nil {
				return fmt.Errorf("index chunk %s: %w", ref.ChunkID, err)
			}
		}
		ing.vectors.Rebuild()
		return nil
	})
	g.Go(func() error {
		for _, ref := range refs {
			ing.lexical.Add(ref.ChunkID, ref.DocumentID, ref.Content)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	ing.invalidate()
	return nil
}

// ingestContent runs the shared tail of every ingest: chunk, embed,
// replace in store, reindex, record the version, drop the cache
func (ing *Ingestor) ingestContent(ctx context.Context, documentID, text, version, changeSummary string) (*Result, error) {
	inputs := ing.chunker.Chunk(text)

	embedded := 0
	if ing.embedder != nil && len(inputs) > 0 {
		texts := make([]string, len(inputs))
		for i, in := range inputs {
			texts[i] = in.Content
		}
		embeddings, err := ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if !errors.Is(err, embedder.ErrProviderFailed) {
				return nil, fmt.Errorf("embed chunks: %w", err)
			}
			// Provider outage degrades to lexical-only; the next rebuild
			// with a working provider fills the gap
		} else {
			for i, emb := range embeddings {
				inputs[i].Embedding = emb.Vector
				embedded++
			}
		}
	}

	chunks, err := ing.store.ReplaceChunks(ctx, documentID, inputs)
	if err != nil {
		return nil, err
	}

	ing.vectors.RemoveDocument(documentID)
	ing.lexical.RemoveDocument(documentID)
	for _, c := range chunks {
		ing.lexical.Add(c.ID, documentID, c.Content)
		if c.Embedding != nil {
			if err := ing.vectors.Add(c.ID, documentID, c.Embedding); err != nil {
				return nil, fmt.Errorf("index chunk %s: %w", c.ID, err)
			}
		}
	}

	if err := ing.store.CreateVersion(ctx, &types.DocumentVersion{
		DocumentID:    documentID,
		Version:       version,
		ChangeSummary: changeSummary,
		Content:       text,
	}); err != nil {
		return nil, err
	}

	ing.invalidate()
	return &Result{
		DocumentID:     documentID,
		Version:        version,
		ChunksCreated:  len(chunks),
		ChunksEmbedded: embedded,
	}, nil
}

// nextVersion bumps the minor part of the highest recorded "major.minor"
// label. Labels that do not parse are skipped.
func (ing *Ingestor) nextVersion(ctx context.Context, documentID string) (string, error) {
	versions, err := ing.store.ListVersions(ctx, documentID)
	if err != nil {
		return "", err
	}

	major, minor := 1, 0
	found := false
	for _, v := range versions {
		ma, mi, ok := parseVersion(v.Version)
		if !ok {
			continue
		}
		if !found || ma > major || (ma == major && mi > minor) {
			major, minor = ma, mi
			found = true
		}
	}
	if !found {
		return initialVersion, nil
	}
	return fmt.Sprintf("%d.%d", major, minor+1), nil
}

func parseVersion(label string) (major, minor int, ok bool) {
	parts := strings.Split(label, ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

func (ing *Ingestor) invalidate() {
	if ing.searcher != nil {
		ing.searcher.InvalidateCache()
	}
}
