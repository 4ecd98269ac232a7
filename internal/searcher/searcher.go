package searcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/archipel-labs/docvault-mcp/internal/index"
	"github.com/archipel-labs/docvault-mcp/internal/storage"
	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

const (
	// DefaultTextWeight is the lexical share of the hybrid blend when the
	// caller does not specify one
	DefaultTextWeight = 0.3

	// DefaultLimit is the result count when the caller does not specify one
	DefaultLimit = 10
)

// Searcher coordinates search operations across the vector and lexical
// indexes and hydrates matches with document metadata from storage
type Searcher struct {
	store   storage.Storage
	vectors *index.VectorIndex
	lexical *index.LexicalIndex
	cache   *queryCache
}

// NewSearcher creates a new Searcher over the given store and indexes
func NewSearcher(store storage.Storage, vectors *index.VectorIndex, lexical *index.LexicalIndex) *Searcher {
	return &Searcher{
		store:   store,
		vectors: vectors,
		lexical: lexical,
		cache:   newQueryCache(),
	}
}

// SimilaritySearch returns the k chunks nearest the query embedding by
// cosine similarity. Chunks without embeddings are never returned; a
// corpus smaller than k yields fewer results.
func (s *Searcher) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]types.VectorHit, error) {
	if err := validateLimit(k); err != nil {
		return nil, err
	}

	matches, err := s.vectors.Search(embedding, k)
	if err != nil {
		return nil, err
	}

	meta, err := s.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}

	hits := make([]types.VectorHit, 0, len(matches))
	for _, m := range matches {
		cm := meta[m.ChunkID]
		if cm == nil {
			continue // Dropped from storage since the index was built
		}
		hits = append(hits, types.VectorHit{
			ChunkID:        m.ChunkID,
			DocumentID:     m.DocumentID,
			Content:        cm.Content,
			Similarity:     m.Score,
			Metadata:       cm.Metadata,
			DocumentTitle:  cm.DocumentTitle,
			DocumentSource: cm.DocumentSource,
		})
	}
	return hits, nil
}

// LexicalSearch returns the k chunks ranked highest against the query
// text. Only chunks sharing at least one term with the query appear.
func (s *Searcher) LexicalSearch(ctx context.Context, query string, k int) ([]types.LexicalHit, error) {
	if err := validateLimit(k); err != nil {
		return nil, err
	}

	matches, err := s.lexical.Search(query, k)
	if err != nil {
		return nil, err
	}

	meta, err := s.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}

	hits := make([]types.LexicalHit, 0, len(matches))
	for _, m := range matches {
		cm := meta[m.ChunkID]
		if cm == nil {
			continue
		}
		hits = append(hits, types.LexicalHit{
			ChunkID:        m.ChunkID,
			DocumentID:     m.DocumentID,
			Content:        cm.Content,
			TextSimilarity: m.Score,
			Metadata:       cm.Metadata,
			DocumentTitle:  cm.DocumentTitle,
			DocumentSource: cm.DocumentSource,
		})
	}
	return hits, nil
}

// HybridSearch runs the vector and lexical searches concurrently and
// blends their scores:
//
//	combined = similarity*(1-textWeight) + textRank*textWeight
//
// A chunk found by only one side contributes zero for the other. Passing a
// nil embedding degrades to lexical-only; an empty query degrades to
// vector-only; both absent is an error. textWeight must lie in [0,1].
func (s *Searcher) HybridSearch(ctx context.Context, query string, embedding []float32, k int, textWeight float64) ([]types.HybridHit, error) {
	if err := validateLimit(k); err != nil {
		return nil, err
	}
	if textWeight < 0 || textWeight > 1 || textWeight != textWeight {
		return nil, fmt.Errorf("text weight %v outside [0,1]: %w", textWeight, types.ErrInvalidArgument)
	}
	haveQuery := strings.TrimSpace(query) != ""
	if embedding == nil && !haveQuery {
		return nil, fmt.Errorf("hybrid search needs a query, an embedding or both: %w", types.ErrInvalidArgument)
	}

	key := hashHybridQuery(query, embedding, k, textWeight)
	if hits, ok := s.cache.get(key); ok {
		return hits, nil
	}

	// Each side fetches k*2 candidates so fusion has room to reorder
	var vectorMatches, lexicalMatches []index.Match
	var g errgroup.Group
	if embedding != nil {
		g.Go(func() error {
			var err error
			vectorMatches, err = s.vectors.Search(embedding, k*2)
			return err
		})
	}
	if haveQuery {
		g.Go(func() error {
			var err error
			lexicalMatches, err = s.lexical.Search(query, k*2)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(vectorMatches, lexicalMatches, textWeight)

	// Hydrate the whole candidate set before cutting to k, so chunks that
	// vanished from storage since indexing give their slot to the next
	// candidate instead of shrinking the result
	matches := make([]index.Match, len(fused))
	for i, f := range fused {
		matches[i] = index.Match{ChunkID: f.ChunkID, DocumentID: f.DocumentID}
	}
	meta, err := s.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}

	hits := make([]types.HybridHit, 0, k)
	for _, f := range fused {
		if len(hits) == k {
			break
		}
		cm := meta[f.ChunkID]
		if cm == nil {
			continue
		}
		f.Content = cm.Content
		f.Metadata = cm.Metadata
		f.DocumentTitle = cm.DocumentTitle
		f.DocumentSource = cm.DocumentSource
		hits = append(hits, f)
	}

	s.cache.put(key, hits)
	return hits, nil
}

// InvalidateCache drops all cached hybrid results. Called after any
// mutation of the corpus.
func (s *Searcher) InvalidateCache() {
	s.cache.purge()
}

// fuse blends the two candidate sets into the union of their chunks,
// ordered by descending combined score with ties broken by ascending
// chunk id. Lexical ranks enter the blend as-is, without normalization to
// the similarity range; textWeight is the knob that balances the scales.
func fuse(vectorMatches, lexicalMatches []index.Match, textWeight float64) []types.HybridHit {
	byChunk := make(map[string]*types.HybridHit, len(vectorMatches)+len(lexicalMatches))
	for _, m := range vectorMatches {
		byChunk[m.ChunkID] = &types.HybridHit{
			ChunkID:          m.ChunkID,
			DocumentID:       m.DocumentID,
			VectorSimilarity: m.Score,
		}
	}
	for _, m := range lexicalMatches {
		h := byChunk[m.ChunkID]
		if h == nil {
			h = &types.HybridHit{ChunkID: m.ChunkID, DocumentID: m.DocumentID}
			byChunk[m.ChunkID] = h
		}
		h.TextSimilarity = m.Score
	}

	fused := make([]types.HybridHit, 0, len(byChunk))
	for _, h := range byChunk {
		h.CombinedScore = h.VectorSimilarity*(1-textWeight) + h.TextSimilarity*textWeight
		fused = append(fused, *h)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].CombinedScore != fused[j].CombinedScore {
			return fused[i].CombinedScore > fused[j].CombinedScore
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})
	return fused
}

// hydrate fetches chunk content and document fields for a set of matches
func (s *Searcher) hydrate(ctx context.Context, matches []index.Match) (map[string]*storage.ChunkMeta, error) {
	if len(matches) == 0 {
		return map[string]*storage.ChunkMeta{}, nil
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ChunkID
	}
	meta, err := s.store.GetChunkMeta(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}
	return meta, nil
}

// validateLimit rejects a non-positive k. There is no upper cap: every
// search returns exactly min(k, eligible) results.
func validateLimit(k int) error {
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d: %w", k, types.ErrInvalidArgument)
	}
	return nil
}
