package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

const (
	// ivfThreshold is the corpus size below which exact scan is used; brute
	// force beats partition probing comfortably at this scale
	ivfThreshold = 2000

	// ivfTrainIterations bounds the k-means refinement passes
	ivfTrainIterations = 5
)

// Match is a scored index hit before hydration with document metadata
type Match struct {
	ChunkID    string
	DocumentID string
	Score      float64
}

type vectorEntry struct {
	chunkID    string
	documentID string
	vec        []float32 // Unit-normalized; nil for zero-norm embeddings
}

// VectorIndex answers k-nearest-neighbor queries by cosine similarity.
// Every indexed embedding and every query must have the configured
// dimensionality.
type VectorIndex struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]*vectorEntry // By chunk id
	byDoc   map[string][]string     // Document id -> chunk ids

	// IVF state, valid while trained is true
	trained    bool
	centroids  [][]float32
	partitions [][]string // Parallel to centroids; chunk ids
}

// NewVectorIndex creates an empty index for embeddings of the given
// dimensionality
func NewVectorIndex(dim int) *VectorIndex {
	if dim <= 0 {
		dim = types.DefaultEmbeddingDim
	}
	return &VectorIndex{
		dim:     dim,
		entries: make(map[string]*vectorEntry),
		byDoc:   make(map[string][]string),
	}
}

// Dimension returns the dimensionality the index accepts
func (ix *VectorIndex) Dimension() int {
	return ix.dim
}

// Len returns the number of indexed embeddings
func (ix *VectorIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Add indexes one chunk embedding, replacing any previous entry for the
// same chunk id. Additions invalidate IVF training; the next Rebuild or a
// fallback exact scan covers new entries in the meantime.
func (ix *VectorIndex) Add(chunkID, documentID string, embedding []float32) error {
	if len(embedding) != ix.dim {
		return fmt.Errorf("embedding has %d dimensions, index expects %d: %w",
			len(embedding), ix.dim, types.ErrDimensionMismatch)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.entries[chunkID]; !exists {
		ix.byDoc[documentID] = append(ix.byDoc[documentID], chunkID)
	}
	ix.entries[chunkID] = &vectorEntry{
		chunkID:    chunkID,
		documentID: documentID,
		vec:        normalize(embedding),
	}
	ix.trained = false
	return nil
}

// RemoveDocument drops all entries belonging to a document
func (ix *VectorIndex) RemoveDocument(documentID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, chunkID := range ix.byDoc[documentID] {
		delete(ix.entries, chunkID)
	}
	delete(ix.byDoc, documentID)
	ix.trained = false
}

// Search returns up to k matches ordered by descending similarity, ties
// broken by ascending chunk id. Fewer than k indexed embeddings simply
// yields fewer matches. Zero-norm embeddings score 0 against everything.
func (ix *VectorIndex) Search(query []float32, k int) ([]Match, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has %d dimensions, index expects %d: %w",
			len(query), ix.dim, types.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, types.ErrInvalidArgument)
	}

	q := normalize(query)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var candidates []string
	if ix.trained {
		candidates = ix.probe(q, k)
	} else {
		candidates = make([]string, 0, len(ix.entries))
		for id := range ix.entries {
			candidates = append(candidates, id)
		}
	}

	matches := make([]Match, 0, len(candidates))
	for _, id := range candidates {
		e := ix.entries[id]
		if e == nil {
			continue
		}
		matches = append(matches, Match{
			ChunkID:    e.chunkID,
			DocumentID: e.documentID,
			Score:      dot(q, e.vec),
		})
	}

	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Rebuild trains the IVF layout when the corpus is large enough. Small
// corpora stay on exact scan; calling Rebuild on them is a no-op.
func (ix *VectorIndex) Rebuild() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	n := len(ix.entries)
	if n < ivfThreshold {
		ix.trained = false
		ix.centroids = nil
		ix.partitions = nil
		return
	}

	ids := make([]string, 0, n)
	for id := range ix.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids) // Deterministic seeding

	nlist := int(math.Sqrt(float64(n)))
	if nlist < 2 {
		nlist = 2
	}

	// Seed centroids with evenly spaced entries, then refine with a few
	// k-means passes over the normalized vectors
	centroids := make([][]float32, nlist)
	step := n / nlist
	for i := 0; i < nlist; i++ {
		src := ix.entries[ids[i*step]].vec
		c := make([]float32, ix.dim)
		if src != nil {
			copy(c, src)
		}
		centroids[i] = c
	}

	assign := make([]int, len(ids))
	for iter := 0; iter < ivfTrainIterations; iter++ {
		for i, id := range ids {
			assign[i] = nearestCentroid(ix.entries[id].vec, centroids)
		}
		sums := make([][]float64, nlist)
		counts := make([]int, nlist)
		for i := range sums {
			sums[i] = make([]float64, ix.dim)
		}
		for i, id := range ids {
			v := ix.entries[id].vec
			if v == nil {
				continue
			}
			c := assign[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // Keep the previous centroid for an empty cluster
			}
			for d := range centroids[c] {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
			centroids[c] = normalize(centroids[c])
		}
	}

	partitions := make([][]string, nlist)
	for i, id := range ids {
		c := assign[i]
		partitions[c] = append(partitions[c], id)
	}

	ix.centroids = centroids
	ix.partitions = partitions
	ix.trained = true
}

// nearestCentroid returns the index of the centroid most similar to v.
// Zero-norm embeddings (nil vec) land in partition 0 so they stay findable.
func nearestCentroid(v []float32, centroids [][]float32) int {
	if v == nil {
		return 0
	}
	best := 0
	bestScore := math.Inf(-1)
	for i, c := range centroids {
		if score := dot(v, c); score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// probe selects candidate chunk ids from the partitions whose centroids lie
// nearest the query, widening until at least k candidates are gathered or
// all partitions are spent. Caller holds at least the read lock.
func (ix *VectorIndex) probe(q []float32, k int) []string {
	type ranked struct {
		idx   int
		score float64
	}
	order := make([]ranked, len(ix.centroids))
	for i, c := range ix.centroids {
		order[i] = ranked{idx: i, score: dot(q, c)}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].score > order[j].score })

	nprobe := len(ix.centroids) / 8
	if nprobe < 1 {
		nprobe = 1
	}

	var candidates []string
	for i, r := range order {
		if i >= nprobe && len(candidates) >= k {
			break
		}
		candidates = append(candidates, ix.partitions[r.idx]...)
	}
	return candidates
}

// normalize returns a unit-length copy of v, or nil for a zero vector
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product of two unit vectors, which on unit vectors
// equals cosine similarity. A nil side (zero-norm original) scores 0.
func dot(a, b []float32) float64 {
	if a == nil || b == nil {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// sortMatches orders by descending score, ties by ascending chunk id so
// equal-scored results are stable across runs
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
}
