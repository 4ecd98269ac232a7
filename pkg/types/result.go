package types

// VectorHit is one similarity-search result. Similarity is
// 1 - cosine_distance(embedding, query): treat it as an unbounded real
// number, not a value clamped to [0,1].
type VectorHit struct {
	ChunkID        string
	DocumentID     string
	Content        string
	Similarity     float64
	Metadata       map[string]any
	DocumentTitle  string
	DocumentSource string
}

// LexicalHit is one lexical-search result. TextSimilarity is the term rank
// described in internal/index; chunks that do not match the query at all
// are excluded rather than scored zero.
type LexicalHit struct {
	ChunkID        string
	DocumentID     string
	Content        string
	TextSimilarity float64
	Metadata       map[string]any
	DocumentTitle  string
	DocumentSource string
}

// HybridHit is one fused result. CombinedScore is
//
//	VectorSimilarity*(1-w) + TextSimilarity*w
//
// with the absent side substituted by zero for chunks found by only one
// sub-search.
type HybridHit struct {
	ChunkID          string
	DocumentID       string
	Content          string
	CombinedScore    float64
	VectorSimilarity float64
	TextSimilarity   float64
	Metadata         map[string]any
	DocumentTitle    string
	DocumentSource   string
}
