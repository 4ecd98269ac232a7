package index

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// stopwords are dropped during tokenization on both the index and the
// query side
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "were": {},
	"with": {},
}

type posting struct {
	positions []int // Token positions within the chunk, ascending
}

type lexicalEntry struct {
	documentID string
	length     int // Token count after stopword removal
	terms      map[string]*posting
}

// LexicalIndex is an inverted index over chunk text. A query matches a
// chunk when they share at least one term; non-matching chunks are absent
// from results rather than scored zero.
//
// The rank of a matching chunk combines term frequency with saturation
// (tf/(tf+1) per matched term), the fraction of query terms covered, a
// length penalty so long chunks do not win on raw frequency, and a
// proximity boost when the matched terms appear close together.
type LexicalIndex struct {
	mu       sync.RWMutex
	postings map[string]map[string]struct{} // Term -> chunk ids
	entries  map[string]*lexicalEntry       // By chunk id
	byDoc    map[string][]string
}

// NewLexicalIndex creates an empty lexical index
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{
		postings: make(map[string]map[string]struct{}),
		entries:  make(map[string]*lexicalEntry),
		byDoc:    make(map[string][]string),
	}
}

// Len returns the number of indexed chunks
func (ix *LexicalIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Add indexes one chunk's text, replacing any previous entry for the same
// chunk id
func (ix *LexicalIndex) Add(chunkID, documentID, content string) {
	tokens := Tokenize(content)

	entry := &lexicalEntry{
		documentID: documentID,
		length:     len(tokens),
		terms:      make(map[string]*posting),
	}
	for pos, term := range tokens {
		p := entry.terms[term]
		if p == nil {
			p = &posting{}
			entry.terms[term] = p
		}
		p.positions = append(p.positions, pos)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, exists := ix.entries[chunkID]; exists {
		for term := range old.terms {
			delete(ix.postings[term], chunkID)
		}
	} else {
		ix.byDoc[documentID] = append(ix.byDoc[documentID], chunkID)
	}

	ix.entries[chunkID] = entry
	for term := range entry.terms {
		set := ix.postings[term]
		if set == nil {
			set = make(map[string]struct{})
			ix.postings[term] = set
		}
		set[chunkID] = struct{}{}
	}
}

// RemoveDocument drops all entries belonging to a document
func (ix *LexicalIndex) RemoveDocument(documentID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, chunkID := range ix.byDoc[documentID] {
		entry := ix.entries[chunkID]
		if entry == nil {
			continue
		}
		for term := range entry.terms {
			delete(ix.postings[term], chunkID)
			if len(ix.postings[term]) == 0 {
				delete(ix.postings, term)
			}
		}
		delete(ix.entries, chunkID)
	}
	delete(ix.byDoc, documentID)
}

// Search returns up to k matches ordered by descending rank, ties broken by
// ascending chunk id. A query whose terms are all stopwords matches
// nothing.
func (ix *LexicalIndex) Search(query string, k int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty: %w", types.ErrInvalidArgument)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, types.ErrInvalidArgument)
	}

	terms := uniqueTerms(Tokenize(query))
	if len(terms) == 0 {
		return []Match{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	// Union of chunks matching any query term
	candidates := make(map[string]struct{})
	for _, term := range terms {
		for chunkID := range ix.postings[term] {
			candidates[chunkID] = struct{}{}
		}
	}

	matches := make([]Match, 0, len(candidates))
	for chunkID := range candidates {
		entry := ix.entries[chunkID]
		matches = append(matches, Match{
			ChunkID:    chunkID,
			DocumentID: entry.documentID,
			Score:      rank(entry, terms),
		})
	}

	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// rank scores one matching chunk against the deduplicated query terms
func rank(entry *lexicalEntry, terms []string) float64 {
	var tfSum float64
	var matched []*posting
	for _, term := range terms {
		p := entry.terms[term]
		if p == nil {
			continue
		}
		tf := float64(len(p.positions))
		tfSum += tf / (tf + 1)
		matched = append(matched, p)
	}
	if len(matched) == 0 {
		return 0
	}

	coverage := float64(len(matched)) / float64(len(terms))
	lengthNorm := 1 / (1 + math.Log(1+float64(entry.length)/64))

	score := tfSum * coverage * lengthNorm
	if len(matched) > 1 {
		if span := minSpan(matched); span > 0 {
			score *= 1 + 1/float64(span)
		}
	}
	return score
}

// minSpan finds the smallest token window containing at least one
// occurrence of every matched term
func minSpan(matched []*posting) int {
	type occ struct {
		pos  int
		term int
	}
	var occs []occ
	for t, p := range matched {
		for _, pos := range p.positions {
			occs = append(occs, occ{pos: pos, term: t})
		}
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].pos < occs[j].pos })

	counts := make([]int, len(matched))
	covered := 0
	best := 0
	left := 0
	for right := range occs {
		if counts[occs[right].term] == 0 {
			covered++
		}
		counts[occs[right].term]++
		for covered == len(matched) {
			span := occs[right].pos - occs[left].pos + 1
			if best == 0 || span < best {
				best = span
			}
			counts[occs[left].term]--
			if counts[occs[left].term] == 0 {
				covered--
			}
			left++
		}
	}
	return best
}

// Tokenize lowercases, splits on non-alphanumeric runs, drops stopwords and
// strips light plural/verbal suffixes so close word forms match each other
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		f = stripSuffix(f)
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// stripSuffix removes common English inflections; it deliberately stops far
// short of a full stemmer
func stripSuffix(term string) string {
	switch {
	case len(term) > 5 && strings.HasSuffix(term, "ing"):
		return term[:len(term)-3]
	case len(term) > 4 && strings.HasSuffix(term, "ed"):
		return term[:len(term)-2]
	case len(term) > 3 && strings.HasSuffix(term, "s") && !strings.HasSuffix(term, "ss"):
		return term[:len(term)-1]
	}
	return term
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
