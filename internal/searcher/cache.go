package searcher

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

const (
	cacheSize = 1000
	cacheTTL  = 5 * time.Minute
)

// cacheEntry holds a cached hybrid result set with its expiration time
type cacheEntry struct {
	hits      []types.HybridHit
	expiresAt time.Time
}

// queryCache is an LRU of hybrid search results. Entries expire after
// cacheTTL; any corpus mutation purges the whole cache, so staleness is
// bounded by both.
type queryCache struct {
	mu    sync.RWMutex
	cache *lru.Cache[[32]byte, *cacheEntry]
}

func newQueryCache() *queryCache {
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &queryCache{cache: cache}
}

func (c *queryCache) get(key [32]byte) ([]types.HybridHit, bool) {
	c.mu.RLock()
	entry, found := c.cache.Get(key)
	if !found {
		c.mu.RUnlock()
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.RUnlock()
		c.mu.Lock()
		c.cache.Remove(key)
		c.mu.Unlock()
		return nil, false
	}
	hits := copyHits(entry.hits)
	c.mu.RUnlock()
	return hits, true
}

func (c *queryCache) put(key [32]byte, hits []types.HybridHit) {
	entry := &cacheEntry{
		hits:      copyHits(hits),
		expiresAt: time.Now().Add(cacheTTL),
	}
	c.mu.Lock()
	c.cache.Add(key, entry)
	c.mu.Unlock()
}

func (c *queryCache) purge() {
	c.mu.Lock()
	c.cache.Purge()
	c.mu.Unlock()
}

// copyHits protects cached hits from caller mutation. Metadata maps are
// copied too; sharing them would let one caller's edits leak into every
// later cache read.
func copyHits(src []types.HybridHit) []types.HybridHit {
	dst := make([]types.HybridHit, len(src))
	copy(dst, src)
	for i := range dst {
		if dst[i].Metadata == nil {
			continue
		}
		m := make(map[string]any, len(dst[i].Metadata))
		for k, v := range dst[i].Metadata {
			m[k] = v
		}
		dst[i].Metadata = m
	}
	return dst
}

// hashHybridQuery computes a deterministic key over everything that
// influences a hybrid result set
func hashHybridQuery(query string, embedding []float32, k int, textWeight float64) [32]byte {
	var data strings.Builder
	data.WriteString(query)
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%.4f|", k, textWeight)

	buf := make([]byte, 4)
	for _, v := range embedding {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		data.Write(buf)
	}
	return sha256.Sum256([]byte(data.String()))
}
