package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	cache := NewCache(2)

	emb := &Embedding{Vector: []float32{1, 2}, Dimension: 2, Hash: "h1"}
	cache.Set("h1", emb)

	got, ok := cache.Get("h1")
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Mutating the returned copy must not affect the cached value
	got.Vector[0] = 99
	again, ok := cache.Get("h1")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])

	// LRU eviction at capacity
	cache.Set("h2", &Embedding{Hash: "h2"})
	cache.Set("h3", &Embedding{Hash: "h3"})
	assert.Equal(t, 2, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestComputeHashDeterministic(t *testing.T) {
	assert.Equal(t, ComputeHash("pump"), ComputeHash("pump"))
	assert.NotEqual(t, ComputeHash("pump"), ComputeHash("valve"))
}

func TestLocalProvider(t *testing.T) {
	p, err := NewLocalProvider(64, NewCache(10))
	require.NoError(t, err)
	ctx := context.Background()

	a, err := p.Embed(ctx, "centrifugal pump maintenance")
	require.NoError(t, err)
	assert.Len(t, a.Vector, 64)
	assert.Equal(t, ProviderLocal, a.Provider)

	// Deterministic: same text, same vector
	b, err := p.Embed(ctx, "centrifugal pump maintenance")
	require.NoError(t, err)
	assert.Equal(t, a.Vector, b.Vector)

	// Different text, different vector
	c, err := p.Embed(ctx, "annual budget report")
	require.NoError(t, err)
	assert.NotEqual(t, a.Vector, c.Vector)

	// Unit length
	var sum float64
	for _, v := range a.Vector {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)

	_, err = p.Embed(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProviderBatch(t *testing.T) {
	p, err := NewLocalProvider(32, nil)
	require.NoError(t, err)

	embs, err := p.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, embs, 2)
	assert.NotEqual(t, embs[0].Vector, embs[1].Vector)

	_, err = p.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// fakeEmbeddingServer implements the /v1/embeddings protocol
func fakeEmbeddingServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data  []datum `json:"data"`
			Model string  `json:"model"`
		}{Model: req.Model}
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[i%dim] = 1
			resp.Data = append(resp.Data, datum{Embedding: vec, Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestHTTPProvider(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, 8, &calls)
	defer srv.Close()

	p, err := NewHTTPProvider(srv.URL, "test-key", "test-model", 8, NewCache(10))
	require.NoError(t, err)
	ctx := context.Background()

	emb, err := p.Embed(ctx, "pump manual")
	require.NoError(t, err)
	assert.Len(t, emb.Vector, 8)
	assert.Equal(t, "test-model", emb.Model)
	assert.Equal(t, int32(1), calls.Load())

	// Second call for the same text is served from cache
	_, err = p.Embed(ctx, "pump manual")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	embs, err := p.EmbedBatch(ctx, []string{"pump manual", "valve datasheet"})
	require.NoError(t, err)
	require.Len(t, embs, 2)
	// Only the uncached text hits the API
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPProviderDimensionCheck(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, 8, &calls)
	defer srv.Close()

	p, err := NewHTTPProvider(srv.URL, "", "test-model", 16, nil)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "pump manual")
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestHTTPProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(srv.URL, "", "test-model", 8, nil)
	require.NoError(t, err)
	p.retry = RetryConfig{MaxAttempts: 2, BaseDelay: 1, MaxDelay: 1, Multiplier: 1}

	_, err = p.Embed(context.Background(), "pump manual")
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestFactory(t *testing.T) {
	p, err := New(Config{Provider: ProviderLocal, Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, p.Dimension())

	_, err = New(Config{Provider: "none"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = New(Config{Provider: "quantum"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(Config{Provider: ProviderHTTP})
	assert.ErrorIs(t, err, ErrInvalidInput) // Missing base URL
}

func TestNewFromEnvDefaultsToLocal(t *testing.T) {
	t.Setenv("DOCVAULT_EMBEDDING_PROVIDER", "")
	t.Setenv("DOCVAULT_EMBEDDING_URL", "")
	t.Setenv("DOCVAULT_EMBEDDING_DIM", "32")

	p, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, 32, p.Dimension())
}

func TestNewFromEnvDetectsHTTP(t *testing.T) {
	t.Setenv("DOCVAULT_EMBEDDING_PROVIDER", "")
	t.Setenv("DOCVAULT_EMBEDDING_URL", "http://localhost:11434")
	t.Setenv("DOCVAULT_EMBEDDING_MODEL", "nomic-embed-text")
	t.Setenv("DOCVAULT_EMBEDDING_DIM", "768")

	p, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderHTTP, p.Provider())
	assert.Equal(t, 768, p.Dimension())
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 1, MaxDelay: 2, Multiplier: 2}

	attempts := 0
	result, err := retryWithBackoff(ctx, cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, assert.AnError
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)

	attempts = 0
	_, err = retryWithBackoff(ctx, cfg, func() (int, error) {
		attempts++
		return 0, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 3, attempts)
}
