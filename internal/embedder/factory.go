package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// Config selects and configures an embedding provider
type Config struct {
	Provider  string // "http", "local" or "none"
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	CacheSize int
}

// NewFromEnv builds an embedder from DOCVAULT_EMBEDDING_* environment
// variables. With no provider configured it falls back to the local
// hash embedder, so the engine always works out of the box.
func NewFromEnv() (Embedder, error) {
	cfg := Config{
		Provider: os.Getenv("DOCVAULT_EMBEDDING_PROVIDER"),
		BaseURL:  os.Getenv("DOCVAULT_EMBEDDING_URL"),
		APIKey:   os.Getenv("DOCVAULT_EMBEDDING_API_KEY"),
		Model:    os.Getenv("DOCVAULT_EMBEDDING_MODEL"),
	}
	if dim := os.Getenv("DOCVAULT_EMBEDDING_DIM"); dim != "" {
		n, err := strconv.Atoi(dim)
		if err != nil {
			return nil, fmt.Errorf("invalid DOCVAULT_EMBEDDING_DIM %q: %w", dim, err)
		}
		cfg.Dimension = n
	}
	if cfg.Provider == "" {
		if cfg.BaseURL != "" {
			cfg.Provider = ProviderHTTP
		} else {
			cfg.Provider = ProviderLocal
		}
	}
	return New(cfg)
}

// New builds an embedder from an explicit config
func New(cfg Config) (Embedder, error) {
	if cfg.Dimension <= 0 {
		cfg.Dimension = types.DefaultEmbeddingDim
	}
	cache := NewCache(cfg.CacheSize)

	switch cfg.Provider {
	case ProviderHTTP:
		return NewHTTPProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimension, cache)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension, cache)
	case "none":
		return nil, ErrNoProviderEnabled
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, cfg.Provider)
	}
}
