package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/archipel-labs/docvault-mcp/internal/embedder"
	"github.com/archipel-labs/docvault-mcp/internal/index"
	"github.com/archipel-labs/docvault-mcp/internal/ingest"
	"github.com/archipel-labs/docvault-mcp/internal/searcher"
	"github.com/archipel-labs/docvault-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docvault-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    storage.Storage
	ingestor *ingest.Ingestor
	searcher *searcher.Searcher
	embedder embedder.Embedder // nil = keyword search only
	vectors  *index.VectorIndex
	lexical  *index.LexicalIndex
}

// NewServer creates a new MCP server instance. An empty dbPath falls back
// to DOCVAULT_DB_PATH, then to ~/.docvault/docvault.db.
func NewServer(dbPath string) (*Server, error) {
	if dbPath == "" {
		dbPath = os.Getenv("DOCVAULT_DB_PATH")
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".docvault", "docvault.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		if !errors.Is(err, embedder.ErrNoProviderEnabled) {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		// Keyword-only operation
		log.Println("no embedding provider configured, vector search disabled")
		emb = nil
	}

	dimension := 0
	if emb != nil {
		dimension = emb.Dimension()
	}
	store, err := storage.NewSQLiteStorage(dbPath, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	vectors := index.NewVectorIndex(store.Dimension())
	lexical := index.NewLexicalIndex()
	srch := searcher.NewSearcher(store, vectors, lexical)
	ing := ingest.New(store, emb, vectors, lexical, srch)

	// Bring the in-memory indexes up to date with the store
	if err := ing.RebuildIndexes(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to rebuild indexes: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    store,
		ingestor: ing,
		searcher: srch,
		embedder: emb,
		vectors:  vectors,
		lexical:  lexical,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(updateDocumentTool(), s.handleUpdateDocument)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(getDocumentTool(), s.handleGetDocument)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(getDocumentChunksTool(), s.handleGetDocumentChunks)
	s.mcp.AddTool(listVersionsTool(), s.handleListVersions)
	s.mcp.AddTool(rollbackVersionTool(), s.handleRollbackVersion)
	s.mcp.AddTool(listMetadataTool(), s.handleListMetadata)
	s.mcp.AddTool(createMetadataTool(), s.handleCreateMetadata)
	s.mcp.AddTool(updateMetadataTool(), s.handleUpdateMetadata)
	s.mcp.AddTool(deleteMetadataTool(), s.handleDeleteMetadata)
	s.mcp.AddTool(tagDocumentTool(), s.handleTagDocument)
	s.mcp.AddTool(getDocumentTagsTool(), s.handleGetDocumentTags)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
