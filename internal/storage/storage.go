package storage

import (
	"context"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// Storage defines the interface for persisting documents, chunks, versions,
// reference vocabulary and chat state
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	ListDocuments(ctx context.Context, opts ListOptions) ([]*types.DocumentSummary, error)
	UpdateDocument(ctx context.Context, doc *types.Document) error
	DeleteDocument(ctx context.Context, id string) error

	// Chunk store operations. ReplaceChunks atomically supersedes all chunks
	// of a document inside one transaction; a concurrent reader sees either
	// the full old set or the full new set, never a mix.
	ReplaceChunks(ctx context.Context, documentID string, chunks []types.ChunkInput) ([]*types.Chunk, error)
	GetDocumentChunks(ctx context.Context, documentID string) ([]*types.Chunk, error)
	GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error)
	GetChunkMeta(ctx context.Context, chunkIDs []string) (map[string]*ChunkMeta, error)
	AllChunkRefs(ctx context.Context) ([]ChunkRef, error)

	// Version operations
	CreateVersion(ctx context.Context, v *types.DocumentVersion) error
	GetVersion(ctx context.Context, documentID, version string) (*types.DocumentVersion, error)
	ListVersions(ctx context.Context, documentID string) ([]*types.DocumentVersion, error)

	// Reference vocabulary operations
	CreateDocumentType(ctx context.Context, dt *types.DocumentType) error
	UpdateDocumentType(ctx context.Context, dt *types.DocumentType) error
	DeleteDocumentType(ctx context.Context, id string) error
	ListDocumentTypes(ctx context.Context, activeOnly bool) ([]*types.DocumentType, error)

	CreateOrgUnit(ctx context.Context, ou *types.OrgUnit) error
	UpdateOrgUnit(ctx context.Context, ou *types.OrgUnit) error
	DeleteOrgUnit(ctx context.Context, id string) error
	ListOrgUnits(ctx context.Context, activeOnly bool) ([]*types.OrgUnit, error)

	CreateSite(ctx context.Context, s *types.Site) error
	UpdateSite(ctx context.Context, s *types.Site) error
	DeleteSite(ctx context.Context, id string) error
	ListSites(ctx context.Context, activeOnly bool) ([]*types.Site, error)

	CreateEquipment(ctx context.Context, e *types.Equipment) error
	UpdateEquipment(ctx context.Context, e *types.Equipment) error
	DeleteEquipment(ctx context.Context, id string) error
	ListEquipment(ctx context.Context, activeOnly bool) ([]*types.Equipment, error)

	CreateKeyword(ctx context.Context, k *types.Keyword) error
	UpdateKeyword(ctx context.Context, k *types.Keyword) error
	DeleteKeyword(ctx context.Context, id string) error
	ListKeywords(ctx context.Context, activeOnly bool) ([]*types.Keyword, error)

	// Document tagging (many-to-many junctions)
	SetDocumentEquipment(ctx context.Context, documentID string, equipmentIDs []string) error
	ListDocumentEquipment(ctx context.Context, documentID string) ([]*types.Equipment, error)
	SetDocumentKeywords(ctx context.Context, documentID string, keywordIDs []string) error
	ListDocumentKeywords(ctx context.Context, documentID string) ([]*types.Keyword, error)

	// Session operations
	CreateSession(ctx context.Context, s *types.Session) error
	GetSession(ctx context.Context, id string) (*types.Session, error)
	UpdateSessionMetadata(ctx context.Context, id string, metadata map[string]any) error
	DeleteExpiredSessions(ctx context.Context) (int, error)
	AddMessage(ctx context.Context, m *types.Message) error
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*types.Message, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Dimension() int
	Close() error
}

// ListOptions narrows and pages document listings
type ListOptions struct {
	Limit          int
	Offset         int
	Status         types.DocumentStatus // Empty = any
	DocumentTypeID string               // Empty = any
	SiteID         string               // Empty = any
	IssuingUnitID  string               // Empty = any
}

// ChunkMeta carries the document-level fields search results are hydrated
// with, keyed by chunk id
type ChunkMeta struct {
	ChunkID        string
	DocumentID     string
	Content        string
	Metadata       map[string]any
	DocumentTitle  string
	DocumentSource string
}

// ChunkRef is the projection the in-memory indexes are (re)built from
type ChunkRef struct {
	ChunkID    string
	DocumentID string
	Content    string
	TokenCount int
	Embedding  []float32 // nil = chunk has no embedding
}

// Status contains statistics about the store
type Status struct {
	DocumentsCount int
	ChunksCount    int
	EmbeddedCount  int
	VersionsCount  int
	SessionsCount  int
	Dimension      int
	SchemaVersion  string
	DriverName     string
	BuildMode      string
}
