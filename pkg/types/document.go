package types

import (
	"errors"
	"time"
)

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusActive   DocumentStatus = "active"
	StatusArchived DocumentStatus = "archived"
	StatusExpired  DocumentStatus = "expired"
)

// Document is a titled unit of content with provenance metadata. Every
// document references exactly one document type, one issuing org unit and
// one site; it cannot exist without them.
type Document struct {
	ID       string
	Title    string
	Source   string
	Content  string
	Metadata map[string]any

	DocumentTypeID string
	IssuingUnitID  string
	SiteID         string
	AuthorID       *string    // Nullable
	EffectiveDate  *time.Time // Nullable

	Status    DocumentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the document's required fields and status.
func (d *Document) Validate() error {
	if d.Title == "" {
		return errors.New("document title cannot be empty")
	}
	if d.DocumentTypeID == "" {
		return errors.New("document type is required")
	}
	if d.IssuingUnitID == "" {
		return errors.New("issuing org unit is required")
	}
	if d.SiteID == "" {
		return errors.New("site is required")
	}
	switch d.Status {
	case StatusActive, StatusArchived, StatusExpired:
		return nil
	default:
		return errors.New("invalid document status")
	}
}

// DocumentVersion is an immutable snapshot of a document's prior state.
// (document_id, version) is unique; version records are never mutated and
// are deleted only via cascade with their document.
type DocumentVersion struct {
	ID            string
	DocumentID    string
	Version       string // Label such as "1.0", "1.1"
	ChangeSummary string
	Content       string // Content snapshot at version creation time
	FilePath      string
	MimeType      string
	FileSize      int64
	CreatedAt     time.Time
}

// DocumentSummary is the listing projection of a document: no content body,
// plus an aggregate chunk count.
type DocumentSummary struct {
	ID         string
	Title      string
	Source     string
	Status     DocumentStatus
	Metadata   map[string]any
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
