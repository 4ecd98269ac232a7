package types

import "time"

// Reference (controlled-vocabulary) entities are independent, admin-managed
// lookup records. Documents reference them by id; equipment and keywords
// relate to documents many-to-many through junction tables.

// DocumentType classifies a document (procedure, manual, drawing, ...).
type DocumentType struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrgUnit is an organizational unit. ParentID forms the unit hierarchy;
// nil marks a root unit.
type OrgUnit struct {
	ID          string
	Name        string
	Description string
	ParentID    *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Site is a physical location documents are issued for.
type Site struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Equipment is a tangible asset documents can be tagged with.
type Equipment struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Keyword is a free-form tag from the controlled keyword list.
type Keyword struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
