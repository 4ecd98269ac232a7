package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// Reference vocabulary tables share one shape (id, name, description,
// is_active, timestamps); org_units add a self-referencing parent_id. The
// typed methods below delegate to shared helpers keyed by table name.

// refRow is the common row shape of a vocabulary table
type refRow struct {
	ID          string
	Name        string
	Description string
	ParentID    *string // org_units only
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *SQLiteStorage) createRef(ctx context.Context, table string, row *refRow) error {
	if row.Name == "" {
		return fmt.Errorf("%w: %s name cannot be empty", types.ErrValidation, strings.TrimSuffix(table, "s"))
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now

	var err error
	if table == "org_units" {
		var parent any
		if row.ParentID != nil {
			parent = *row.ParentID
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO org_units (id, name, description, parent_id, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, row.ID, row.Name, row.Description, parent, row.IsActive, now, now)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO `+table+` (id, name, description, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, row.ID, row.Name, row.Description, row.IsActive, now, now)
	}
	return dbErr("create "+table, err)
}

func (s *SQLiteStorage) updateRef(ctx context.Context, table string, row *refRow) error {
	if row.Name == "" {
		return fmt.Errorf("%w: %s name cannot be empty", types.ErrValidation, strings.TrimSuffix(table, "s"))
	}
	row.UpdatedAt = time.Now()

	var res sql.Result
	var err error
	if table == "org_units" {
		var parent any
		if row.ParentID != nil {
			parent = *row.ParentID
		}
		res, err = s.db.ExecContext(ctx, `
			UPDATE org_units SET name = ?, description = ?, parent_id = ?, is_active = ?, updated_at = ?
			WHERE id = ?
		`, row.Name, row.Description, parent, row.IsActive, row.UpdatedAt, row.ID)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE `+table+` SET name = ?, description = ?, is_active = ?, updated_at = ?
			WHERE id = ?
		`, row.Name, row.Description, row.IsActive, row.UpdatedAt, row.ID)
	}
	if err != nil {
		return dbErr("update "+table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update %s %s: %w", table, row.ID, types.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) deleteRef(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return dbErr("delete "+table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s %s: %w", table, id, types.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) listRefs(ctx context.Context, table string, activeOnly bool) ([]*refRow, error) {
	cols := "id, name, description, is_active, created_at, updated_at"
	if table == "org_units" {
		cols = "id, name, description, parent_id, is_active, created_at, updated_at"
	}
	query := "SELECT " + cols + " FROM " + table
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbErr("list "+table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*refRow
	for rows.Next() {
		var row refRow
		if table == "org_units" {
			var parent sql.NullString
			if err := rows.Scan(&row.ID, &row.Name, &row.Description, &parent,
				&row.IsActive, &row.CreatedAt, &row.UpdatedAt); err != nil {
				return nil, dbErr("list "+table, err)
			}
			if parent.Valid {
				row.ParentID = &parent.String
			}
		} else {
			if err := rows.Scan(&row.ID, &row.Name, &row.Description,
				&row.IsActive, &row.CreatedAt, &row.UpdatedAt); err != nil {
				return nil, dbErr("list "+table, err)
			}
		}
		out = append(out, &row)
	}
	return out, dbErr("list "+table, rows.Err())
}

// Document types

func (s *SQLiteStorage) CreateDocumentType(ctx context.Context, dt *types.DocumentType) error {
	row := refRow{ID: dt.ID, Name: dt.Name, Description: dt.Description, IsActive: dt.IsActive}
	if err := s.createRef(ctx, "document_types", &row); err != nil {
		return err
	}
	dt.ID, dt.CreatedAt, dt.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) UpdateDocumentType(ctx context.Context, dt *types.DocumentType) error {
	row := refRow{ID: dt.ID, Name: dt.Name, Description: dt.Description, IsActive: dt.IsActive}
	if err := s.updateRef(ctx, "document_types", &row); err != nil {
		return err
	}
	dt.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) DeleteDocumentType(ctx context.Context, id string) error {
	return s.deleteRef(ctx, "document_types", id)
}

func (s *SQLiteStorage) ListDocumentTypes(ctx context.Context, activeOnly bool) ([]*types.DocumentType, error) {
	rows, err := s.listRefs(ctx, "document_types", activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*types.DocumentType, len(rows))
	for i, r := range rows {
		out[i] = &types.DocumentType{ID: r.ID, Name: r.Name, Description: r.Description,
			IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Org units

func (s *SQLiteStorage) CreateOrgUnit(ctx context.Context, ou *types.OrgUnit) error {
	row := refRow{ID: ou.ID, Name: ou.Name, Description: ou.Description, ParentID: ou.ParentID, IsActive: ou.IsActive}
	if err := s.createRef(ctx, "org_units", &row); err != nil {
		return err
	}
	ou.ID, ou.CreatedAt, ou.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) UpdateOrgUnit(ctx context.Context, ou *types.OrgUnit) error {
	if ou.ParentID != nil && *ou.ParentID == ou.ID {
		return fmt.Errorf("%w: org unit cannot be its own parent", types.ErrValidation)
	}
	row := refRow{ID: ou.ID, Name: ou.Name, Description: ou.Description, ParentID: ou.ParentID, IsActive: ou.IsActive}
	if err := s.updateRef(ctx, "org_units", &row); err != nil {
		return err
	}
	ou.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) DeleteOrgUnit(ctx context.Context, id string) error {
	return s.deleteRef(ctx, "org_units", id)
}

func (s *SQLiteStorage) ListOrgUnits(ctx context.Context, activeOnly bool) ([]*types.OrgUnit, error) {
	rows, err := s.listRefs(ctx, "org_units", activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*types.OrgUnit, len(rows))
	for i, r := range rows {
		out[i] = &types.OrgUnit{ID: r.ID, Name: r.Name, Description: r.Description, ParentID: r.ParentID,
			IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Sites

func (s *SQLiteStorage) CreateSite(ctx context.Context, site *types.Site) error {
	row := refRow{ID: site.ID, Name: site.Name, Description: site.Description, IsActive: site.IsActive}
	if err := s.createRef(ctx, "sites", &row); err != nil {
		return err
	}
	site.ID, site.CreatedAt, site.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) UpdateSite(ctx context.Context, site *types.Site) error {
	row := refRow{ID: site.ID, Name: site.Name, Description: site.Description, IsActive: site.IsActive}
	if err := s.updateRef(ctx, "sites", &row); err != nil {
		return err
	}
	site.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) DeleteSite(ctx context.Context, id string) error {
	return s.deleteRef(ctx, "sites", id)
}

func (s *SQLiteStorage) ListSites(ctx context.Context, activeOnly bool) ([]*types.Site, error) {
	rows, err := s.listRefs(ctx, "sites", activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Site, len(rows))
	for i, r := range rows {
		out[i] = &types.Site{ID: r.ID, Name: r.Name, Description: r.Description,
			IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Equipment

func (s *SQLiteStorage) CreateEquipment(ctx context.Context, e *types.Equipment) error {
	row := refRow{ID: e.ID, Name: e.Name, Description: e.Description, IsActive: e.IsActive}
	if err := s.createRef(ctx, "equipment", &row); err != nil {
		return err
	}
	e.ID, e.CreatedAt, e.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) UpdateEquipment(ctx context.Context, e *types.Equipment) error {
	row := refRow{ID: e.ID, Name: e.Name, Description: e.Description, IsActive: e.IsActive}
	if err := s.updateRef(ctx, "equipment", &row); err != nil {
		return err
	}
	e.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) DeleteEquipment(ctx context.Context, id string) error {
	return s.deleteRef(ctx, "equipment", id)
}

func (s *SQLiteStorage) ListEquipment(ctx context.Context, activeOnly bool) ([]*types.Equipment, error) {
	rows, err := s.listRefs(ctx, "equipment", activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Equipment, len(rows))
	for i, r := range rows {
		out[i] = &types.Equipment{ID: r.ID, Name: r.Name, Description: r.Description,
			IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Keywords

func (s *SQLiteStorage) CreateKeyword(ctx context.Context, k *types.Keyword) error {
	row := refRow{ID: k.ID, Name: k.Name, Description: k.Description, IsActive: k.IsActive}
	if err := s.createRef(ctx, "keywords", &row); err != nil {
		return err
	}
	k.ID, k.CreatedAt, k.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) UpdateKeyword(ctx context.Context, k *types.Keyword) error {
	row := refRow{ID: k.ID, Name: k.Name, Description: k.Description, IsActive: k.IsActive}
	if err := s.updateRef(ctx, "keywords", &row); err != nil {
		return err
	}
	k.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *SQLiteStorage) DeleteKeyword(ctx context.Context, id string) error {
	return s.deleteRef(ctx, "keywords", id)
}

func (s *SQLiteStorage) ListKeywords(ctx context.Context, activeOnly bool) ([]*types.Keyword, error) {
	rows, err := s.listRefs(ctx, "keywords", activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Keyword, len(rows))
	for i, r := range rows {
		out[i] = &types.Keyword{ID: r.ID, Name: r.Name, Description: r.Description,
			IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Junctions

// setJunction replaces the tagged set for one document in one transaction
func (s *SQLiteStorage) setJunction(ctx context.Context, table, refCol, documentID string, refIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("set "+table, err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := documentExists(ctx, tx, documentID)
	if err != nil {
		return dbErr("set "+table, err)
	}
	if !ok {
		return fmt.Errorf("set %s: document %s: %w", table, documentID, types.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", documentID); err != nil {
		return dbErr("set "+table, err)
	}
	for _, id := range refIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (document_id, "+refCol+") VALUES (?, ?)", documentID, id); err != nil {
			return dbErr("set "+table, err)
		}
	}
	return dbErr("set "+table, tx.Commit())
}

func (s *SQLiteStorage) SetDocumentEquipment(ctx context.Context, documentID string, equipmentIDs []string) error {
	return s.setJunction(ctx, "document_equipment", "equipment_id", documentID, equipmentIDs)
}

func (s *SQLiteStorage) ListDocumentEquipment(ctx context.Context, documentID string) ([]*types.Equipment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.description, e.is_active, e.created_at, e.updated_at
		FROM equipment e
		INNER JOIN document_equipment de ON de.equipment_id = e.id
		WHERE de.document_id = ?
		ORDER BY e.name ASC
	`, documentID)
	if err != nil {
		return nil, dbErr("list document equipment", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Equipment
	for rows.Next() {
		var e types.Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, dbErr("list document equipment", err)
		}
		out = append(out, &e)
	}
	return out, dbErr("list document equipment", rows.Err())
}

func (s *SQLiteStorage) SetDocumentKeywords(ctx context.Context, documentID string, keywordIDs []string) error {
	return s.setJunction(ctx, "document_keywords", "keyword_id", documentID, keywordIDs)
}

func (s *SQLiteStorage) ListDocumentKeywords(ctx context.Context, documentID string) ([]*types.Keyword, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT k.id, k.name, k.description, k.is_active, k.created_at, k.updated_at
		FROM keywords k
		INNER JOIN document_keywords dk ON dk.keyword_id = k.id
		WHERE dk.document_id = ?
		ORDER BY k.name ASC
	`, documentID)
	if err != nil {
		return nil, dbErr("list document keywords", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Keyword
	for rows.Next() {
		var k types.Keyword
		if err := rows.Scan(&k.ID, &k.Name, &k.Description, &k.IsActive, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, dbErr("list document keywords", err)
		}
		out = append(out, &k)
	}
	return out, dbErr("list document keywords", rows.Err())
}
