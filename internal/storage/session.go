package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// Session operations. An expired session is indistinguishable from a
// missing one: reads return ErrNotFound and writes are rejected.

func (s *SQLiteStorage) CreateSession(ctx context.Context, sess *types.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	meta, err := encodeMetadata(sess.Metadata)
	if err != nil {
		return err
	}

	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	var expires any
	if sess.ExpiresAt != nil {
		expires = *sess.ExpiresAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, metadata, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, meta, now, now, expires)
	return dbErr("create session", err)
}

func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*types.Session, error) {
	var (
		sess    types.Session
		meta    string
		userID  sql.NullString
		expires sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, metadata, created_at, updated_at, expires_at
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &userID, &meta, &sess.CreatedAt, &sess.UpdatedAt, &expires)
	if err != nil {
		return nil, dbErr("get session", err)
	}

	sess.UserID = userID.String
	sess.Metadata = decodeMetadata(meta)
	if expires.Valid {
		t := expires.Time
		sess.ExpiresAt = &t
	}
	if sess.Expired(time.Now()) {
		return nil, fmt.Errorf("get session %s: expired: %w", id, types.ErrNotFound)
	}
	return &sess, nil
}

func (s *SQLiteStorage) UpdateSessionMetadata(ctx context.Context, id string, metadata map[string]any) error {
	// Existence and expiry check share the read path
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE sessions SET metadata = ?, updated_at = ? WHERE id = ?", meta, time.Now(), id)
	return dbErr("update session", err)
}

// DeleteExpiredSessions removes sessions past expiry and, via cascade,
// their messages. Returns the number of sessions removed.
func (s *SQLiteStorage) DeleteExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at < ?", time.Now())
	if err != nil {
		return 0, dbErr("delete expired sessions", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStorage) AddMessage(ctx context.Context, m *types.Message) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	// Reject writes into expired or missing sessions
	if _, err := s.GetSession(ctx, m.SessionID); err != nil {
		return err
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	meta, err := encodeMetadata(m.Metadata)
	if err != nil {
		return err
	}
	m.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.SessionID, string(m.Role), m.Content, meta, m.CreatedAt)
	return dbErr("add message", err)
}

// GetSessionMessages returns a session's messages in insertion order.
// limit <= 0 returns all of them.
func (s *SQLiteStorage) GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*types.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, session_id, role, content, metadata, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("get session messages", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Message
	for rows.Next() {
		var (
			m    types.Message
			role string
			meta string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &meta, &m.CreatedAt); err != nil {
			return nil, dbErr("get session messages", err)
		}
		m.Role = types.MessageRole(role)
		m.Metadata = decodeMetadata(meta)
		out = append(out, &m)
	}
	return out, dbErr("get session messages", rows.Err())
}
