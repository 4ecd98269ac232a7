package storage

import (
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrdered(t *testing.T) {
	require.NotEmpty(t, AllMigrations)

	var prev *semver.Version
	for _, m := range AllMigrations {
		v, err := semver.NewVersion(m.Version)
		require.NoError(t, err, "migration version %s must be valid semver", m.Version)
		if prev != nil {
			assert.True(t, prev.LessThan(v), "migrations must be strictly ascending")
		}
		prev = v
	}
	assert.Equal(t, CurrentSchemaVersion, AllMigrations[len(AllMigrations)-1].Version)
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	// NewSQLiteStorage already applied everything; a second run is a no-op
	require.NoError(t, ApplyMigrations(ctx, s.db))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, len(AllMigrations), n)
}

func TestApplyMigrationsCreatesTables(t *testing.T) {
	s := setupTestDB(t)

	for _, table := range []string{
		"documents", "chunks", "document_versions",
		"document_types", "org_units", "sites", "equipment", "keywords",
		"document_equipment", "document_keywords",
		"sessions", "messages",
	} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s must exist", table)
	}
}

func TestRollbackMigration(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, s.db))

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='documents'").Scan(&name)
	assert.Error(t, err)

	// Nothing left to roll back
	assert.Error(t, RollbackMigration(ctx, s.db))
}
