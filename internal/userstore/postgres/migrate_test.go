package postgres

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMigrate struct {
	upErr          error
	downErr        error
	versionVal     uint
	dirty          bool
	versionErr     error
	closeSourceErr error
	closeDBErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDBErr }

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/app", migrateURL("postgres://u:p@db:5432/app"))
	assert.Equal(t, "pgx5://db/app", migrateURL("postgresql://db/app"))
	assert.Equal(t, "pgx5://db/app", migrateURL("pgx5://db/app"))
}

func TestNewMigratorRejectsUnknownScheme(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/testdb")
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigratorUpIgnoresNoChange(t *testing.T) {
	m := &Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange}}
	require.NoError(t, m.Up())

	m = &Migrator{m: &mockMigrate{upErr: errors.New("syntax error")}}
	err := m.Up()
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_UP_FAILED")
}

func TestMigratorDown(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{downErr: migrate.ErrNoChange}}).Down())
	err := (&Migrator{m: &mockMigrate{downErr: errors.New("locked")}}).Down()
	assertCode(t, err, "MIGRATION_DOWN_FAILED")
}

func TestMigratorVersion(t *testing.T) {
	v, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	v, dirty, err = (&Migrator{m: &mockMigrate{versionVal: 1, dirty: true}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.True(t, dirty)
}

func TestMigratorCloseJoinsErrors(t *testing.T) {
	m := &Migrator{m: &mockMigrate{
		closeSourceErr: errors.New("source"),
		closeDBErr:     errors.New("database"),
	}}
	err := m.Close()
	require.Error(t, err)
	assertCode(t, err, "MIGRATION_CLOSE_FAILED")
	assert.Contains(t, err.Error(), "source")
	assert.Contains(t, err.Error(), "database")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file in migrations: %s", name)
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}
