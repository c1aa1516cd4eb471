package storage

import (
	"context"
	"path/filepath"
	"testing"

	"crosswalk/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestSQLite opens a migrated store in a temp directory
func setupTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "crosswalk.db"), Options{ReadPoolSize: 4}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func seedStandard(t *testing.T, s *SQLite, id, title string) {
	t.Helper()
	ss := NewSQLiteStandardStorage(s, s.Logger)
	require.NoError(t, ss.UpsertStandard(context.Background(), &core.Standard{ID: id, Title: title}))
}

func seedRequirement(t *testing.T, s *SQLite, req core.Requirement, levels ...int) int64 {
	t.Helper()
	rs := NewSQLiteRequirementStorage(s, s.Logger)
	rows := make([]core.SecurityLevel, len(levels))
	for i, l := range levels {
		rows[i] = core.SecurityLevel{Level: l}
	}
	id, err := rs.UpsertRequirement(context.Background(), &req, rows)
	require.NoError(t, err)
	return id
}

func TestNewSQLite_PoolsConfigured(t *testing.T) {
	s := setupTestSQLite(t)

	var fk int
	require.NoError(t, s.ReadDB.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, s.WriteDB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	stats := s.GetConnectionPoolStats()
	assert.Equal(t, 1, stats.WritePool.MaxOpenConnections)
	assert.Equal(t, 4, stats.ReadPool.MaxOpenConnections)

	assert.NoError(t, s.HealthCheck(context.Background()))
}

func TestNewSQLite_ReadPoolRejectsWrites(t *testing.T) {
	s := setupTestSQLite(t)

	_, err := s.ReadDB.Exec(`INSERT INTO standards (id, title) VALUES ('x', 'X')`)
	require.Error(t, err, "query_only read pool must refuse writes")

	_, err = s.WriteDB.Exec(`INSERT INTO standards (id, title) VALUES ('x', 'X')`)
	require.NoError(t, err)
}

func TestNewSQLite_MigrationsApplied(t *testing.T) {
	s := setupTestSQLite(t)

	runner, err := s.NewMigrationRunner()
	require.NoError(t, err)
	status, err := runner.Status()
	require.NoError(t, err)
	assert.Equal(t, 2, status.Applied)
	assert.Equal(t, 0, status.Pending)
	assert.Equal(t, "1.1.0", status.LatestApplied)

	issues, err := runner.VerifyIntegrity()
	require.NoError(t, err)
	assert.Empty(t, issues)

	for _, table := range crosswalkTables {
		var name string
		err := s.ReadDB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestNewSQLite_ReopenIsIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	path := filepath.Join(t.TempDir(), "nested", "crosswalk.db")

	s1, err := NewSQLite(path, Options{}, logger)
	require.NoError(t, err)
	seedStandard(t, s1, "iec-62443-3-3", "System security requirements")
	require.NoError(t, s1.Close())

	s2, err := NewSQLite(path, Options{}, logger)
	require.NoError(t, err)
	defer s2.Close()

	std, err := NewSQLiteStandardStorage(s2, logger).GetStandard(context.Background(), "iec-62443-3-3")
	require.NoError(t, err)
	assert.Equal(t, core.StandardStatusCurrent, std.Status)
}

func TestMigrationRollback(t *testing.T) {
	s := setupTestSQLite(t)
	runner, err := s.NewMigrationRunner()
	require.NoError(t, err)

	require.NoError(t, runner.RollbackMigration("1.1.0", "test"))
	pending, err := runner.GetPendingMigrations()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1.1.0", pending[0].Version)

	require.NoError(t, runner.RunMigrations())
	status, err := runner.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, status.Pending)
}

func TestValidateDatabasePath(t *testing.T) {
	valid := []string{
		"crosswalk.db",
		"data/crosswalk.db",
		filepath.Join(t.TempDir(), "crosswalk.db"),
		"/var/lib/crosswalk/crosswalk.db",
	}
	for _, p := range valid {
		assert.NoError(t, validateDatabasePath(p), p)
	}

	invalid := []string{
		"",
		"../../../etc/passwd.db",
		"data/../../secrets/keys.db",
		`data\..\keys.db`,
		"data\x00hidden.db",
		"CON",
		"nul.db",
		"data/LPT1.db",
		"crosswalk.db?_pragma=query_only(0)",
	}
	for _, p := range invalid {
		assert.Error(t, validateDatabasePath(p), "%q", p)
	}
}

func TestNewSQLite_RejectsTraversal(t *testing.T) {
	_, err := NewSQLite("../../../etc/crosswalk.db", Options{}, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database path")
}

func TestClosedDatabase(t *testing.T) {
	s := setupTestSQLite(t)
	require.NoError(t, s.Close())

	_, err := NewSQLiteStandardStorage(s, s.Logger).GetStandard(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabaseClosed)
	assert.False(t, IsNotFound(err))
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("data/x.db", "busy_timeout(5000)", "foreign_keys(1)")
	assert.Equal(t, "data/x.db?_pragma=busy_timeout%285000%29&_pragma=foreign_keys%281%29", dsn)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.1.0", -1},
		{"1.10.0", "1.9.0", 1},
		{"2", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestValidateSQLIdentifier(t *testing.T) {
	for _, ok := range []string{"mappings", "_tmp", "idx_flows_source_zone", "T1"} {
		assert.NoError(t, validateSQLIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "zones; DROP TABLE x", "a-b", "naïve"} {
		assert.Error(t, validateSQLIdentifier(bad), bad)
	}
}

func TestMigrationRunner_DetectsDrift(t *testing.T) {
	s := setupTestSQLite(t)
	_, err := s.WriteDB.Exec(`UPDATE schema_versions SET checksum = 'stale' WHERE version = '1.0.0'`)
	require.NoError(t, err)
	_, err = s.WriteDB.Exec(`INSERT INTO schema_versions (version, name, checksum, applied_at) VALUES ('0.9.0', 'legacy', 'x', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)

	runner, err := s.NewMigrationRunner()
	require.NoError(t, err)
	issues, err := runner.VerifyIntegrity()
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "0.9.0")
	assert.Contains(t, issues[1], "checksum changed")

	assert.Error(t, runner.RollbackMigration("9.9.9", "test"))
}

func TestGetAppliedMigrations_UnreadableTimestampWarns(t *testing.T) {
	s := setupTestSQLite(t)
	_, err := s.WriteDB.Exec(`UPDATE schema_versions SET applied_at = 'last tuesday' WHERE version = '1.0.0'`)
	require.NoError(t, err)

	obs, logs := observer.New(zap.WarnLevel)
	runner, err := NewMigrationRunner(s.WriteDB, zap.New(obs).Sugar())
	require.NoError(t, err)
	RegisterSQLiteMigrations(runner)

	records, err := runner.GetAppliedMigrations()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].AppliedAt.IsZero())
	assert.False(t, records[1].AppliedAt.IsZero())

	entries := logs.FilterMessage("Migration ledger has unreadable applied_at").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "1.0.0", entries[0].ContextMap()["version"])
}
