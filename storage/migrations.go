package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Migration is one versioned schema step. Down is optional.
type Migration struct {
	Version     string
	Name        string
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
	Checksum    string
}

// MigrationRecord is a row of schema_versions
type MigrationRecord struct {
	Version    string
	Name       string
	Checksum   string
	AppliedAt  time.Time
	DurationMs int64
}

// MigrationStatus is the summary printed by `crosswalk migrate`
type MigrationStatus struct {
	Registered      int      `json:"registered"`
	Applied         int      `json:"applied"`
	Pending         int      `json:"pending"`
	LatestApplied   string   `json:"latest_applied"`
	IntegrityIssues []string `json:"integrity_issues"`
}

// MigrationRunner applies registered migrations in version order, each in its
// own transaction, and records them in schema_versions.
type MigrationRunner struct {
	db         *sql.DB
	logger     *zap.SugaredLogger
	migrations map[string]Migration
}

const schemaVersionsDDL = `
CREATE TABLE IF NOT EXISTS schema_versions (
	version TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0
)`

// NewMigrationRunner prepares the schema_versions ledger on db
func NewMigrationRunner(db *sql.DB, logger *zap.SugaredLogger) (*MigrationRunner, error) {
	if db == nil {
		return nil, errors.New("migration runner requires a database")
	}
	if logger == nil {
		panic("logger is required")
	}
	if _, err := db.Exec(schemaVersionsDDL); err != nil {
		return nil, fmt.Errorf("failed to create schema_versions: %w", err)
	}
	return &MigrationRunner{db: db, logger: logger, migrations: make(map[string]Migration)}, nil
}

// Register adds m. Registering a version twice replaces the earlier entry.
func (r *MigrationRunner) Register(m Migration) {
	if m.Checksum == "" {
		m.Checksum = calculateChecksum(m)
	}
	r.migrations[m.Version] = m
}

// calculateChecksum fingerprints the identifying fields; Up/Down bodies cannot be hashed
func calculateChecksum(m Migration) string {
	sum := sha256.Sum256([]byte(m.Version + "\x00" + m.Name))
	return hex.EncodeToString(sum[:8])
}

// registered returns the registry sorted by version
func (r *MigrationRunner) registered() []Migration {
	out := make([]Migration, 0, len(r.migrations))
	for _, m := range r.migrations {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return compareVersions(out[i].Version, out[j].Version) < 0 })
	return out
}

// GetAppliedMigrations lists the ledger in version order
func (r *MigrationRunner) GetAppliedMigrations() ([]MigrationRecord, error) {
	rows, err := r.db.Query(`SELECT version, name, checksum, applied_at, duration_ms FROM schema_versions`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_versions: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		var appliedAt string
		if err := rows.Scan(&rec.Version, &rec.Name, &rec.Checksum, &appliedAt, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan schema_versions row: %w", err)
		}
		if rec.AppliedAt, err = parseTimestamp(appliedAt); err != nil {
			r.logger.Warnw("Migration ledger has unreadable applied_at",
				"version", rec.Version, "error", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return compareVersions(records[i].Version, records[j].Version) < 0 })
	return records, nil
}

// GetPendingMigrations lists registered migrations absent from the ledger
func (r *MigrationRunner) GetPendingMigrations() ([]Migration, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}
	done := make(map[string]struct{}, len(applied))
	for _, rec := range applied {
		done[rec.Version] = struct{}{}
	}

	var pending []Migration
	for _, m := range r.registered() {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// RunMigrations applies every pending migration, stopping at the first failure
func (r *MigrationRunner) RunMigrations() error {
	pending, err := r.GetPendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		r.logger.Debug("Schema is current")
		return nil
	}

	for _, m := range pending {
		start := time.Now()
		err := r.inTx(func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.Exec(
				`INSERT OR REPLACE INTO schema_versions (version, name, checksum, applied_at, duration_ms) VALUES (?, ?, ?, ?, ?)`,
				m.Version, m.Name, m.Checksum, time.Now().UTC().Format(time.RFC3339), time.Since(start).Milliseconds())
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Name, err)
		}
		r.logger.Infow("Applied migration", "version", m.Version, "name", m.Name, "duration", time.Since(start))
	}
	return nil
}

// RollbackMigration runs the Down step of an applied migration and removes it
// from the ledger so the next RunMigrations re-applies it
func (r *MigrationRunner) RollbackMigration(version, reason string) error {
	m, ok := r.migrations[version]
	if !ok {
		return fmt.Errorf("migration %s is not registered", version)
	}
	if m.Down == nil {
		return fmt.Errorf("migration %s has no Down step", version)
	}

	var applied string
	err := r.db.QueryRow(`SELECT version FROM schema_versions WHERE version = ?`, version).Scan(&applied)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("migration %s is not applied", version)
	}
	if err != nil {
		return fmt.Errorf("failed to read schema_versions: %w", err)
	}

	err = r.inTx(func(tx *sql.Tx) error {
		if err := m.Down(tx); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM schema_versions WHERE version = ?`, version)
		return err
	})
	if err != nil {
		return fmt.Errorf("rollback of %s failed: %w", version, err)
	}
	r.logger.Warnw("Rolled back migration", "version", version, "name", m.Name, "reason", reason)
	return nil
}

// inTx runs fn in a transaction, converting a panic into an error
func (r *MigrationRunner) inTx(fn func(*sql.Tx) error) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// VerifyIntegrity reports ledger rows with no registered migration and rows
// whose checksum no longer matches the registry
func (r *MigrationRunner) VerifyIntegrity() ([]string, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}

	var issues []string
	for _, rec := range applied {
		m, ok := r.migrations[rec.Version]
		switch {
		case !ok:
			issues = append(issues, fmt.Sprintf("applied migration %s (%s) is not registered", rec.Version, rec.Name))
		case m.Checksum != rec.Checksum:
			issues = append(issues, fmt.Sprintf("migration %s checksum changed: applied %s, registered %s", rec.Version, rec.Checksum, m.Checksum))
		}
	}
	return issues, nil
}

// Status summarizes the ledger against the registry
func (r *MigrationRunner) Status() (*MigrationStatus, error) {
	applied, err := r.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}
	pending, err := r.GetPendingMigrations()
	if err != nil {
		return nil, err
	}
	issues, err := r.VerifyIntegrity()
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{
		Registered:      len(r.migrations),
		Applied:         len(applied),
		Pending:         len(pending),
		IntegrityIssues: issues,
	}
	if n := len(applied); n > 0 {
		status.LatestApplied = applied[n-1].Version
	}
	return status, nil
}

// compareVersions orders dotted numeric versions; missing parts count as zero
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// validateSQLIdentifier accepts [A-Za-z_][A-Za-z0-9_]* only
func validateSQLIdentifier(name string) error {
	if name == "" {
		return errors.New("empty SQL identifier")
	}
	for i, c := range name {
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !letter && (i == 0 || c < '0' || c > '9') {
			return fmt.Errorf("invalid SQL identifier %q", name)
		}
	}
	return nil
}

// createIndexIfNotExists builds a CREATE INDEX statement from validated identifiers
func createIndexIfNotExists(tx *sql.Tx, indexName, table, columns string) error {
	cols := strings.Split(columns, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	for _, ident := range append([]string{indexName, table}, cols...) {
		if err := validateSQLIdentifier(ident); err != nil {
			return err
		}
	}
	_, err := tx.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, table, strings.Join(cols, ", ")))
	return err
}
