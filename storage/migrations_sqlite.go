package storage

import (
	"database/sql"
	"fmt"
)

// crosswalkSchema is the normalized control store layout.
// requirements.parent_requirement_id is a soft reference and has no foreign key.
const crosswalkSchema = `
CREATE TABLE IF NOT EXISTS standards (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	version TEXT,
	published_date TEXT,
	url TEXT,
	status TEXT NOT NULL DEFAULT 'current' CHECK (status IN ('current', 'superseded')),
	notes TEXT
);

CREATE TABLE IF NOT EXISTS requirements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	standard_id TEXT NOT NULL,
	requirement_id TEXT NOT NULL,
	parent_requirement_id TEXT,
	title TEXT NOT NULL,
	description TEXT,
	rationale TEXT,
	component_type TEXT,
	purdue_level INTEGER CHECK (purdue_level IS NULL OR purdue_level BETWEEN 0 AND 5),
	UNIQUE (standard_id, requirement_id),
	FOREIGN KEY (standard_id) REFERENCES standards(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_requirements_standard ON requirements(standard_id);
CREATE INDEX IF NOT EXISTS idx_requirements_component ON requirements(component_type);

CREATE TABLE IF NOT EXISTS security_levels (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	requirement_db_id INTEGER NOT NULL,
	security_level INTEGER NOT NULL CHECK (security_level BETWEEN 1 AND 4),
	sl_type TEXT NOT NULL DEFAULT 'SL-T' CHECK (sl_type IN ('SL-T', 'SL-C', 'SL-A')),
	capability_level INTEGER,
	notes TEXT,
	FOREIGN KEY (requirement_db_id) REFERENCES requirements(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_security_levels_requirement ON security_levels(requirement_db_id);

CREATE TABLE IF NOT EXISTS mappings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_standard TEXT NOT NULL,
	source_requirement TEXT NOT NULL,
	target_standard TEXT NOT NULL,
	target_requirement TEXT NOT NULL,
	mapping_type TEXT NOT NULL CHECK (mapping_type IN ('exact', 'partial', 'related', 'supersedes', 'broader', 'narrower')),
	confidence REAL NOT NULL DEFAULT 1.0 CHECK (confidence BETWEEN 0.0 AND 1.0),
	notes TEXT,
	created_at TEXT NOT NULL,
	UNIQUE (source_standard, source_requirement, target_standard, target_requirement)
);

CREATE TABLE IF NOT EXISTS zones (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	purdue_level INTEGER NOT NULL CHECK (purdue_level BETWEEN 0 AND 5),
	security_level_target INTEGER CHECK (security_level_target IS NULL OR security_level_target BETWEEN 1 AND 4),
	description TEXT,
	iec_reference TEXT,
	typical_assets TEXT,
	UNIQUE (name, purdue_level)
);

CREATE TABLE IF NOT EXISTS conduits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	conduit_type TEXT NOT NULL,
	security_requirements TEXT,
	description TEXT,
	iec_reference TEXT,
	minimum_security_level INTEGER NOT NULL DEFAULT 1 CHECK (minimum_security_level BETWEEN 1 AND 4),
	UNIQUE (name, conduit_type)
);

CREATE TABLE IF NOT EXISTS zone_conduit_flows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_zone_id INTEGER NOT NULL,
	target_zone_id INTEGER NOT NULL,
	conduit_id INTEGER NOT NULL,
	data_flow_description TEXT,
	security_level_required INTEGER CHECK (security_level_required IS NULL OR security_level_required BETWEEN 1 AND 4),
	bidirectional INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (source_zone_id) REFERENCES zones(id) ON DELETE CASCADE,
	FOREIGN KEY (target_zone_id) REFERENCES zones(id) ON DELETE CASCADE,
	FOREIGN KEY (conduit_id) REFERENCES conduits(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS techniques (
	technique_id TEXT PRIMARY KEY,
	tactic TEXT,
	name TEXT NOT NULL,
	description TEXT,
	platforms TEXT,    -- JSON array
	data_sources TEXT  -- JSON array
);

CREATE TABLE IF NOT EXISTS mitigations (
	mitigation_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS technique_mitigations (
	technique_id TEXT NOT NULL,
	mitigation_id TEXT NOT NULL,
	requirement_id TEXT, -- primary requirement identifier, filled by cross-mapping
	PRIMARY KEY (technique_id, mitigation_id),
	FOREIGN KEY (technique_id) REFERENCES techniques(technique_id) ON DELETE CASCADE,
	FOREIGN KEY (mitigation_id) REFERENCES mitigations(mitigation_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS sector_applicability (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sector TEXT NOT NULL,
	jurisdiction TEXT NOT NULL,
	standard TEXT NOT NULL,
	applicability TEXT NOT NULL CHECK (applicability IN ('mandatory', 'recommended', 'optional', 'not_applicable')),
	threshold TEXT,
	regulatory_driver TEXT,
	effective_date TEXT,
	UNIQUE (sector, jurisdiction, standard),
	FOREIGN KEY (standard) REFERENCES standards(id) ON DELETE CASCADE
);
`

// crosswalkTables lists every table in reverse dependency order
var crosswalkTables = []string{
	"sector_applicability",
	"technique_mitigations",
	"mitigations",
	"techniques",
	"zone_conduit_flows",
	"conduits",
	"zones",
	"mappings",
	"security_levels",
	"requirements",
	"standards",
}

// lookupIndexes back the hot read paths: bidirectional mapping lookup,
// level rollup and technique-to-requirement resolution
var lookupIndexes = []struct {
	name    string
	table   string
	columns string
}{
	{"idx_mappings_source", "mappings", "source_standard, source_requirement"},
	{"idx_mappings_target", "mappings", "target_standard, target_requirement"},
	{"idx_security_levels_level", "security_levels", "security_level"},
	{"idx_requirements_parent", "requirements", "parent_requirement_id"},
	{"idx_zones_purdue", "zones", "purdue_level"},
	{"idx_flows_source_zone", "zone_conduit_flows", "source_zone_id"},
	{"idx_flows_target_zone", "zone_conduit_flows", "target_zone_id"},
	{"idx_technique_mitigations_requirement", "technique_mitigations", "requirement_id"},
	{"idx_sector_applicability_standard", "sector_applicability", "standard"},
}

// RegisterSQLiteMigrations registers all SQLite migrations with the runner
func RegisterSQLiteMigrations(runner *MigrationRunner) {
	runner.Register(Migration{
		Version:     "1.0.0",
		Name:        "create_crosswalk_schema",
		Description: "Standards, requirements, security levels, mappings, zones, conduits, flows, techniques, mitigations and sector applicability",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(crosswalkSchema)
			return err
		},
		Down: func(tx *sql.Tx) error {
			for _, table := range crosswalkTables {
				if err := validateSQLIdentifier(table); err != nil {
					return err
				}
				if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
					return fmt.Errorf("failed to drop %s: %w", table, err)
				}
			}
			return nil
		},
	})

	runner.Register(Migration{
		Version:     "1.1.0",
		Name:        "add_lookup_indexes",
		Description: "Indexes for bidirectional mapping lookup, level rollup and flow joins",
		Up: func(tx *sql.Tx) error {
			for _, idx := range lookupIndexes {
				if err := createIndexIfNotExists(tx, idx.name, idx.table, idx.columns); err != nil {
					return fmt.Errorf("failed to create %s: %w", idx.name, err)
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			for _, idx := range lookupIndexes {
				if err := validateSQLIdentifier(idx.name); err != nil {
					return err
				}
				if _, err := tx.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", idx.name)); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// RunMigrations runs all pending migrations on the write pool
func (s *SQLite) RunMigrations() error {
	runner, err := s.NewMigrationRunner()
	if err != nil {
		return err
	}

	if err := runner.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	issues, err := runner.VerifyIntegrity()
	if err != nil {
		s.Logger.Warnf("Failed to verify migration integrity: %v", err)
	} else {
		for _, issue := range issues {
			s.Logger.Warnf("Migration integrity issue: %s", issue)
		}
	}

	status, err := runner.Status()
	if err != nil {
		s.Logger.Warnf("Failed to get migration status: %v", err)
	} else {
		s.Logger.Infof("Migration status: %d applied, %d pending", status.Applied, status.Pending)
	}

	return nil
}

// NewMigrationRunner returns a runner on the write pool with every SQLite migration registered
func (s *SQLite) NewMigrationRunner() (*MigrationRunner, error) {
	runner, err := NewMigrationRunner(s.WriteDB, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration runner: %w", err)
	}
	RegisterSQLiteMigrations(runner)
	return runner, nil
}
