package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crosswalk/core"

	"go.uber.org/zap"
)

// SQLiteTechniqueStorage reads and writes adversary techniques, mitigations and
// the technique-mitigation links
type SQLiteTechniqueStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteTechniqueStorage creates a new SQLite-based technique storage
func NewSQLiteTechniqueStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteTechniqueStorage {
	return &SQLiteTechniqueStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

// GetTechnique retrieves a technique by id. A malformed platforms or
// data_sources value decodes to a nil list and is logged; the record still loads.
func (ts *SQLiteTechniqueStorage) GetTechnique(ctx context.Context, techniqueID string) (*core.Technique, error) {
	query := `SELECT technique_id, tactic, name, description, platforms, data_sources FROM techniques WHERE technique_id = ?`

	var t core.Technique
	var tactic, description, platforms, dataSources sql.NullString
	err := ts.sqlite.ReadDB.QueryRowContext(ctx, query, techniqueID).Scan(
		&t.TechniqueID, &tactic, &t.Name, &description, &platforms, &dataSources,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("technique %s: %w", techniqueID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get technique: %w", classifyErr(err))
	}

	t.Tactic = nullStringPtr(tactic)
	t.Description = nullStringPtr(description)

	if t.Platforms, err = decodeList(platforms); err != nil {
		ts.logger.Warnw("Degrading malformed technique list to null",
			"technique_id", techniqueID, "field", "platforms", "error", err)
	}
	if t.DataSources, err = decodeList(dataSources); err != nil {
		ts.logger.Warnw("Degrading malformed technique list to null",
			"technique_id", techniqueID, "field", "data_sources", "error", err)
	}
	return &t, nil
}

// GetMitigationsForTechnique returns the mitigations linked to a technique,
// each with its primary requirement link, ordered by mitigation id
func (ts *SQLiteTechniqueStorage) GetMitigationsForTechnique(ctx context.Context, techniqueID string) ([]core.LinkedMitigation, error) {
	query := `
		SELECT m.mitigation_id, m.name, m.description, tm.requirement_id
		FROM technique_mitigations tm
		JOIN mitigations m ON m.mitigation_id = tm.mitigation_id
		WHERE tm.technique_id = ?
		ORDER BY m.mitigation_id`
	rows, err := ts.sqlite.ReadDB.QueryContext(ctx, query, techniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mitigations: %w", classifyErr(err))
	}
	defer rows.Close()

	mitigations := []core.LinkedMitigation{}
	for rows.Next() {
		var lm core.LinkedMitigation
		var description, requirementID sql.NullString
		if err := rows.Scan(&lm.MitigationID, &lm.Name, &description, &requirementID); err != nil {
			return nil, fmt.Errorf("failed to scan mitigation: %w", err)
		}
		lm.Description = nullStringPtr(description)
		lm.RequirementID = nullStringPtr(requirementID)
		mitigations = append(mitigations, lm)
	}
	return mitigations, rows.Err()
}

// GetMappedRequirements returns the distinct requirements, restricted to
// standardIDs, that any mitigation of the technique is primary-linked to.
// Two mitigations linked to one requirement yield a single row.
func (ts *SQLiteTechniqueStorage) GetMappedRequirements(ctx context.Context, techniqueID string, standardIDs []string) ([]core.Requirement, error) {
	if len(standardIDs) == 0 {
		return []core.Requirement{}, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT `+requirementColumns+`
		FROM technique_mitigations tm
		JOIN requirements r ON r.requirement_id = tm.requirement_id
		WHERE tm.technique_id = ? AND tm.requirement_id IS NOT NULL
		  AND r.standard_id IN (%s)
		ORDER BY r.standard_id, r.requirement_id`, placeholders(len(standardIDs)))
	args := append([]interface{}{techniqueID}, stringArgs(standardIDs)...)

	rows, err := ts.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mapped requirements: %w", classifyErr(err))
	}
	defer rows.Close()

	requirements := []core.Requirement{}
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		requirements = append(requirements, *req)
	}
	return requirements, rows.Err()
}

// UpsertTechnique inserts or replaces a technique in place
func (ts *SQLiteTechniqueStorage) UpsertTechnique(ctx context.Context, t *core.Technique) error {
	platforms, err := encodeList(t.Platforms)
	if err != nil {
		return err
	}
	dataSources, err := encodeList(t.DataSources)
	if err != nil {
		return err
	}

	_, err = ts.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO techniques (technique_id, tactic, name, description, platforms, data_sources)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(technique_id) DO UPDATE SET
			tactic = excluded.tactic,
			name = excluded.name,
			description = excluded.description,
			platforms = excluded.platforms,
			data_sources = excluded.data_sources`,
		t.TechniqueID, toNullString(t.Tactic), t.Name, toNullString(t.Description), platforms, dataSources)
	if err != nil {
		return fmt.Errorf("failed to upsert technique %s: %w", t.TechniqueID, classifyErr(err))
	}
	return nil
}

// UpsertMitigation inserts or replaces a mitigation in place
func (ts *SQLiteTechniqueStorage) UpsertMitigation(ctx context.Context, m *core.Mitigation) error {
	_, err := ts.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO mitigations (mitigation_id, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(mitigation_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description`,
		m.MitigationID, m.Name, toNullString(m.Description))
	if err != nil {
		return fmt.Errorf("failed to upsert mitigation %s: %w", m.MitigationID, classifyErr(err))
	}
	return nil
}

// LinkTechniqueMitigation records that a mitigation addresses a technique,
// optionally naming the primary requirement identifier that satisfies it
func (ts *SQLiteTechniqueStorage) LinkTechniqueMitigation(ctx context.Context, link core.TechniqueMitigation) error {
	_, err := ts.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO technique_mitigations (technique_id, mitigation_id, requirement_id)
		VALUES (?, ?, ?)
		ON CONFLICT(technique_id, mitigation_id) DO UPDATE SET
			requirement_id = excluded.requirement_id`,
		link.TechniqueID, link.MitigationID, toNullString(link.RequirementID))
	if err != nil {
		return fmt.Errorf("failed to link %s to %s: %w", link.TechniqueID, link.MitigationID, classifyErr(err))
	}
	return nil
}
