package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"crosswalk/core"

	"go.uber.org/zap"
)

// SQLiteMappingStorage reads and writes cross-standard mappings
type SQLiteMappingStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteMappingStorage creates a new SQLite-based mapping storage
func NewSQLiteMappingStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteMappingStorage {
	return &SQLiteMappingStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

const mappingColumns = `id, source_standard, source_requirement, target_standard, target_requirement,
	mapping_type, confidence, notes, created_at`

// GetMappingsFor returns every mapping where (standardID, requirementID) is the
// source or the target. Mappings are stored one-way, so both sides are searched
// in a single UNION. Rows are ordered by mapping id.
func (ms *SQLiteMappingStorage) GetMappingsFor(ctx context.Context, standardID, requirementID string) ([]core.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + ` FROM mappings
		WHERE source_standard = ? AND source_requirement = ?
		UNION
		SELECT ` + mappingColumns + ` FROM mappings
		WHERE target_standard = ? AND target_requirement = ?
		ORDER BY id`
	rows, err := ms.sqlite.ReadDB.QueryContext(ctx, query, standardID, requirementID, standardID, requirementID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", classifyErr(err))
	}
	defer rows.Close()

	mappings := []core.Mapping{}
	for rows.Next() {
		var m core.Mapping
		var mappingType, createdAt string
		var notes sql.NullString
		if err := rows.Scan(&m.ID, &m.SourceStandard, &m.SourceRequirement, &m.TargetStandard,
			&m.TargetRequirement, &mappingType, &m.Confidence, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		m.MappingType = core.MappingType(mappingType)
		m.Notes = nullStringPtr(notes)
		if m.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			ms.logger.Warnw("Mapping has unreadable created_at",
				"mapping_id", m.ID, "error", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// UpsertMapping inserts a mapping or updates the edge with the same 4-tuple.
// The creation timestamp of an existing edge is kept.
func (ms *SQLiteMappingStorage) UpsertMapping(ctx context.Context, m *core.Mapping) error {
	if !m.MappingType.IsValid() {
		return core.NewValidationError("mapping_type", m.MappingType, "unknown mapping type")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return core.NewValidationError("confidence", m.Confidence, "must be between 0.0 and 1.0")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO mappings (source_standard, source_requirement, target_standard, target_requirement,
		                      mapping_type, confidence, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_standard, source_requirement, target_standard, target_requirement) DO UPDATE SET
			mapping_type = excluded.mapping_type,
			confidence = excluded.confidence,
			notes = excluded.notes`
	_, err := ms.sqlite.WriteDB.ExecContext(ctx, query,
		m.SourceStandard, m.SourceRequirement, m.TargetStandard, m.TargetRequirement,
		string(m.MappingType), m.Confidence, toNullString(m.Notes), m.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert mapping %s/%s -> %s/%s: %w",
			m.SourceStandard, m.SourceRequirement, m.TargetStandard, m.TargetRequirement, classifyErr(err))
	}
	return nil
}
