package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crosswalk/core"
	"crosswalk/search"

	"go.uber.org/zap"
)

// SQLiteRequirementStorage reads and writes requirements and their security levels
type SQLiteRequirementStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteRequirementStorage creates a new SQLite-based requirement storage
func NewSQLiteRequirementStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteRequirementStorage {
	return &SQLiteRequirementStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

// requirementColumns must stay in scanRequirement order
const requirementColumns = `r.id, r.standard_id, r.requirement_id, r.parent_requirement_id,
	r.title, r.description, r.rationale, r.component_type, r.purdue_level`

// scanRequirement scans the requirement columns followed by any extra destinations
func scanRequirement(row rowScanner, extra ...interface{}) (*core.Requirement, error) {
	var req core.Requirement
	var parent, description, rationale, component sql.NullString
	var purdue sql.NullInt64

	dest := []interface{}{
		&req.ID, &req.StandardID, &req.RequirementID, &parent,
		&req.Title, &description, &rationale, &component, &purdue,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	req.ParentRequirementID = nullStringPtr(parent)
	req.Description = nullStringPtr(description)
	req.Rationale = nullStringPtr(rationale)
	req.ComponentType = nullStringPtr(component)
	req.PurdueLevel = nullIntPtr(purdue)
	return &req, nil
}

// SearchRequirements returns requirements whose title, description or rationale
// contains query, scored and ordered by search.RequirementQuery
func (rs *SQLiteRequirementStorage) SearchRequirements(ctx context.Context, query string, filter core.SearchFilter) ([]core.SearchResult, error) {
	sqlQuery, args := search.RequirementQuery(query, filter)
	rows, err := rs.sqlite.ReadDB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search requirements: %w", classifyErr(err))
	}
	defer rows.Close()

	results := []core.SearchResult{}
	for rows.Next() {
		var title string
		var score float64
		req, err := scanRequirement(rows, &title, &score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		results = append(results, core.SearchResult{
			Requirement:   *req,
			StandardTitle: title,
			Relevance:     score,
		})
	}
	return results, rows.Err()
}

// GetRequirement retrieves a requirement by its (standard, requirement identifier) key
func (rs *SQLiteRequirementStorage) GetRequirement(ctx context.Context, standardID, requirementID string) (*core.Requirement, error) {
	query := `SELECT ` + requirementColumns + ` FROM requirements r WHERE r.standard_id = ? AND r.requirement_id = ?`
	req, err := scanRequirement(rs.sqlite.ReadDB.QueryRowContext(ctx, query, standardID, requirementID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requirement %s/%s: %w", standardID, requirementID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement: %w", classifyErr(err))
	}
	return req, nil
}

func scanSecurityLevel(row rowScanner) (core.SecurityLevel, error) {
	var sl core.SecurityLevel
	var slType string
	var capability sql.NullInt64
	var notes sql.NullString
	if err := row.Scan(&sl.ID, &sl.RequirementDBID, &sl.Level, &slType, &capability, &notes); err != nil {
		return sl, err
	}
	sl.Type = core.LevelType(slType)
	sl.CapabilityLevel = nullIntPtr(capability)
	sl.Notes = nullStringPtr(notes)
	return sl, nil
}

// GetSecurityLevels returns the level rows of one requirement in ascending level order
func (rs *SQLiteRequirementStorage) GetSecurityLevels(ctx context.Context, requirementDBID int64) ([]core.SecurityLevel, error) {
	levels, err := rs.GetSecurityLevelsBatch(ctx, []int64{requirementDBID})
	if err != nil {
		return nil, err
	}
	if rows := levels[requirementDBID]; rows != nil {
		return rows, nil
	}
	return []core.SecurityLevel{}, nil
}

// GetSecurityLevelsBatch returns the level rows of several requirements keyed by
// surrogate id, each list in ascending level order
func (rs *SQLiteRequirementStorage) GetSecurityLevelsBatch(ctx context.Context, requirementDBIDs []int64) (map[int64][]core.SecurityLevel, error) {
	result := make(map[int64][]core.SecurityLevel, len(requirementDBIDs))
	if len(requirementDBIDs) == 0 {
		return result, nil
	}

	args := make([]interface{}, len(requirementDBIDs))
	for i, id := range requirementDBIDs {
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT id, requirement_db_id, security_level, sl_type, capability_level, notes
		FROM security_levels
		WHERE requirement_db_id IN (%s)
		ORDER BY requirement_db_id, security_level, id`, placeholders(len(args)))

	rows, err := rs.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query security levels: %w", classifyErr(err))
	}
	defer rows.Close()

	for rows.Next() {
		sl, err := scanSecurityLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security level: %w", err)
		}
		result[sl.RequirementDBID] = append(result[sl.RequirementDBID], sl)
	}
	return result, rows.Err()
}

// GetRequirementsByLevel returns requirements with a level row at exactly level,
// with the owning standard title, ordered by standard then surrogate id.
// Enhancements (non-null parent) are skipped unless includeEnhancements is set.
func (rs *SQLiteRequirementStorage) GetRequirementsByLevel(ctx context.Context, level int, componentType *string, includeEnhancements bool) ([]core.LevelRequirement, error) {
	query := `
		SELECT ` + requirementColumns + `, s.title
		FROM requirements r
		JOIN standards s ON s.id = r.standard_id
		WHERE EXISTS (
			SELECT 1 FROM security_levels sl
			WHERE sl.requirement_db_id = r.id AND sl.security_level = ?
		)`
	args := []interface{}{level}

	if componentType != nil && *componentType != "" {
		query += ` AND r.component_type = ?`
		args = append(args, *componentType)
	}
	if !includeEnhancements {
		query += ` AND (r.parent_requirement_id IS NULL OR r.parent_requirement_id = '')`
	}
	query += ` ORDER BY r.standard_id, r.id`

	rows, err := rs.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements by level: %w", classifyErr(err))
	}
	defer rows.Close()

	results := []core.LevelRequirement{}
	for rows.Next() {
		var title string
		req, err := scanRequirement(rows, &title)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		results = append(results, core.LevelRequirement{Requirement: *req, StandardTitle: title})
	}
	return results, rows.Err()
}

// UpsertRequirement inserts or updates a requirement and replaces its security
// level rows wholesale in one transaction. It returns the surrogate id.
func (rs *SQLiteRequirementStorage) UpsertRequirement(ctx context.Context, req *core.Requirement, levels []core.SecurityLevel) (int64, error) {
	if req.PurdueLevel != nil {
		if err := core.ValidatePurdueLevel("purdue_level", *req.PurdueLevel); err != nil {
			return 0, err
		}
	}
	for i := range levels {
		if err := core.ValidateSecurityLevel("security_level", levels[i].Level); err != nil {
			return 0, err
		}
		if levels[i].Type == "" {
			levels[i].Type = core.LevelTypeTarget
		}
		if !levels[i].Type.IsValid() {
			return 0, core.NewValidationError("sl_type", levels[i].Type, "must be SL-T, SL-C or SL-A")
		}
	}

	err := rs.sqlite.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO requirements (standard_id, requirement_id, parent_requirement_id, title, description, rationale, component_type, purdue_level)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(standard_id, requirement_id) DO UPDATE SET
				parent_requirement_id = excluded.parent_requirement_id,
				title = excluded.title,
				description = excluded.description,
				rationale = excluded.rationale,
				component_type = excluded.component_type,
				purdue_level = excluded.purdue_level`,
			req.StandardID, req.RequirementID, toNullString(req.ParentRequirementID), req.Title,
			toNullString(req.Description), toNullString(req.Rationale), toNullString(req.ComponentType),
			toNullInt(req.PurdueLevel))
		if err != nil {
			return fmt.Errorf("failed to upsert requirement: %w", err)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM requirements WHERE standard_id = ? AND requirement_id = ?`,
			req.StandardID, req.RequirementID).Scan(&req.ID); err != nil {
			return fmt.Errorf("failed to read requirement id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM security_levels WHERE requirement_db_id = ?`, req.ID); err != nil {
			return fmt.Errorf("failed to clear security levels: %w", err)
		}

		for i := range levels {
			levels[i].RequirementDBID = req.ID
			res, err := tx.ExecContext(ctx, `
				INSERT INTO security_levels (requirement_db_id, security_level, sl_type, capability_level, notes)
				VALUES (?, ?, ?, ?, ?)`,
				req.ID, levels[i].Level, string(levels[i].Type), toNullInt(levels[i].CapabilityLevel), toNullString(levels[i].Notes))
			if err != nil {
				return fmt.Errorf("failed to insert security level %d: %w", levels[i].Level, err)
			}
			if id, err := res.LastInsertId(); err == nil {
				levels[i].ID = id
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("requirement %s/%s: %w", req.StandardID, req.RequirementID, classifyErr(err))
	}
	return req.ID, nil
}
