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

// SQLiteZoneStorage reads and writes zones, conduits and the flows between them
type SQLiteZoneStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteZoneStorage creates a new SQLite-based zone storage
func NewSQLiteZoneStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteZoneStorage {
	return &SQLiteZoneStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

func scanZone(row rowScanner) (*core.Zone, error) {
	var z core.Zone
	var slTarget sql.NullInt64
	var description, reference, assets sql.NullString
	if err := row.Scan(&z.ID, &z.Name, &z.PurdueLevel, &slTarget, &description, &reference, &assets); err != nil {
		return nil, err
	}
	z.SecurityLevelTarget = nullIntPtr(slTarget)
	z.Description = nullStringPtr(description)
	z.Reference = nullStringPtr(reference)
	z.TypicalAssets = nullStringPtr(assets)
	return &z, nil
}

// ListZones returns the zones matching filter, ordered by Purdue level then name.
// The reference filter is a case-insensitive substring match on iec_reference.
func (zs *SQLiteZoneStorage) ListZones(ctx context.Context, filter core.ZoneFilter) ([]core.Zone, error) {
	b := search.NewSQLBuilder().
		Select("id", "name", "purdue_level", "security_level_target", "description", "iec_reference", "typical_assets").
		From("zones")
	if filter.PurdueLevel != nil {
		b.Where("purdue_level = ?", *filter.PurdueLevel)
	}
	if filter.SecurityLevelTarget != nil {
		b.Where("security_level_target = ?", *filter.SecurityLevelTarget)
	}
	if filter.ReferenceArchitecture != nil && *filter.ReferenceArchitecture != "" {
		b.Where(search.FoldFunction+`(iec_reference) LIKE ? ESCAPE '\'`, search.LikePattern(search.Fold(*filter.ReferenceArchitecture)))
	}
	query, args := b.OrderBy("purdue_level", "ASC").OrderBy("name", "ASC").Build()

	rows, err := zs.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", classifyErr(err))
	}
	defer rows.Close()

	zones := []core.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

// ListConduits returns every conduit ordered by minimum security level then name
func (zs *SQLiteZoneStorage) ListConduits(ctx context.Context) ([]core.Conduit, error) {
	query := `
		SELECT id, name, conduit_type, security_requirements, description, iec_reference, minimum_security_level
		FROM conduits
		ORDER BY minimum_security_level, name`
	rows, err := zs.sqlite.ReadDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query conduits: %w", classifyErr(err))
	}
	defer rows.Close()

	conduits := []core.Conduit{}
	for rows.Next() {
		var c core.Conduit
		var requirements, description, reference sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.ConduitType, &requirements, &description, &reference, &c.MinimumSecurityLevel); err != nil {
			return nil, fmt.Errorf("failed to scan conduit: %w", err)
		}
		c.SecurityRequirements = nullStringPtr(requirements)
		c.Description = nullStringPtr(description)
		c.Reference = nullStringPtr(reference)
		conduits = append(conduits, c)
	}
	return conduits, rows.Err()
}

const flowQuery = `
	SELECT f.id, f.source_zone_id, f.target_zone_id, f.conduit_id, f.data_flow_description,
	       f.security_level_required, f.bidirectional, sz.name, tz.name, c.name
	FROM zone_conduit_flows f
	JOIN zones sz ON sz.id = f.source_zone_id
	JOIN zones tz ON tz.id = f.target_zone_id
	JOIN conduits c ON c.id = f.conduit_id`

// ListFlows returns every flow with its zone and conduit names, ordered by id
func (zs *SQLiteZoneStorage) ListFlows(ctx context.Context) ([]core.ZoneConduitFlow, error) {
	return zs.queryFlows(ctx, flowQuery+` ORDER BY f.id`)
}

// ListFlowsForZones returns the flows whose source or target zone is in zoneIDs.
// No zones means no flows.
func (zs *SQLiteZoneStorage) ListFlowsForZones(ctx context.Context, zoneIDs []int64) ([]core.ZoneConduitFlow, error) {
	if len(zoneIDs) == 0 {
		return []core.ZoneConduitFlow{}, nil
	}
	ids := make([]interface{}, len(zoneIDs))
	for i, id := range zoneIDs {
		ids[i] = id
	}
	marks := placeholders(len(ids))
	query := fmt.Sprintf(flowQuery+` WHERE f.source_zone_id IN (%s) OR f.target_zone_id IN (%s) ORDER BY f.id`, marks, marks)
	return zs.queryFlows(ctx, query, append(ids, ids...)...)
}

func (zs *SQLiteZoneStorage) queryFlows(ctx context.Context, query string, args ...interface{}) ([]core.ZoneConduitFlow, error) {
	rows, err := zs.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", classifyErr(err))
	}
	defer rows.Close()

	flows := []core.ZoneConduitFlow{}
	for rows.Next() {
		var f core.ZoneConduitFlow
		var description sql.NullString
		var required sql.NullInt64
		var bidirectional int
		if err := rows.Scan(&f.ID, &f.SourceZoneID, &f.TargetZoneID, &f.ConduitID, &description,
			&required, &bidirectional, &f.SourceZoneName, &f.TargetZoneName, &f.ConduitName); err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		f.DataFlowDescription = nullStringPtr(description)
		f.SecurityLevelRequired = nullIntPtr(required)
		f.Bidirectional = bidirectional == 1
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

// FindZone looks a zone up by its (name, Purdue level) key
func (zs *SQLiteZoneStorage) FindZone(ctx context.Context, name string, purdueLevel int) (*core.Zone, error) {
	query := `
		SELECT id, name, purdue_level, security_level_target, description, iec_reference, typical_assets
		FROM zones WHERE name = ? AND purdue_level = ?`
	z, err := scanZone(zs.sqlite.WriteDB.QueryRowContext(ctx, query, name, purdueLevel))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("zone %s (level %d): %w", name, purdueLevel, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get zone: %w", classifyErr(err))
	}
	return z, nil
}

// FindConduitID looks a conduit id up by its (name, type) key
func (zs *SQLiteZoneStorage) FindConduitID(ctx context.Context, name, conduitType string) (int64, error) {
	var id int64
	err := zs.sqlite.WriteDB.QueryRowContext(ctx,
		`SELECT id FROM conduits WHERE name = ? AND conduit_type = ?`, name, conduitType).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("conduit %s (%s): %w", name, conduitType, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get conduit: %w", classifyErr(err))
	}
	return id, nil
}

// UpsertZone inserts or updates the zone keyed by (name, Purdue level) and returns its id
func (zs *SQLiteZoneStorage) UpsertZone(ctx context.Context, z *core.Zone) (int64, error) {
	if err := core.ValidatePurdueLevel("purdue_level", z.PurdueLevel); err != nil {
		return 0, err
	}
	if z.SecurityLevelTarget != nil {
		if err := core.ValidateSecurityLevel("security_level_target", *z.SecurityLevelTarget); err != nil {
			return 0, err
		}
	}

	_, err := zs.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO zones (name, purdue_level, security_level_target, description, iec_reference, typical_assets)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, purdue_level) DO UPDATE SET
			security_level_target = excluded.security_level_target,
			description = excluded.description,
			iec_reference = excluded.iec_reference,
			typical_assets = excluded.typical_assets`,
		z.Name, z.PurdueLevel, toNullInt(z.SecurityLevelTarget), toNullString(z.Description),
		toNullString(z.Reference), toNullString(z.TypicalAssets))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert zone %s: %w", z.Name, classifyErr(err))
	}

	existing, err := zs.FindZone(ctx, z.Name, z.PurdueLevel)
	if err != nil {
		return 0, err
	}
	z.ID = existing.ID
	return z.ID, nil
}

// UpsertConduit inserts or updates the conduit keyed by (name, type) and returns its id
func (zs *SQLiteZoneStorage) UpsertConduit(ctx context.Context, c *core.Conduit) (int64, error) {
	if c.MinimumSecurityLevel == 0 {
		c.MinimumSecurityLevel = core.MinSecurityLevel
	}
	if err := core.ValidateSecurityLevel("minimum_security_level", c.MinimumSecurityLevel); err != nil {
		return 0, err
	}

	_, err := zs.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO conduits (name, conduit_type, security_requirements, description, iec_reference, minimum_security_level)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, conduit_type) DO UPDATE SET
			security_requirements = excluded.security_requirements,
			description = excluded.description,
			iec_reference = excluded.iec_reference,
			minimum_security_level = excluded.minimum_security_level`,
		c.Name, c.ConduitType, toNullString(c.SecurityRequirements), toNullString(c.Description),
		toNullString(c.Reference), c.MinimumSecurityLevel)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert conduit %s: %w", c.Name, classifyErr(err))
	}

	id, err := zs.FindConduitID(ctx, c.Name, c.ConduitType)
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

// InsertFlow records a flow between two existing zones via an existing conduit.
// Dangling references are rejected by the foreign keys.
func (zs *SQLiteZoneStorage) InsertFlow(ctx context.Context, f *core.ZoneConduitFlow) (int64, error) {
	if err := validateFlow(f); err != nil {
		return 0, err
	}
	return insertFlow(ctx, zs.sqlite.WriteDB, f)
}

// ReplaceFlows swaps the whole flow set for flows in one transaction. Every
// flow is validated first; any failure leaves the existing flows in place.
// Flows have no natural key, so re-ingestion replaces them wholesale.
func (zs *SQLiteZoneStorage) ReplaceFlows(ctx context.Context, flows []*core.ZoneConduitFlow) error {
	for i, f := range flows {
		if err := validateFlow(f); err != nil {
			return fmt.Errorf("flows[%d]: %w", i, err)
		}
	}

	return zs.sqlite.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM zone_conduit_flows`); err != nil {
			return fmt.Errorf("failed to clear flows: %w", classifyErr(err))
		}
		for i, f := range flows {
			if _, err := insertFlow(ctx, tx, f); err != nil {
				return fmt.Errorf("flows[%d]: %w", i, err)
			}
		}
		return nil
	})
}

func validateFlow(f *core.ZoneConduitFlow) error {
	if f.SecurityLevelRequired == nil {
		return nil
	}
	return core.ValidateSecurityLevel("security_level_required", *f.SecurityLevelRequired)
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertFlow(ctx context.Context, db execer, f *core.ZoneConduitFlow) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO zone_conduit_flows (source_zone_id, target_zone_id, conduit_id, data_flow_description, security_level_required, bidirectional)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.SourceZoneID, f.TargetZoneID, f.ConduitID, toNullString(f.DataFlowDescription),
		toNullInt(f.SecurityLevelRequired), boolToInt(f.Bidirectional))
	if err != nil {
		return 0, fmt.Errorf("failed to insert flow: %w", classifyErr(err))
	}
	f.ID, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read flow id: %w", err)
	}
	return f.ID, nil
}
