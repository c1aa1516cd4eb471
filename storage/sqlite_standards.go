package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crosswalk/core"

	"go.uber.org/zap"
)

// SQLiteStandardStorage reads and writes standards and their sector applicability
type SQLiteStandardStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteStandardStorage creates a new SQLite-based standard storage
func NewSQLiteStandardStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteStandardStorage {
	return &SQLiteStandardStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

const standardColumns = `id, title, version, published_date, url, status, notes`

func scanStandard(row rowScanner) (*core.Standard, error) {
	var std core.Standard
	var version, published, url, notes sql.NullString
	var status string

	if err := row.Scan(&std.ID, &std.Title, &version, &published, &url, &status, &notes); err != nil {
		return nil, err
	}
	std.Version = nullStringPtr(version)
	std.PublishedDate = nullStringPtr(published)
	std.URL = nullStringPtr(url)
	std.Status = core.StandardStatus(status)
	std.Notes = nullStringPtr(notes)
	return &std, nil
}

// GetStandard retrieves a standard by id
func (ss *SQLiteStandardStorage) GetStandard(ctx context.Context, id string) (*core.Standard, error) {
	query := `SELECT ` + standardColumns + ` FROM standards WHERE id = ?`
	std, err := scanStandard(ss.sqlite.ReadDB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("standard %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get standard: %w", classifyErr(err))
	}
	return std, nil
}

// ListStandards returns every standard with its requirement count, ordered by id
func (ss *SQLiteStandardStorage) ListStandards(ctx context.Context) ([]core.StandardSummary, error) {
	query := `
		SELECT s.id, s.title, s.version, s.published_date, s.url, s.status, s.notes,
		       (SELECT COUNT(*) FROM requirements r WHERE r.standard_id = s.id)
		FROM standards s
		ORDER BY s.id`
	rows, err := ss.sqlite.ReadDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query standards: %w", classifyErr(err))
	}
	defer rows.Close()

	summaries := []core.StandardSummary{}
	for rows.Next() {
		var std core.Standard
		var version, published, url, notes sql.NullString
		var status string
		var count int
		if err := rows.Scan(&std.ID, &std.Title, &version, &published, &url, &status, &notes, &count); err != nil {
			return nil, fmt.Errorf("failed to scan standard: %w", err)
		}
		std.Version = nullStringPtr(version)
		std.PublishedDate = nullStringPtr(published)
		std.URL = nullStringPtr(url)
		std.Status = core.StandardStatus(status)
		std.Notes = nullStringPtr(notes)
		summaries = append(summaries, core.StandardSummary{Standard: std, RequirementCount: count})
	}
	return summaries, rows.Err()
}

// UpsertStandard inserts a standard or replaces its metadata in place.
// Requirements owned by the standard are left untouched.
func (ss *SQLiteStandardStorage) UpsertStandard(ctx context.Context, std *core.Standard) error {
	if std.Status == "" {
		std.Status = core.StandardStatusCurrent
	}
	if !std.Status.IsValid() {
		return core.NewValidationError("status", std.Status, "must be current or superseded")
	}

	query := `
		INSERT INTO standards (id, title, version, published_date, url, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			version = excluded.version,
			published_date = excluded.published_date,
			url = excluded.url,
			status = excluded.status,
			notes = excluded.notes`
	_, err := ss.sqlite.WriteDB.ExecContext(ctx, query,
		std.ID, std.Title, toNullString(std.Version), toNullString(std.PublishedDate),
		toNullString(std.URL), string(std.Status), toNullString(std.Notes))
	if err != nil {
		return fmt.Errorf("failed to upsert standard %s: %w", std.ID, classifyErr(err))
	}
	return nil
}

// GetSectorApplicability returns the regulatory context rows of a standard,
// ordered by sector then jurisdiction
func (ss *SQLiteStandardStorage) GetSectorApplicability(ctx context.Context, standardID string) ([]core.SectorApplicability, error) {
	query := `
		SELECT id, sector, jurisdiction, standard, applicability, threshold, regulatory_driver, effective_date
		FROM sector_applicability
		WHERE standard = ?
		ORDER BY sector, jurisdiction`
	rows, err := ss.sqlite.ReadDB.QueryContext(ctx, query, standardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector applicability: %w", classifyErr(err))
	}
	defer rows.Close()

	sectors := []core.SectorApplicability{}
	for rows.Next() {
		var sa core.SectorApplicability
		var applicability string
		var threshold, driver, effective sql.NullString
		if err := rows.Scan(&sa.ID, &sa.Sector, &sa.Jurisdiction, &sa.StandardID, &applicability, &threshold, &driver, &effective); err != nil {
			return nil, fmt.Errorf("failed to scan sector applicability: %w", err)
		}
		sa.Applicability = core.Applicability(applicability)
		sa.Threshold = nullStringPtr(threshold)
		sa.RegulatoryDriver = nullStringPtr(driver)
		sa.EffectiveDate = nullStringPtr(effective)
		sectors = append(sectors, sa)
	}
	return sectors, rows.Err()
}

// UpsertSectorApplicability inserts or replaces the row keyed by (sector, jurisdiction, standard)
func (ss *SQLiteStandardStorage) UpsertSectorApplicability(ctx context.Context, sa *core.SectorApplicability) error {
	if !sa.Applicability.IsValid() {
		return core.NewValidationError("applicability", sa.Applicability, "must be mandatory, recommended, optional or not_applicable")
	}

	query := `
		INSERT INTO sector_applicability (sector, jurisdiction, standard, applicability, threshold, regulatory_driver, effective_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sector, jurisdiction, standard) DO UPDATE SET
			applicability = excluded.applicability,
			threshold = excluded.threshold,
			regulatory_driver = excluded.regulatory_driver,
			effective_date = excluded.effective_date`
	_, err := ss.sqlite.WriteDB.ExecContext(ctx, query,
		sa.Sector, sa.Jurisdiction, sa.StandardID, string(sa.Applicability),
		toNullString(sa.Threshold), toNullString(sa.RegulatoryDriver), toNullString(sa.EffectiveDate))
	if err != nil {
		return fmt.Errorf("failed to upsert sector applicability %s/%s/%s: %w", sa.Sector, sa.Jurisdiction, sa.StandardID, classifyErr(err))
	}
	return nil
}
