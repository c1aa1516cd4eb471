package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"crosswalk/core"
	"crosswalk/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ============================================================================
// SQLite-backed fixture
// ============================================================================

type fixture struct {
	sqlite       *storage.SQLite
	standards    *storage.SQLiteStandardStorage
	requirements *storage.SQLiteRequirementStorage
	mappings     *storage.SQLiteMappingStorage
	zones        *storage.SQLiteZoneStorage
	techniques   *storage.SQLiteTechniqueStorage
	logger       *zap.SugaredLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	sqlite, err := storage.NewSQLite(filepath.Join(t.TempDir(), "crosswalk.db"), storage.Options{ReadPoolSize: 4}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return &fixture{
		sqlite:       sqlite,
		standards:    storage.NewSQLiteStandardStorage(sqlite, logger),
		requirements: storage.NewSQLiteRequirementStorage(sqlite, logger),
		mappings:     storage.NewSQLiteMappingStorage(sqlite, logger),
		zones:        storage.NewSQLiteZoneStorage(sqlite, logger),
		techniques:   storage.NewSQLiteTechniqueStorage(sqlite, logger),
		logger:       logger,
	}
}

func (f *fixture) standard(t *testing.T, id, title string) {
	t.Helper()
	require.NoError(t, f.standards.UpsertStandard(context.Background(), &core.Standard{ID: id, Title: title}))
}

func (f *fixture) requirement(t *testing.T, req core.Requirement, levels ...int) int64 {
	t.Helper()
	rows := make([]core.SecurityLevel, len(levels))
	for i, l := range levels {
		rows[i] = core.SecurityLevel{Level: l, Type: core.LevelTypeTarget}
	}
	id, err := f.requirements.UpsertRequirement(context.Background(), &req, rows)
	require.NoError(t, err)
	return id
}

func (f *fixture) mapping(t *testing.T, srcStd, srcReq, dstStd, dstReq string, mt core.MappingType, confidence float64) {
	t.Helper()
	require.NoError(t, f.mappings.UpsertMapping(context.Background(), &core.Mapping{
		SourceStandard:    srcStd,
		SourceRequirement: srcReq,
		TargetStandard:    dstStd,
		TargetRequirement: dstReq,
		MappingType:       mt,
		Confidence:        confidence,
	}))
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// ============================================================================
// Failing store
// ============================================================================

var errStoreDown = errors.New("disk I/O error")

// failingStore satisfies every reader interface and fails every call
type failingStore struct {
	err   error
	calls atomic.Int32
}

func (f *failingStore) fail() error {
	f.calls.Add(1)
	return f.err
}

func (f *failingStore) GetStandard(ctx context.Context, id string) (*core.Standard, error) {
	return nil, f.fail()
}

func (f *failingStore) ListStandards(ctx context.Context) ([]core.StandardSummary, error) {
	return nil, f.fail()
}

func (f *failingStore) GetSectorApplicability(ctx context.Context, standardID string) ([]core.SectorApplicability, error) {
	return nil, f.fail()
}

func (f *failingStore) SearchRequirements(ctx context.Context, query string, filter core.SearchFilter) ([]core.SearchResult, error) {
	return nil, f.fail()
}

func (f *failingStore) GetRequirement(ctx context.Context, standardID, requirementID string) (*core.Requirement, error) {
	return nil, f.fail()
}

func (f *failingStore) GetSecurityLevels(ctx context.Context, requirementDBID int64) ([]core.SecurityLevel, error) {
	return nil, f.fail()
}

func (f *failingStore) GetSecurityLevelsBatch(ctx context.Context, requirementDBIDs []int64) (map[int64][]core.SecurityLevel, error) {
	return nil, f.fail()
}

func (f *failingStore) GetRequirementsByLevel(ctx context.Context, level int, componentType *string, includeEnhancements bool) ([]core.LevelRequirement, error) {
	return nil, f.fail()
}

func (f *failingStore) GetMappingsFor(ctx context.Context, standardID, requirementID string) ([]core.Mapping, error) {
	return nil, f.fail()
}

func (f *failingStore) ListZones(ctx context.Context, filter core.ZoneFilter) ([]core.Zone, error) {
	return nil, f.fail()
}

func (f *failingStore) ListConduits(ctx context.Context) ([]core.Conduit, error) {
	return nil, f.fail()
}

func (f *failingStore) ListFlows(ctx context.Context) ([]core.ZoneConduitFlow, error) {
	return nil, f.fail()
}

func (f *failingStore) ListFlowsForZones(ctx context.Context, zoneIDs []int64) ([]core.ZoneConduitFlow, error) {
	return nil, f.fail()
}

func (f *failingStore) GetTechnique(ctx context.Context, techniqueID string) (*core.Technique, error) {
	return nil, f.fail()
}

func (f *failingStore) GetMitigationsForTechnique(ctx context.Context, techniqueID string) ([]core.LinkedMitigation, error) {
	return nil, f.fail()
}

func (f *failingStore) GetMappedRequirements(ctx context.Context, techniqueID string, standardIDs []string) ([]core.Requirement, error) {
	return nil, f.fail()
}
