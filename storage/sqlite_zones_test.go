package storage

import (
	"context"
	"testing"

	"crosswalk/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedZones(t *testing.T, s *SQLite) (enterprise, control int64) {
	t.Helper()
	ctx := context.Background()
	zs := NewSQLiteZoneStorage(s, s.Logger)

	var err error
	enterprise, err = zs.UpsertZone(ctx, &core.Zone{Name: "Enterprise", PurdueLevel: 4, SecurityLevelTarget: intPtr(1), Reference: strPtr("IEC 62443-3-2 reference model")})
	require.NoError(t, err)
	control, err = zs.UpsertZone(ctx, &core.Zone{Name: "Control", PurdueLevel: 1, SecurityLevelTarget: intPtr(3), Reference: strPtr("ISA-95 Purdue")})
	require.NoError(t, err)
	_, err = zs.UpsertZone(ctx, &core.Zone{Name: "Supervisory", PurdueLevel: 2, SecurityLevelTarget: intPtr(2)})
	require.NoError(t, err)

	fw, err := zs.UpsertConduit(ctx, &core.Conduit{Name: "Firewall", ConduitType: "network", MinimumSecurityLevel: 2})
	require.NoError(t, err)
	_, err = zs.UpsertConduit(ctx, &core.Conduit{Name: "Data diode", ConduitType: "unidirectional", MinimumSecurityLevel: 3})
	require.NoError(t, err)
	_, err = zs.UpsertConduit(ctx, &core.Conduit{Name: "Jump host", ConduitType: "remote_access"})
	require.NoError(t, err)

	_, err = zs.InsertFlow(ctx, &core.ZoneConduitFlow{SourceZoneID: control, TargetZoneID: enterprise, ConduitID: fw, SecurityLevelRequired: intPtr(2)})
	require.NoError(t, err)
	return enterprise, control
}

func TestListZonesFiltersAndOrder(t *testing.T) {
	s := setupTestSQLite(t)
	seedZones(t, s)
	zs := NewSQLiteZoneStorage(s, s.Logger)
	ctx := context.Background()

	zones, err := zs.ListZones(ctx, core.ZoneFilter{})
	require.NoError(t, err)
	require.Len(t, zones, 3)
	assert.Equal(t, "Control", zones[0].Name)
	assert.Equal(t, "Supervisory", zones[1].Name)
	assert.Equal(t, "Enterprise", zones[2].Name)

	zones, err = zs.ListZones(ctx, core.ZoneFilter{PurdueLevel: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, 3, *zones[0].SecurityLevelTarget)

	zones, err = zs.ListZones(ctx, core.ZoneFilter{ReferenceArchitecture: strPtr("purdue")})
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "Control", zones[0].Name)

	zones, err = zs.ListZones(ctx, core.ZoneFilter{SecurityLevelTarget: intPtr(4)})
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestListConduitsOrder(t *testing.T) {
	s := setupTestSQLite(t)
	seedZones(t, s)

	conduits, err := NewSQLiteZoneStorage(s, s.Logger).ListConduits(context.Background())
	require.NoError(t, err)
	require.Len(t, conduits, 3)
	assert.Equal(t, "Jump host", conduits[0].Name)
	assert.Equal(t, 1, conduits[0].MinimumSecurityLevel)
	assert.Equal(t, "Firewall", conduits[1].Name)
	assert.Equal(t, "Data diode", conduits[2].Name)
}

func TestFlows(t *testing.T) {
	s := setupTestSQLite(t)
	enterprise, control := seedZones(t, s)
	zs := NewSQLiteZoneStorage(s, s.Logger)
	ctx := context.Background()

	flows, err := zs.ListFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "Control", flows[0].SourceZoneName)
	assert.Equal(t, "Enterprise", flows[0].TargetZoneName)
	assert.Equal(t, "Firewall", flows[0].ConduitName)
	assert.False(t, flows[0].Bidirectional)

	flows, err = zs.ListFlowsForZones(ctx, []int64{enterprise})
	require.NoError(t, err)
	assert.Len(t, flows, 1)

	flows, err = zs.ListFlowsForZones(ctx, []int64{control + enterprise + 100})
	require.NoError(t, err)
	assert.Empty(t, flows)

	flows, err = zs.ListFlowsForZones(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestInsertFlow_ReferentialIntegrity(t *testing.T) {
	s := setupTestSQLite(t)
	enterprise, _ := seedZones(t, s)

	_, err := NewSQLiteZoneStorage(s, s.Logger).InsertFlow(context.Background(), &core.ZoneConduitFlow{
		SourceZoneID: enterprise, TargetZoneID: 9999, ConduitID: 1,
	})
	require.Error(t, err, "flows must reference existing zones")
}

func TestUpsertZone_KeyedByNameAndLevel(t *testing.T) {
	s := setupTestSQLite(t)
	zs := NewSQLiteZoneStorage(s, s.Logger)
	ctx := context.Background()

	id1, err := zs.UpsertZone(ctx, &core.Zone{Name: "DMZ", PurdueLevel: 3})
	require.NoError(t, err)
	id2, err := zs.UpsertZone(ctx, &core.Zone{Name: "DMZ", PurdueLevel: 3, Description: strPtr("Industrial DMZ")})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	z, err := zs.FindZone(ctx, "DMZ", 3)
	require.NoError(t, err)
	assert.Equal(t, "Industrial DMZ", *z.Description)

	_, err = zs.FindZone(ctx, "DMZ", 2)
	assert.True(t, IsNotFound(err))

	_, err = zs.UpsertZone(ctx, &core.Zone{Name: "Bad", PurdueLevel: 6})
	assert.True(t, core.IsValidation(err))
}

func TestReplaceFlows_AllOrNothing(t *testing.T) {
	s := setupTestSQLite(t)
	enterprise, control := seedZones(t, s)
	zs := NewSQLiteZoneStorage(s, s.Logger)
	ctx := context.Background()

	fw, err := zs.FindConduitID(ctx, "Firewall", "network")
	require.NoError(t, err)
	good := func() *core.ZoneConduitFlow {
		return &core.ZoneConduitFlow{SourceZoneID: enterprise, TargetZoneID: control, ConduitID: fw}
	}

	tests := []struct {
		name  string
		flows []*core.ZoneConduitFlow
	}{
		{"level out of range", []*core.ZoneConduitFlow{good(), {SourceZoneID: enterprise, TargetZoneID: control, ConduitID: fw, SecurityLevelRequired: intPtr(9)}}},
		{"dangling conduit", []*core.ZoneConduitFlow{good(), {SourceZoneID: enterprise, TargetZoneID: control, ConduitID: 9999}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, zs.ReplaceFlows(ctx, tt.flows))

			flows, err := zs.ListFlows(ctx)
			require.NoError(t, err)
			require.Len(t, flows, 1)
			assert.Equal(t, "Control", flows[0].SourceZoneName)
		})
	}

	require.NoError(t, zs.ReplaceFlows(ctx, []*core.ZoneConduitFlow{good(), good()}))
	flows, err := zs.ListFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "Enterprise", flows[0].SourceZoneName)
}
