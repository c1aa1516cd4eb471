package service

import (
	"context"
	"strings"
	"testing"

	"crosswalk/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedZoneFixture(t *testing.T) *fixture {
	f := newFixture(t)
	ctx := context.Background()

	enterprise, err := f.zones.UpsertZone(ctx, &core.Zone{
		Name:                "Enterprise",
		PurdueLevel:         4,
		SecurityLevelTarget: intPtr(1),
		Reference:           strPtr("IEC 62443-3-2 reference model"),
		TypicalAssets:       strPtr("ERP, email"),
	})
	require.NoError(t, err)
	dmz, err := f.zones.UpsertZone(ctx, &core.Zone{
		Name:        "Industrial DMZ",
		PurdueLevel: 3,
		Description: strPtr("Brokers all traffic between IT and OT"),
		Reference:   strPtr("IEC 62443-3-2 reference model"),
	})
	require.NoError(t, err)
	control, err := f.zones.UpsertZone(ctx, &core.Zone{
		Name:                "Basic Control",
		PurdueLevel:         1,
		SecurityLevelTarget: intPtr(3),
		Reference:           strPtr("ISA-95 model"),
	})
	require.NoError(t, err)

	firewall, err := f.zones.UpsertConduit(ctx, &core.Conduit{
		Name:                 "Firewall",
		ConduitType:          "network",
		MinimumSecurityLevel: 2,
		SecurityRequirements: strPtr("Stateful inspection with deny-by-default rules"),
	})
	require.NoError(t, err)
	diode, err := f.zones.UpsertConduit(ctx, &core.Conduit{
		Name:                 "Data diode",
		ConduitType:          "unidirectional",
		MinimumSecurityLevel: 3,
	})
	require.NoError(t, err)

	_, err = f.zones.InsertFlow(ctx, &core.ZoneConduitFlow{
		SourceZoneID: enterprise, TargetZoneID: dmz, ConduitID: firewall,
		DataFlowDescription: strPtr("Historian replication"), SecurityLevelRequired: intPtr(2), Bidirectional: true,
	})
	require.NoError(t, err)
	_, err = f.zones.InsertFlow(ctx, &core.ZoneConduitFlow{
		SourceZoneID: control, TargetZoneID: dmz, ConduitID: diode,
	})
	require.NoError(t, err)
	return f
}

func TestZoneConduitGuidance_NoFilter(t *testing.T) {
	f := seedZoneFixture(t)
	svc := NewZoneService(f.zones, f.logger)

	g, err := svc.ZoneConduitGuidance(context.Background(), core.ZoneFilter{})
	require.NoError(t, err)
	require.Len(t, g.Zones, 3)
	assert.Equal(t, "Basic Control", g.Zones[0].Name)
	assert.Equal(t, "Enterprise", g.Zones[2].Name)
	require.Len(t, g.Conduits, 2)
	assert.Equal(t, "Firewall", g.Conduits[0].Name)
	assert.Len(t, g.Flows, 2)
	assert.Contains(t, g.Guidance, "Filter: none (all zones)")
}

func TestZoneConduitGuidance_FilterMatchingNoZones(t *testing.T) {
	f := seedZoneFixture(t)
	svc := NewZoneService(f.zones, f.logger)

	tests := []struct {
		name   string
		filter core.ZoneFilter
	}{
		{"purdue level", core.ZoneFilter{PurdueLevel: intPtr(0)}},
		{"security level target", core.ZoneFilter{SecurityLevelTarget: intPtr(4)}},
		{"reference", core.ZoneFilter{ReferenceArchitecture: strPtr("no such model")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := svc.ZoneConduitGuidance(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Empty(t, g.Zones)
			assert.Empty(t, g.Flows)
			assert.Len(t, g.Conduits, 2)
			assert.NotContains(t, g.Guidance, "## Zones")
			assert.NotContains(t, g.Guidance, "## Data Flows")
			assert.Contains(t, g.Guidance, "## Conduits")
		})
	}
}

func TestZoneConduitGuidance_FlowsTouchFilteredZones(t *testing.T) {
	f := seedZoneFixture(t)
	svc := NewZoneService(f.zones, f.logger)

	g, err := svc.ZoneConduitGuidance(context.Background(), core.ZoneFilter{PurdueLevel: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, g.Zones, 1)
	require.Len(t, g.Flows, 1)
	assert.Equal(t, "Basic Control", g.Flows[0].SourceZoneName)
	assert.Equal(t, "Data diode", g.Flows[0].ConduitName)

	g, err = svc.ZoneConduitGuidance(context.Background(), core.ZoneFilter{ReferenceArchitecture: strPtr("62443")})
	require.NoError(t, err)
	assert.Len(t, g.Zones, 2)
	assert.Len(t, g.Flows, 2)
}

func TestZoneConduitGuidance_Validation(t *testing.T) {
	store := &failingStore{err: errStoreDown}
	svc := NewZoneService(store, zaptest.NewLogger(t).Sugar())

	for _, filter := range []core.ZoneFilter{
		{PurdueLevel: intPtr(6)},
		{PurdueLevel: intPtr(-1)},
		{SecurityLevelTarget: intPtr(0)},
		{SecurityLevelTarget: intPtr(5)},
	} {
		_, err := svc.ZoneConduitGuidance(context.Background(), filter)
		assert.True(t, core.IsValidation(err))
	}
	assert.Zero(t, store.calls.Load())
}

func TestZoneConduitGuidance_StoreFailureDegrades(t *testing.T) {
	svc := NewZoneService(&failingStore{err: errStoreDown}, zaptest.NewLogger(t).Sugar())

	g, err := svc.ZoneConduitGuidance(context.Background(), core.ZoneFilter{PurdueLevel: intPtr(2)})
	require.NoError(t, err)
	assert.Empty(t, g.Zones)
	assert.Empty(t, g.Conduits)
	assert.Empty(t, g.Flows)
	assert.Contains(t, g.Guidance, "## Defense-in-Depth Best Practices")
}

func TestRenderGuidance_SectionOrder(t *testing.T) {
	zones := []core.Zone{{Name: "Cell", PurdueLevel: 2, SecurityLevelTarget: intPtr(2), TypicalAssets: strPtr("HMI")}}
	conduits := []core.Conduit{{Name: "Switch", ConduitType: "network", MinimumSecurityLevel: 1}}
	flows := []core.ZoneConduitFlow{
		{SourceZoneName: "Cell", TargetZoneName: "DMZ", ConduitName: "Switch", SecurityLevelRequired: intPtr(2)},
		{SourceZoneName: "DMZ", TargetZoneName: "Cell", ConduitName: "Switch", Bidirectional: true},
	}

	doc := RenderGuidance(core.ZoneFilter{PurdueLevel: intPtr(2)}, zones, conduits, flows)

	headings := []string{"# Zone and Conduit Guidance", "Filter: purdue_level=2", "## Summary", "## Zones", "## Conduits", "## Data Flows", "## Defense-in-Depth Best Practices"}
	last := -1
	for _, h := range headings {
		idx := strings.Index(doc, h)
		require.GreaterOrEqual(t, idx, 0, "missing %q", h)
		assert.Greater(t, idx, last, "%q out of order", h)
		last = idx
	}

	assert.Contains(t, doc, "1 zone(s), 1 conduit(s) and 2 data flow(s) apply.")
	assert.Contains(t, doc, "### Cell (Purdue level 2)")
	assert.Contains(t, doc, "Typical assets: HMI")
	assert.Contains(t, doc, "- Cell → DMZ via Switch")
	assert.Contains(t, doc, "- DMZ ↔ Cell via Switch")
	assert.Contains(t, doc, "Required security level: SL 2")
	assert.NotContains(t, doc, "Description:")
	assert.Contains(t, doc, BestPractices[len(BestPractices)-1])
}

func TestRenderGuidance_OmitsEmptySections(t *testing.T) {
	doc := RenderGuidance(core.ZoneFilter{}, nil, nil, nil)

	assert.Contains(t, doc, "0 zone(s), 0 conduit(s) and 0 data flow(s) apply.")
	assert.NotContains(t, doc, "## Zones")
	assert.NotContains(t, doc, "## Conduits")
	assert.NotContains(t, doc, "## Data Flows")
	assert.Contains(t, doc, "## Defense-in-Depth Best Practices")
}

func TestRenderGuidance_Deterministic(t *testing.T) {
	zones := []core.Zone{{Name: "Cell", PurdueLevel: 2}}
	filter := core.ZoneFilter{SecurityLevelTarget: intPtr(2), ReferenceArchitecture: strPtr("ISA")}
	assert.Equal(t, RenderGuidance(filter, zones, nil, nil), RenderGuidance(filter, zones, nil, nil))
	assert.Contains(t, RenderGuidance(filter, zones, nil, nil), `Filter: security_level_target=2, reference_architecture="ISA"`)
}
