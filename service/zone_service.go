package service

import (
	"context"
	"fmt"
	"strings"

	"crosswalk/core"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Zone/Conduit Guidance Synthesizer
// ============================================================================

// BestPractices is the fixed defense-in-depth list closing every guidance document
var BestPractices = []string{
	"Deny inter-zone traffic by default and permit only flows carried by a documented conduit.",
	"Place a demilitarized zone between enterprise (level 4-5) and operations (level 0-3) networks; no flow should cross it directly.",
	"Protect every conduit at or above the highest target security level of the zones it connects.",
	"Prefer unidirectional gateways for flows that only need to leave a control zone.",
	"Authenticate and log all remote access through a dedicated jump host in the DMZ.",
	"Review zone membership and conduit rules whenever assets, vendors or data flows change.",
}

// ZoneService filters zones, lists conduits, joins flows and renders guidance.
//
// Conduits are never filtered by zone criteria. With a zone filter, flows are
// those touching a matching zone, so a filter matching no zones yields no flows
// while the conduit list stays complete.
type ZoneService struct {
	zones  ZoneReader
	logger *zap.SugaredLogger
}

// NewZoneService creates a new ZoneService. Panics on nil dependencies.
func NewZoneService(zones ZoneReader, logger *zap.SugaredLogger) *ZoneService {
	if zones == nil {
		panic("zones reader is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &ZoneService{zones: zones, logger: logger}
}

// ZoneConduitGuidance returns the filtered zones, all conduits, the relevant
// flows and a rendered guidance document. Out-of-range filter values are a
// validation failure; store failures degrade to empty lists.
func (s *ZoneService) ZoneConduitGuidance(ctx context.Context, filter core.ZoneFilter) (*core.ZoneGuidance, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.ReferenceArchitecture = trimmedOrNil(filter.ReferenceArchitecture)

	var zones []core.Zone
	var conduits []core.Conduit
	var flows []core.ZoneConduitFlow

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		zones, err = s.zones.ListZones(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		conduits, err = s.zones.ListConduits(gctx)
		return err
	})
	if filter.IsEmpty() {
		g.Go(func() error {
			var err error
			flows, err = s.zones.ListFlows(gctx)
			return err
		})
	}
	err := g.Wait()

	if err == nil && !filter.IsEmpty() {
		ids := make([]int64, len(zones))
		for i := range zones {
			ids[i] = zones[i].ID
		}
		flows, err = s.zones.ListFlowsForZones(ctx, ids)
	}

	if err != nil {
		degradeStoreFailure(s.logger, "get_zone_conduit_guidance", err)
		zones, conduits, flows = nil, nil, nil
	}
	if zones == nil {
		zones = []core.Zone{}
	}
	if conduits == nil {
		conduits = []core.Conduit{}
	}
	if flows == nil {
		flows = []core.ZoneConduitFlow{}
	}

	return &core.ZoneGuidance{
		Filter:   filter,
		Zones:    zones,
		Conduits: conduits,
		Flows:    flows,
		Guidance: RenderGuidance(filter, zones, conduits, flows),
	}, nil
}

// RenderGuidance composes the guidance document. Sections appear in fixed order:
// header, summary, zones, conduits, data flows, best practices. The zones,
// conduits and data flows sections are omitted when their list is empty.
func RenderGuidance(filter core.ZoneFilter, zones []core.Zone, conduits []core.Conduit, flows []core.ZoneConduitFlow) string {
	var b strings.Builder

	b.WriteString("# Zone and Conduit Guidance\n\n")
	fmt.Fprintf(&b, "Filter: %s\n\n", describeFilter(filter))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "%d zone(s), %d conduit(s) and %d data flow(s) apply.\n", len(zones), len(conduits), len(flows))

	if len(zones) > 0 {
		b.WriteString("\n## Zones\n")
		for _, z := range zones {
			fmt.Fprintf(&b, "\n### %s (Purdue level %d)\n", z.Name, z.PurdueLevel)
			if z.SecurityLevelTarget != nil {
				fmt.Fprintf(&b, "Target security level: SL %d\n", *z.SecurityLevelTarget)
			} else {
				b.WriteString("Target security level: not set\n")
			}
			writeOptional(&b, "Description", z.Description)
			writeOptional(&b, "Typical assets", z.TypicalAssets)
		}
	}

	if len(conduits) > 0 {
		b.WriteString("\n## Conduits\n")
		for _, c := range conduits {
			fmt.Fprintf(&b, "\n### %s (minimum SL %d)\n", c.Name, c.MinimumSecurityLevel)
			fmt.Fprintf(&b, "Type: %s\n", c.ConduitType)
			writeOptional(&b, "Description", c.Description)
			writeOptional(&b, "Security requirements", c.SecurityRequirements)
		}
	}

	if len(flows) > 0 {
		b.WriteString("\n## Data Flows\n\n")
		for _, f := range flows {
			arrow := "→"
			if f.Bidirectional {
				arrow = "↔"
			}
			fmt.Fprintf(&b, "- %s %s %s via %s\n", f.SourceZoneName, arrow, f.TargetZoneName, f.ConduitName)
			if f.DataFlowDescription != nil && *f.DataFlowDescription != "" {
				fmt.Fprintf(&b, "  Flow: %s\n", *f.DataFlowDescription)
			}
			if f.SecurityLevelRequired != nil {
				fmt.Fprintf(&b, "  Required security level: SL %d\n", *f.SecurityLevelRequired)
			}
		}
	}

	b.WriteString("\n## Defense-in-Depth Best Practices\n\n")
	for i, p := range BestPractices {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return b.String()
}

func describeFilter(filter core.ZoneFilter) string {
	var parts []string
	if filter.PurdueLevel != nil {
		parts = append(parts, fmt.Sprintf("purdue_level=%d", *filter.PurdueLevel))
	}
	if filter.SecurityLevelTarget != nil {
		parts = append(parts, fmt.Sprintf("security_level_target=%d", *filter.SecurityLevelTarget))
	}
	if filter.ReferenceArchitecture != nil && *filter.ReferenceArchitecture != "" {
		parts = append(parts, fmt.Sprintf("reference_architecture=%q", *filter.ReferenceArchitecture))
	}
	if len(parts) == 0 {
		return "none (all zones)"
	}
	return strings.Join(parts, ", ")
}

func writeOptional(b *strings.Builder, label string, value *string) {
	if value == nil || *value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, *value)
}
