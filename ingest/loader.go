// Package ingest loads curated YAML datasets into the control store.
//
// A dataset carries standards (with nested requirements, security levels and
// sector applicability), cross-standard mappings, zones, conduits, data flows,
// mitigations and techniques. Records are upserted on their natural keys, so
// loading the same file twice leaves the store unchanged. Flows have no natural
// key and are replaced wholesale whenever a dataset carries any.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"crosswalk/core"
	"crosswalk/metrics"
	"crosswalk/storage"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyDataset is returned when a document decodes to no records at all
	ErrEmptyDataset = errors.New("dataset contains no records")
	// ErrUnresolvedReference is returned when a flow names a zone or conduit
	// that is neither in the store nor earlier in the dataset
	ErrUnresolvedReference = errors.New("unresolved reference")
)

// maxDatasetBytes bounds LoadFile reads
const maxDatasetBytes = 64 << 20

// ============================================================================
// Writer interfaces
// ============================================================================

type StandardWriter interface {
	UpsertStandard(ctx context.Context, std *core.Standard) error
	UpsertSectorApplicability(ctx context.Context, sa *core.SectorApplicability) error
}

type RequirementWriter interface {
	UpsertRequirement(ctx context.Context, req *core.Requirement, levels []core.SecurityLevel) (int64, error)
}

type MappingWriter interface {
	UpsertMapping(ctx context.Context, m *core.Mapping) error
}

type ZoneWriter interface {
	UpsertZone(ctx context.Context, z *core.Zone) (int64, error)
	UpsertConduit(ctx context.Context, c *core.Conduit) (int64, error)
	ReplaceFlows(ctx context.Context, flows []*core.ZoneConduitFlow) error
	FindZone(ctx context.Context, name string, purdueLevel int) (*core.Zone, error)
	FindConduitID(ctx context.Context, name, conduitType string) (int64, error)
}

type TechniqueWriter interface {
	UpsertTechnique(ctx context.Context, t *core.Technique) error
	UpsertMitigation(ctx context.Context, m *core.Mitigation) error
	LinkTechniqueMitigation(ctx context.Context, link core.TechniqueMitigation) error
}

// Stores bundles the writers the loader needs. Every field is required.
type Stores struct {
	Standards    StandardWriter
	Requirements RequirementWriter
	Mappings     MappingWriter
	Zones        ZoneWriter
	Techniques   TechniqueWriter
}

// Counts reports how many records of each entity a load wrote
type Counts struct {
	Standards      int `json:"standards"`
	Requirements   int `json:"requirements"`
	SecurityLevels int `json:"security_levels"`
	Sectors        int `json:"sectors"`
	Mappings       int `json:"mappings"`
	Zones          int `json:"zones"`
	Conduits       int `json:"conduits"`
	Flows          int `json:"flows"`
	Mitigations    int `json:"mitigations"`
	Techniques     int `json:"techniques"`
	Links          int `json:"technique_mitigations"`
}

// Total is the number of records written across all entities
func (c *Counts) Total() int {
	return c.Standards + c.Requirements + c.SecurityLevels + c.Sectors + c.Mappings +
		c.Zones + c.Conduits + c.Flows + c.Mitigations + c.Techniques + c.Links
}

func (c *Counts) record() {
	for entity, n := range map[string]int{
		"standard":             c.Standards,
		"requirement":          c.Requirements,
		"security_level":       c.SecurityLevels,
		"sector":               c.Sectors,
		"mapping":              c.Mappings,
		"zone":                 c.Zones,
		"conduit":              c.Conduits,
		"flow":                 c.Flows,
		"mitigation":           c.Mitigations,
		"technique":            c.Techniques,
		"technique_mitigation": c.Links,
	} {
		if n > 0 {
			metrics.RecordsIngested.WithLabelValues(entity).Add(float64(n))
		}
	}
}

// ============================================================================
// Loader
// ============================================================================

// Loader writes datasets through the storage write API
type Loader struct {
	stores Stores
	logger *zap.SugaredLogger
}

// NewLoader creates a new Loader. Panics on nil dependencies.
func NewLoader(stores Stores, logger *zap.SugaredLogger) *Loader {
	if stores.Standards == nil || stores.Requirements == nil || stores.Mappings == nil ||
		stores.Zones == nil || stores.Techniques == nil {
		panic("all stores are required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Loader{stores: stores, logger: logger}
}

// LoadFile reads the dataset at path and loads it
func (l *Loader) LoadFile(ctx context.Context, path string) (*Counts, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	counts, err := l.Load(ctx, io.LimitReader(f, maxDatasetBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return counts, nil
}

// Load decodes one YAML document from r and writes it in dependency order:
// standards and their requirements and sectors, mappings, zones, conduits,
// flows, mitigations, then techniques with their mitigation links.
//
// Unknown fields are rejected. A write failure stops the load and is returned
// with the counts of what was written before it.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Counts, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	counts := &Counts{}
	err := l.write(ctx, &ds, counts)
	counts.record()
	if err != nil {
		return counts, err
	}
	if counts.Total() == 0 {
		return counts, ErrEmptyDataset
	}

	l.logger.Infow("Dataset loaded",
		"standards", counts.Standards,
		"requirements", counts.Requirements,
		"mappings", counts.Mappings,
		"zones", counts.Zones,
		"conduits", counts.Conduits,
		"flows", counts.Flows,
		"techniques", counts.Techniques)
	return counts, nil
}

func (l *Loader) write(ctx context.Context, ds *Dataset, counts *Counts) error {
	steps := []func(context.Context, *Dataset, *Counts) error{
		l.writeStandards,
		l.writeMappings,
		l.writeZones,
		l.writeFlows,
		l.writeTechniques,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx, ds, counts); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) writeStandards(ctx context.Context, ds *Dataset, counts *Counts) error {
	for _, rec := range ds.Standards {
		if err := l.stores.Standards.UpsertStandard(ctx, rec.toStandard()); err != nil {
			return fmt.Errorf("standard %q: %w", rec.ID, err)
		}
		counts.Standards++

		for _, rr := range rec.Requirements {
			req, levels := rr.toRequirement(rec.ID)
			if _, err := l.stores.Requirements.UpsertRequirement(ctx, req, levels); err != nil {
				return fmt.Errorf("requirement %s/%s: %w", rec.ID, rr.RequirementID, err)
			}
			counts.Requirements++
			counts.SecurityLevels += len(levels)
		}

		for _, sr := range rec.Sectors {
			sa := &core.SectorApplicability{
				Sector:           sr.Sector,
				Jurisdiction:     sr.Jurisdiction,
				StandardID:       rec.ID,
				Applicability:    core.Applicability(sr.Applicability),
				Threshold:        sr.Threshold,
				RegulatoryDriver: sr.RegulatoryDriver,
				EffectiveDate:    sr.EffectiveDate,
			}
			if err := l.stores.Standards.UpsertSectorApplicability(ctx, sa); err != nil {
				return fmt.Errorf("sector %s/%s for %q: %w", sr.Sector, sr.Jurisdiction, rec.ID, err)
			}
			counts.Sectors++
		}
	}
	return nil
}

func (l *Loader) writeMappings(ctx context.Context, ds *Dataset, counts *Counts) error {
	for _, rec := range ds.Mappings {
		if err := l.stores.Mappings.UpsertMapping(ctx, rec.toMapping()); err != nil {
			return fmt.Errorf("mapping %s/%s -> %s/%s: %w",
				rec.Source.Standard, rec.Source.Requirement, rec.Target.Standard, rec.Target.Requirement, err)
		}
		counts.Mappings++
	}
	return nil
}

func (l *Loader) writeZones(ctx context.Context, ds *Dataset, counts *Counts) error {
	for _, rec := range ds.Zones {
		z := &core.Zone{
			Name:                rec.Name,
			PurdueLevel:         rec.PurdueLevel,
			SecurityLevelTarget: rec.SecurityLevelTarget,
			Description:         rec.Description,
			Reference:           rec.Reference,
			TypicalAssets:       rec.TypicalAssets,
		}
		if _, err := l.stores.Zones.UpsertZone(ctx, z); err != nil {
			return fmt.Errorf("zone %q: %w", rec.Name, err)
		}
		counts.Zones++
	}
	for _, rec := range ds.Conduits {
		c := &core.Conduit{
			Name:                 rec.Name,
			ConduitType:          rec.Type,
			SecurityRequirements: rec.SecurityRequirements,
			Description:          rec.Description,
			Reference:            rec.Reference,
			MinimumSecurityLevel: rec.MinimumSecurityLevel,
		}
		if _, err := l.stores.Zones.UpsertConduit(ctx, c); err != nil {
			return fmt.Errorf("conduit %q: %w", rec.Name, err)
		}
		counts.Conduits++
	}
	return nil
}

func (l *Loader) writeFlows(ctx context.Context, ds *Dataset, counts *Counts) error {
	if len(ds.Flows) == 0 {
		return nil
	}

	// Resolve and range-check everything before the store swaps the set
	flows := make([]*core.ZoneConduitFlow, 0, len(ds.Flows))
	for i, rec := range ds.Flows {
		if rec.SecurityLevelRequired != nil {
			if err := core.ValidateSecurityLevel("security_level_required", *rec.SecurityLevelRequired); err != nil {
				return fmt.Errorf("flows[%d]: %w", i, err)
			}
		}
		src, err := l.resolveZone(ctx, rec.Source)
		if err != nil {
			return fmt.Errorf("flows[%d] source: %w", i, err)
		}
		dst, err := l.resolveZone(ctx, rec.Target)
		if err != nil {
			return fmt.Errorf("flows[%d] target: %w", i, err)
		}
		conduitID, err := l.stores.Zones.FindConduitID(ctx, rec.Conduit.Name, rec.Conduit.Type)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("flows[%d] conduit %q (%s): %w", i, rec.Conduit.Name, rec.Conduit.Type, ErrUnresolvedReference)
		}
		if err != nil {
			return fmt.Errorf("flows[%d] conduit: %w", i, err)
		}
		flows = append(flows, &core.ZoneConduitFlow{
			SourceZoneID:          src,
			TargetZoneID:          dst,
			ConduitID:             conduitID,
			DataFlowDescription:   rec.Description,
			SecurityLevelRequired: rec.SecurityLevelRequired,
			Bidirectional:         rec.Bidirectional,
		})
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.stores.Zones.ReplaceFlows(ctx, flows); err != nil {
		return err
	}
	counts.Flows += len(flows)
	return nil
}

func (l *Loader) resolveZone(ctx context.Context, ref ZoneRef) (int64, error) {
	z, err := l.stores.Zones.FindZone(ctx, ref.Zone, ref.PurdueLevel)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("zone %q at level %d: %w", ref.Zone, ref.PurdueLevel, ErrUnresolvedReference)
	}
	if err != nil {
		return 0, err
	}
	return z.ID, nil
}

func (l *Loader) writeTechniques(ctx context.Context, ds *Dataset, counts *Counts) error {
	for _, rec := range ds.Mitigations {
		m := &core.Mitigation{MitigationID: rec.MitigationID, Name: rec.Name, Description: rec.Description}
		if err := l.stores.Techniques.UpsertMitigation(ctx, m); err != nil {
			return fmt.Errorf("mitigation %q: %w", rec.MitigationID, err)
		}
		counts.Mitigations++
	}

	for _, rec := range ds.Techniques {
		t := &core.Technique{
			TechniqueID: rec.TechniqueID,
			Tactic:      rec.Tactic,
			Name:        rec.Name,
			Description: rec.Description,
			Platforms:   rec.Platforms,
			DataSources: rec.DataSources,
		}
		if err := l.stores.Techniques.UpsertTechnique(ctx, t); err != nil {
			return fmt.Errorf("technique %q: %w", rec.TechniqueID, err)
		}
		counts.Techniques++

		for _, link := range rec.Mitigations {
			err := l.stores.Techniques.LinkTechniqueMitigation(ctx, core.TechniqueMitigation{
				TechniqueID:   rec.TechniqueID,
				MitigationID:  link.MitigationID,
				RequirementID: link.RequirementID,
			})
			if err != nil {
				return fmt.Errorf("technique %q mitigation %q: %w", rec.TechniqueID, link.MitigationID, err)
			}
			counts.Links++
		}
	}
	return nil
}
