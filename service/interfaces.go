package service

import (
	"context"

	"crosswalk/core"
)

// Storage interfaces below are defined here (consumer package) and satisfied by
// the SQLite stores. Each service depends only on the reads it performs.

// StandardReader reads standards and their regulatory context
type StandardReader interface {
	GetStandard(ctx context.Context, id string) (*core.Standard, error)
	ListStandards(ctx context.Context) ([]core.StandardSummary, error)
	GetSectorApplicability(ctx context.Context, standardID string) ([]core.SectorApplicability, error)
}

// RequirementReader reads requirements and their security levels
type RequirementReader interface {
	SearchRequirements(ctx context.Context, query string, filter core.SearchFilter) ([]core.SearchResult, error)
	GetRequirement(ctx context.Context, standardID, requirementID string) (*core.Requirement, error)
	GetSecurityLevels(ctx context.Context, requirementDBID int64) ([]core.SecurityLevel, error)
	GetSecurityLevelsBatch(ctx context.Context, requirementDBIDs []int64) (map[int64][]core.SecurityLevel, error)
	GetRequirementsByLevel(ctx context.Context, level int, componentType *string, includeEnhancements bool) ([]core.LevelRequirement, error)
}

// MappingReader reads cross-standard mappings touching a requirement
type MappingReader interface {
	GetMappingsFor(ctx context.Context, standardID, requirementID string) ([]core.Mapping, error)
}

// ZoneReader reads the network segmentation model
type ZoneReader interface {
	ListZones(ctx context.Context, filter core.ZoneFilter) ([]core.Zone, error)
	ListConduits(ctx context.Context) ([]core.Conduit, error)
	ListFlows(ctx context.Context) ([]core.ZoneConduitFlow, error)
	ListFlowsForZones(ctx context.Context, zoneIDs []int64) ([]core.ZoneConduitFlow, error)
}

// TechniqueReader reads techniques, their mitigations and linked requirements
type TechniqueReader interface {
	GetTechnique(ctx context.Context, techniqueID string) (*core.Technique, error)
	GetMitigationsForTechnique(ctx context.Context, techniqueID string) ([]core.LinkedMitigation, error)
	GetMappedRequirements(ctx context.Context, techniqueID string, standardIDs []string) ([]core.Requirement, error)
}
