package service

import (
	"context"

	"crosswalk/core"

	"go.uber.org/zap"
)

// ============================================================================
// Requirement Resolver
// ============================================================================

// RequirementService resolves one requirement with its standard, security
// levels and bidirectional mappings.
type RequirementService struct {
	standards    StandardReader
	requirements RequirementReader
	mappings     MappingReader
	logger       *zap.SugaredLogger
}

// RequirementLookup holds the arguments of a requirement resolution
type RequirementLookup struct {
	StandardID      string
	RequirementID   string
	Version         string // validated for shape, not applied
	IncludeMappings bool
}

// NewRequirementService creates a new RequirementService. Panics on nil dependencies.
func NewRequirementService(standards StandardReader, requirements RequirementReader, mappings MappingReader, logger *zap.SugaredLogger) *RequirementService {
	if standards == nil {
		panic("standards reader is required")
	}
	if requirements == nil {
		panic("requirements reader is required")
	}
	if mappings == nil {
		panic("mappings reader is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &RequirementService{
		standards:    standards,
		requirements: requirements,
		mappings:     mappings,
		logger:       logger,
	}
}

// GetRequirement returns the requirement detail, or nil when the requirement
// or its standard does not exist.
//
// BUSINESS LOGIC:
//  1. Blank identifiers short-circuit to nil without a store read
//  2. Version is shape-checked only
//  3. Mappings are read from both sides in one query when IncludeMappings is set;
//     otherwise the list is empty
//
// ERRORS:
//   - *core.ValidationError for overlong identifiers or a malformed version
//   - store failures are logged and reported as not found
func (s *RequirementService) GetRequirement(ctx context.Context, lookup RequirementLookup) (*core.RequirementDetail, error) {
	if err := validateVersion(lookup.Version); err != nil {
		return nil, err
	}
	standardID, ok, err := normalizeIdentifier("standard", lookup.StandardID)
	if err != nil || !ok {
		return nil, err
	}
	requirementID, ok, err := normalizeIdentifier("requirement_id", lookup.RequirementID)
	if err != nil || !ok {
		return nil, err
	}

	fail := func(err error) (*core.RequirementDetail, error) {
		degradeStoreFailure(s.logger, "get_requirement", err, "standard", standardID, "requirement_id", requirementID)
		return nil, nil
	}

	req, err := s.requirements.GetRequirement(ctx, standardID, requirementID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return fail(err)
	}

	std, err := s.standards.GetStandard(ctx, standardID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return fail(err)
	}

	levels, err := s.requirements.GetSecurityLevels(ctx, req.ID)
	if err != nil {
		return fail(err)
	}

	mappings := []core.Mapping{}
	if lookup.IncludeMappings {
		mappings, err = s.mappings.GetMappingsFor(ctx, standardID, requirementID)
		if err != nil {
			return fail(err)
		}
	}

	return &core.RequirementDetail{
		Requirement:    *req,
		Standard:       *std,
		SecurityLevels: levels,
		Mappings:       mappings,
	}, nil
}
