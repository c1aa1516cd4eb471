package service

import (
	"context"
	"sort"

	"crosswalk/core"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Rationale Aggregator
// ============================================================================

// RationaleService composes the rationale, security levels, regulatory context
// and related standards of one requirement into a single response.
type RationaleService struct {
	standards    StandardReader
	requirements RequirementReader
	mappings     MappingReader
	logger       *zap.SugaredLogger
}

// NewRationaleService creates a new RationaleService. Panics on nil dependencies.
func NewRationaleService(standards StandardReader, requirements RequirementReader, mappings MappingReader, logger *zap.SugaredLogger) *RationaleService {
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
	return &RationaleService{
		standards:    standards,
		requirements: requirements,
		mappings:     mappings,
		logger:       logger,
	}
}

// GetRationale returns the rationale detail, or nil when the requirement or its
// standard does not exist. A nil rationale text is a valid result.
//
// BUSINESS LOGIC:
//  1. The requirement is resolved first; the four dependent reads (standard,
//     levels, sector applicability, mappings) run in parallel
//  2. Security levels are ordered ascending by level
//  3. Sector rows are ordered by sector then jurisdiction
//  4. Related standards name the other side of each mapping and are ordered by
//     confidence descending, ties kept in mapping id order
func (s *RationaleService) GetRationale(ctx context.Context, standardID, requirementID string) (*core.RationaleDetail, error) {
	stdID, ok, err := normalizeIdentifier("standard", standardID)
	if err != nil || !ok {
		return nil, err
	}
	reqID, ok, err := normalizeIdentifier("requirement_id", requirementID)
	if err != nil || !ok {
		return nil, err
	}

	fail := func(err error) (*core.RationaleDetail, error) {
		degradeStoreFailure(s.logger, "get_rationale", err, "standard", stdID, "requirement_id", reqID)
		return nil, nil
	}

	req, err := s.requirements.GetRequirement(ctx, stdID, reqID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return fail(err)
	}

	var (
		std      *core.Standard
		levels   []core.SecurityLevel
		sectors  []core.SectorApplicability
		mappings []core.Mapping
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		std, err = s.standards.GetStandard(gctx, stdID)
		return err
	})
	g.Go(func() error {
		var err error
		levels, err = s.requirements.GetSecurityLevels(gctx, req.ID)
		return err
	})
	g.Go(func() error {
		var err error
		sectors, err = s.standards.GetSectorApplicability(gctx, stdID)
		return err
	})
	g.Go(func() error {
		var err error
		mappings, err = s.mappings.GetMappingsFor(gctx, stdID, reqID)
		return err
	})
	if err := g.Wait(); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return fail(err)
	}

	if levels == nil {
		levels = []core.SecurityLevel{}
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })
	if sectors == nil {
		sectors = []core.SectorApplicability{}
	}

	return &core.RationaleDetail{
		Requirement:      *req,
		Standard:         *std,
		Rationale:        req.Rationale,
		SecurityLevels:   levels,
		Sectors:          sectors,
		RelatedStandards: RelatedStandards(mappings, stdID, reqID),
	}, nil
}

// RelatedStandards orients each mapping around (standardID, requirementID) and
// orders the result by confidence descending. Input order breaks ties.
func RelatedStandards(mappings []core.Mapping, standardID, requirementID string) []core.RelatedStandard {
	related := make([]core.RelatedStandard, 0, len(mappings))
	for _, m := range mappings {
		related = append(related, core.NewRelatedStandard(m, standardID, requirementID))
	}
	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Confidence > related[j].Confidence
	})
	return related
}
