package service

import (
	"context"

	"crosswalk/core"

	"go.uber.org/zap"
)

// TechniqueService resolves an adversary technique to its mitigations and,
// through the primary links of those mitigations, to security requirements.
type TechniqueService struct {
	techniques TechniqueReader
	logger     *zap.SugaredLogger
}

// NewTechniqueService creates a new TechniqueService. Panics on nil dependencies.
func NewTechniqueService(techniques TechniqueReader, logger *zap.SugaredLogger) *TechniqueService {
	if techniques == nil {
		panic("techniques reader is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &TechniqueService{techniques: techniques, logger: logger}
}

// GetTechnique returns the technique detail, or nil for a blank or unknown id.
//
// Mitigations are empty when includeMitigations is false. MappedRequirements
// is nil unless mapToStandards names at least one standard, and then non-nil
// even with no matches; each requirement appears once even when several
// mitigations link to it.
func (s *TechniqueService) GetTechnique(ctx context.Context, techniqueID string, includeMitigations bool, mapToStandards []string) (*core.TechniqueDetail, error) {
	id, ok, err := normalizeIdentifier("technique_id", techniqueID)
	if err != nil || !ok {
		return nil, err
	}
	standards, err := normalizeStandards(mapToStandards)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*core.TechniqueDetail, error) {
		degradeStoreFailure(s.logger, "get_technique", err, "technique_id", id)
		return nil, nil
	}

	tech, err := s.techniques.GetTechnique(ctx, id)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return fail(err)
	}

	detail := &core.TechniqueDetail{
		Technique:   *tech,
		Mitigations: []core.LinkedMitigation{},
	}

	if includeMitigations {
		mitigations, err := s.techniques.GetMitigationsForTechnique(ctx, id)
		if err != nil {
			return fail(err)
		}
		if mitigations != nil {
			detail.Mitigations = mitigations
		}
	}

	if len(standards) > 0 {
		mapped, err := s.techniques.GetMappedRequirements(ctx, id, standards)
		if err != nil {
			return fail(err)
		}
		detail.MappedRequirements = dedupeRequirements(mapped)
	}

	return detail, nil
}

// normalizeStandards trims the standard list and drops blanks and repeats
func normalizeStandards(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, ok, err := normalizeIdentifier("map_to_standards", raw)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// dedupeRequirements keeps the first occurrence of each surrogate id
func dedupeRequirements(reqs []core.Requirement) []core.Requirement {
	out := make([]core.Requirement, 0, len(reqs))
	seen := make(map[int64]struct{}, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
