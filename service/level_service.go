package service

import (
	"context"

	"crosswalk/core"

	"go.uber.org/zap"
)

// LevelService rolls up the requirements that apply at one security level.
//
// Levels are matched exactly: level 3 does not include requirements tagged only
// at 1 or 2. Callers wanting a cumulative checklist query each level and union.
type LevelService struct {
	requirements RequirementReader
	logger       *zap.SugaredLogger
}

// NewLevelService creates a new LevelService. Panics on nil dependencies.
func NewLevelService(requirements RequirementReader, logger *zap.SugaredLogger) *LevelService {
	if requirements == nil {
		panic("requirements reader is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &LevelService{requirements: requirements, logger: logger}
}

// MapSecurityLevel returns every requirement with a level row at exactly level,
// each carrying all of its level rows. Enhancements are dropped unless
// includeEnhancements is set. A level outside 1..4 is a validation failure.
func (s *LevelService) MapSecurityLevel(ctx context.Context, level int, componentType *string, includeEnhancements bool) ([]core.LevelRequirement, error) {
	if err := core.ValidateSecurityLevel("security_level", level); err != nil {
		return nil, err
	}

	componentType = trimmedOrNil(componentType)

	results, err := s.requirements.GetRequirementsByLevel(ctx, level, componentType, includeEnhancements)
	if err != nil {
		degradeStoreFailure(s.logger, "map_security_level", err, "security_level", level)
		return []core.LevelRequirement{}, nil
	}
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]int64, len(results))
	for i := range results {
		ids[i] = results[i].ID
	}
	levels, err := s.requirements.GetSecurityLevelsBatch(ctx, ids)
	if err != nil {
		degradeStoreFailure(s.logger, "map_security_level", err, "security_level", level)
		return []core.LevelRequirement{}, nil
	}

	for i := range results {
		results[i].SecurityLevels = levels[results[i].ID]
		if results[i].SecurityLevels == nil {
			results[i].SecurityLevels = []core.SecurityLevel{}
		}
	}
	return results, nil
}
