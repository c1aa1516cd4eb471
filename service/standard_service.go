package service

import (
	"context"

	"crosswalk/core"

	"go.uber.org/zap"
)

// StandardService lists the ingested standards
type StandardService struct {
	standards StandardReader
	logger    *zap.SugaredLogger
}

// NewStandardService creates a new StandardService. Panics on nil dependencies.
func NewStandardService(standards StandardReader, logger *zap.SugaredLogger) *StandardService {
	if standards == nil {
		panic("standards reader is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &StandardService{standards: standards, logger: logger}
}

// ListStandards returns every standard with its requirement count, ordered by id.
// Store failures degrade to an empty list.
func (s *StandardService) ListStandards(ctx context.Context) ([]core.StandardSummary, error) {
	standards, err := s.standards.ListStandards(ctx)
	if err != nil {
		degradeStoreFailure(s.logger, "list_standards", err)
		return []core.StandardSummary{}, nil
	}
	if standards == nil {
		standards = []core.StandardSummary{}
	}
	return standards, nil
}
