package service

import (
	"context"
	"sort"
	"strings"

	"crosswalk/core"
	"crosswalk/search"

	"go.uber.org/zap"
)

// SearchService answers free-text relevance searches over requirement text.
//
// BEHAVIOR:
//   - empty or whitespace-only queries return an empty list without a store read
//   - a security level filter outside 1..4 is a validation failure
//   - limit < 1 falls back to 10, limit > 100 is clamped to 100
//   - store failures degrade to an empty list
type SearchService struct {
	requirements RequirementReader
	logger       *zap.SugaredLogger
}

// NewSearchService creates a new SearchService. Panics on nil dependencies.
func NewSearchService(requirements RequirementReader, logger *zap.SugaredLogger) *SearchService {
	if requirements == nil {
		panic("requirements reader is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &SearchService{requirements: requirements, logger: logger}
}

// Search returns requirements whose title, description or rationale contains
// query, each decorated with a relevance score, snippet and standard title.
// Results are ordered by relevance descending then surrogate id ascending.
func (s *SearchService) Search(ctx context.Context, query string, filter core.SearchFilter) ([]core.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []core.SearchResult{}, nil
	}
	if filter.SecurityLevel != nil {
		if err := core.ValidateSecurityLevel("security_level", *filter.SecurityLevel); err != nil {
			return nil, err
		}
	}
	filter.Limit = search.ClampLimit(filter.Limit)
	filter.ComponentType = trimmedOrNil(filter.ComponentType)

	results, err := s.requirements.SearchRequirements(ctx, q, filter)
	if err != nil {
		degradeStoreFailure(s.logger, "search_requirements", err, "query", q)
		return []core.SearchResult{}, nil
	}

	for i := range results {
		req := &results[i].Requirement
		results[i].Relevance = search.Score(req, q)
		results[i].Snippet = search.Snippet(req, q)
	}

	// Stable so equal scores keep the store's id order
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].ID < results[j].ID
	})

	s.logger.Debugw("Search completed", "query", q, "results", len(results))
	return results, nil
}
