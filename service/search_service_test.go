package service

import (
	"context"
	"testing"

	"crosswalk/core"
	"crosswalk/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedSearchFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.standard(t, "iec-sample", "Sample System Security Requirements")
	f.standard(t, "nist-sample", "Sample Security Controls")

	f.requirement(t, core.Requirement{
		StandardID:    "iec-sample",
		RequirementID: "SR 1.2",
		Title:         "Session lock",
		Description:   strPtr("The control system shall lock idle sessions."),
		Rationale:     strPtr("Idle sessions invite reuse of authentication tokens by a passer-by."),
		ComponentType: strPtr(core.ComponentHost),
	}, 2)
	f.requirement(t, core.Requirement{
		StandardID:    "iec-sample",
		RequirementID: "SR 1.1",
		Title:         "Human user Authentication",
		Description:   strPtr("Identify and authenticate all human users."),
		ComponentType: strPtr(core.ComponentHost),
	}, 1, 2)
	f.requirement(t, core.Requirement{
		StandardID:    "nist-sample",
		RequirementID: "IA-2",
		Title:         "Identification of organizational users",
		Description:   strPtr("Uniquely identify users and require authentication before access."),
		ComponentType: strPtr("IA"),
	})
	return f
}

func TestSearch_TitleMatchFirst(t *testing.T) {
	f := seedSearchFixture(t)
	svc := NewSearchService(f.requirements, f.logger)

	results, err := svc.Search(context.Background(), "authentication", core.SearchFilter{Standards: []string{"iec-sample"}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "SR 1.1", results[0].RequirementID)
	assert.Equal(t, 1.0, results[0].Relevance)
	assert.Equal(t, "Human user Authentication", results[0].Snippet)
	assert.Equal(t, "Sample System Security Requirements", results[0].StandardTitle)

	assert.Equal(t, "SR 1.2", results[1].RequirementID)
	assert.Equal(t, 0.5, results[1].Relevance)
	assert.Contains(t, results[1].Snippet, "authentication tokens")
}

func TestSearch_OrdersTitleAboveOtherFields(t *testing.T) {
	f := seedSearchFixture(t)
	svc := NewSearchService(f.requirements, f.logger)

	results, err := svc.Search(context.Background(), "AUTHENTICAT", core.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Relevance, results[i].Relevance)
	}
	assert.Equal(t, 1.0, results[0].Relevance)
	assert.Equal(t, "IA-2", results[1].RequirementID)
	assert.Equal(t, 0.7, results[1].Relevance)
}

func TestSearch_Filters(t *testing.T) {
	f := seedSearchFixture(t)
	svc := NewSearchService(f.requirements, f.logger)
	ctx := context.Background()

	results, err := svc.Search(ctx, "authenticat", core.SearchFilter{SecurityLevel: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SR 1.1", results[0].RequirementID)

	results, err = svc.Search(ctx, "authenticat", core.SearchFilter{ComponentType: strPtr("IA")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "IA-2", results[0].RequirementID)

	results, err = svc.Search(ctx, "authenticat", core.SearchFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_EmptyQuerySkipsStore(t *testing.T) {
	store := &failingStore{err: errStoreDown}
	svc := NewSearchService(store, zaptest.NewLogger(t).Sugar())

	for _, q := range []string{"", "   ", "\t\n"} {
		results, err := svc.Search(context.Background(), q, core.SearchFilter{})
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Zero(t, store.calls.Load())
}

func TestSearch_InvalidSecurityLevel(t *testing.T) {
	svc := NewSearchService(&failingStore{err: errStoreDown}, zaptest.NewLogger(t).Sugar())

	for _, level := range []int{0, 5} {
		_, err := svc.Search(context.Background(), "x", core.SearchFilter{SecurityLevel: intPtr(level)})
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
	}
}

func TestSearch_StoreFailureDegrades(t *testing.T) {
	store := &failingStore{err: errStoreDown}
	svc := NewSearchService(store, zaptest.NewLogger(t).Sugar())
	before := testutil.ToFloat64(metrics.StoreFailures.WithLabelValues("search_requirements"))

	results, err := svc.Search(context.Background(), "authentication", core.SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(1), store.calls.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.StoreFailures.WithLabelValues("search_requirements")))
}

func TestNewSearchService_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewSearchService(nil, zaptest.NewLogger(t).Sugar()) })
	assert.Panics(t, func() { NewSearchService(&failingStore{}, nil) })
}
