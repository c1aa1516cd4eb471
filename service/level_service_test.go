package service

import (
	"context"
	"testing"

	"crosswalk/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedLevelFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.standard(t, "iec-sample", "Sample Component Requirements")

	f.requirement(t, core.Requirement{
		StandardID:    "iec-sample",
		RequirementID: "SR 1.1",
		Title:         "Human user identification",
		ComponentType: strPtr(core.ComponentHost),
	}, 2, 3)
	f.requirement(t, core.Requirement{
		StandardID:          "iec-sample",
		RequirementID:       "SR 1.1 RE 1",
		ParentRequirementID: strPtr("SR 1.1"),
		Title:               "Unique identification",
		ComponentType:       strPtr(core.ComponentHost),
	}, 3)
	f.requirement(t, core.Requirement{
		StandardID:    "iec-sample",
		RequirementID: "NDR 1.6",
		Title:         "Wireless access management",
		ComponentType: strPtr(core.ComponentNetwork),
	}, 3, 4)
	f.requirement(t, core.Requirement{
		StandardID:    "iec-sample",
		RequirementID: "SR 2.1",
		Title:         "Authorization enforcement",
		ComponentType: strPtr(core.ComponentHost),
	}, 1)
	return f
}

func requirementIDs(results []core.LevelRequirement) []string {
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].RequirementID
	}
	return ids
}

func TestMapSecurityLevel_ExactLevelWithAllRows(t *testing.T) {
	f := seedLevelFixture(t)
	svc := NewLevelService(f.requirements, f.logger)

	results, err := svc.MapSecurityLevel(context.Background(), 2, nil, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SR 1.1", results[0].RequirementID)
	assert.Len(t, results[0].SecurityLevels, 2)
	assert.Equal(t, "Sample Component Requirements", results[0].StandardTitle)
}

func TestMapSecurityLevel_NoCumulativeRollup(t *testing.T) {
	f := seedLevelFixture(t)
	svc := NewLevelService(f.requirements, f.logger)

	results, err := svc.MapSecurityLevel(context.Background(), 3, nil, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SR 1.1", "SR 1.1 RE 1", "NDR 1.6"}, requirementIDs(results))
	assert.NotContains(t, requirementIDs(results), "SR 2.1")
}

func TestMapSecurityLevel_Enhancements(t *testing.T) {
	f := seedLevelFixture(t)
	svc := NewLevelService(f.requirements, f.logger)

	results, err := svc.MapSecurityLevel(context.Background(), 3, nil, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SR 1.1", "NDR 1.6"}, requirementIDs(results))
	for _, r := range results {
		assert.False(t, r.IsEnhancement())
	}
}

func TestMapSecurityLevel_ComponentFilter(t *testing.T) {
	f := seedLevelFixture(t)
	svc := NewLevelService(f.requirements, f.logger)

	results, err := svc.MapSecurityLevel(context.Background(), 3, strPtr(" network "), true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "NDR 1.6", results[0].RequirementID)

	results, err = svc.MapSecurityLevel(context.Background(), 4, strPtr(core.ComponentEmbedded), true)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMapSecurityLevel_RejectsOutOfRange(t *testing.T) {
	store := &failingStore{err: errStoreDown}
	svc := NewLevelService(store, zaptest.NewLogger(t).Sugar())

	for _, level := range []int{-1, 0, 5, 100} {
		results, err := svc.MapSecurityLevel(context.Background(), level, nil, true)
		require.Error(t, err, "level %d", level)
		assert.True(t, core.IsValidation(err))
		assert.Nil(t, results)
	}
	assert.Zero(t, store.calls.Load())
}

func TestMapSecurityLevel_StoreFailureDegrades(t *testing.T) {
	svc := NewLevelService(&failingStore{err: errStoreDown}, zaptest.NewLogger(t).Sugar())

	results, err := svc.MapSecurityLevel(context.Background(), 1, nil, true)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
