package service

import (
	"context"
	"strings"
	"testing"

	"crosswalk/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedMappingFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.standard(t, "iec-sample", "Sample System Security Requirements")
	f.standard(t, "nist-sample", "Sample Security Controls")
	f.standard(t, "ot-sample", "Sample OT Guide")

	f.requirement(t, core.Requirement{
		StandardID:    "iec-sample",
		RequirementID: "SR 1.1",
		Title:         "Human user identification and authentication",
		Rationale:     strPtr("Access must be traceable to a person."),
	}, 3, 2)
	f.requirement(t, core.Requirement{StandardID: "nist-sample", RequirementID: "IA-2", Title: "Identification and authentication"})
	f.requirement(t, core.Requirement{StandardID: "ot-sample", RequirementID: "6.2.1", Title: "Operator accounts"})

	f.mapping(t, "iec-sample", "SR 1.1", "nist-sample", "IA-2", core.MappingTypeExact, 0.6)
	f.mapping(t, "ot-sample", "6.2.1", "iec-sample", "SR 1.1", core.MappingTypePartial, 0.9)
	return f
}

func TestGetRequirement_MappingsFlag(t *testing.T) {
	f := seedMappingFixture(t)
	svc := NewRequirementService(f.standards, f.requirements, f.mappings, f.logger)
	ctx := context.Background()

	detail, err := svc.GetRequirement(ctx, RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 1.1"})
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.NotNil(t, detail.Mappings)
	assert.Len(t, detail.Mappings, 0)

	detail, err = svc.GetRequirement(ctx, RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 1.1", IncludeMappings: true})
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.Mappings, 2)
	for _, m := range detail.Mappings {
		assert.True(t, m.Touches("iec-sample", "SR 1.1"))
	}

	assert.Equal(t, "Sample System Security Requirements", detail.Standard.Title)
	require.Len(t, detail.SecurityLevels, 2)
	assert.Equal(t, 2, detail.SecurityLevels[0].Level)
	assert.Equal(t, 3, detail.SecurityLevels[1].Level)
}

func TestGetRequirement_TargetSideSeesMapping(t *testing.T) {
	f := seedMappingFixture(t)
	svc := NewRequirementService(f.standards, f.requirements, f.mappings, f.logger)

	detail, err := svc.GetRequirement(context.Background(), RequirementLookup{StandardID: "nist-sample", RequirementID: "IA-2", IncludeMappings: true})
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.Mappings, 1)
	assert.Equal(t, "iec-sample", detail.Mappings[0].SourceStandard)
	assert.Empty(t, detail.SecurityLevels)
	assert.NotNil(t, detail.SecurityLevels)
}

func TestGetRequirement_NotFound(t *testing.T) {
	f := seedMappingFixture(t)
	svc := NewRequirementService(f.standards, f.requirements, f.mappings, f.logger)
	ctx := context.Background()

	tests := []struct {
		name   string
		lookup RequirementLookup
	}{
		{"unknown requirement", RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 99.9"}},
		{"unknown standard", RequirementLookup{StandardID: "missing", RequirementID: "SR 1.1"}},
		{"requirement in other standard", RequirementLookup{StandardID: "nist-sample", RequirementID: "SR 1.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := svc.GetRequirement(ctx, tt.lookup)
			assert.NoError(t, err)
			assert.Nil(t, detail)
		})
	}
}

func TestGetRequirement_BlankSkipsStore(t *testing.T) {
	store := &failingStore{err: errStoreDown}
	svc := NewRequirementService(store, store, store, zaptest.NewLogger(t).Sugar())

	for _, lookup := range []RequirementLookup{
		{StandardID: "", RequirementID: "SR 1.1"},
		{StandardID: "iec-sample", RequirementID: "  "},
	} {
		detail, err := svc.GetRequirement(context.Background(), lookup)
		assert.NoError(t, err)
		assert.Nil(t, detail)
	}
	assert.Zero(t, store.calls.Load())
}

func TestGetRequirement_Validation(t *testing.T) {
	store := &failingStore{err: errStoreDown}
	svc := NewRequirementService(store, store, store, zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	_, err := svc.GetRequirement(ctx, RequirementLookup{StandardID: strings.Repeat("x", 101), RequirementID: "SR 1.1"})
	assert.True(t, core.IsValidation(err))

	_, err = svc.GetRequirement(ctx, RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 1.1", Version: strings.Repeat("1", 51)})
	assert.True(t, core.IsValidation(err))

	_, err = svc.GetRequirement(ctx, RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 1.1", Version: "v1\x00"})
	assert.True(t, core.IsValidation(err))
}

func TestGetRequirement_VersionIsInert(t *testing.T) {
	f := seedMappingFixture(t)
	svc := NewRequirementService(f.standards, f.requirements, f.mappings, f.logger)

	detail, err := svc.GetRequirement(context.Background(), RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 1.1", Version: "1999"})
	require.NoError(t, err)
	assert.NotNil(t, detail)
}

func TestGetRequirement_StoreFailureDegrades(t *testing.T) {
	store := &failingStore{err: errStoreDown}
	svc := NewRequirementService(store, store, store, zaptest.NewLogger(t).Sugar())

	detail, err := svc.GetRequirement(context.Background(), RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 1.1"})
	assert.NoError(t, err)
	assert.Nil(t, detail)
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestGetRequirement_ClosedStoreDegrades(t *testing.T) {
	f := seedMappingFixture(t)
	svc := NewRequirementService(f.standards, f.requirements, f.mappings, f.logger)
	require.NoError(t, f.sqlite.Close())

	detail, err := svc.GetRequirement(context.Background(), RequirementLookup{StandardID: "iec-sample", RequirementID: "SR 1.1"})
	assert.NoError(t, err)
	assert.Nil(t, detail)
}
