package service

import (
	"context"
	"encoding/json"
	"testing"

	"crosswalk/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedTechniqueFixture(t *testing.T) *fixture {
	f := newFixture(t)
	ctx := context.Background()
	f.standard(t, "iec-sample", "Sample System Security Requirements")
	f.standard(t, "nist-sample", "Sample Security Controls")
	f.requirement(t, core.Requirement{StandardID: "iec-sample", RequirementID: "SR 1.1", Title: "Human user identification"})
	f.requirement(t, core.Requirement{StandardID: "nist-sample", RequirementID: "AC-17", Title: "Remote access"})

	require.NoError(t, f.techniques.UpsertTechnique(ctx, &core.Technique{
		TechniqueID: "T0822",
		Tactic:      strPtr("initial-access"),
		Name:        "External Remote Services",
		Platforms:   []string{"Windows", "Linux"},
		DataSources: []string{"Logon Session"},
	}))
	for _, m := range []core.Mitigation{
		{MitigationID: "M0932", Name: "Multi-factor Authentication"},
		{MitigationID: "M0936", Name: "Account Use Policies"},
		{MitigationID: "M0935", Name: "Limit Access to Resource Over Network"},
	} {
		m := m
		require.NoError(t, f.techniques.UpsertMitigation(ctx, &m))
	}
	require.NoError(t, f.techniques.LinkTechniqueMitigation(ctx, core.TechniqueMitigation{TechniqueID: "T0822", MitigationID: "M0932", RequirementID: strPtr("SR 1.1")}))
	require.NoError(t, f.techniques.LinkTechniqueMitigation(ctx, core.TechniqueMitigation{TechniqueID: "T0822", MitigationID: "M0936", RequirementID: strPtr("SR 1.1")}))
	require.NoError(t, f.techniques.LinkTechniqueMitigation(ctx, core.TechniqueMitigation{TechniqueID: "T0822", MitigationID: "M0935", RequirementID: strPtr("AC-17")}))
	return f
}

func TestGetTechnique_WithMitigations(t *testing.T) {
	f := seedTechniqueFixture(t)
	svc := NewTechniqueService(f.techniques, f.logger)

	detail, err := svc.GetTechnique(context.Background(), "T0822", true, nil)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "External Remote Services", detail.Technique.Name)
	assert.Equal(t, []string{"Windows", "Linux"}, detail.Technique.Platforms)
	assert.Len(t, detail.Mitigations, 3)
	assert.Nil(t, detail.MappedRequirements)
}

func TestGetTechnique_MitigationsExcluded(t *testing.T) {
	f := seedTechniqueFixture(t)
	svc := NewTechniqueService(f.techniques, f.logger)

	detail, err := svc.GetTechnique(context.Background(), "T0822", false, nil)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.NotNil(t, detail.Mitigations)
	assert.Empty(t, detail.Mitigations)
}

func TestGetTechnique_MappedRequirementsDeduplicated(t *testing.T) {
	f := seedTechniqueFixture(t)
	svc := NewTechniqueService(f.techniques, f.logger)
	ctx := context.Background()

	detail, err := svc.GetTechnique(ctx, "T0822", true, []string{"iec-sample"})
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.MappedRequirements, 1)
	assert.Equal(t, "SR 1.1", detail.MappedRequirements[0].RequirementID)

	detail, err = svc.GetTechnique(ctx, "T0822", false, []string{"iec-sample", " nist-sample ", "iec-sample", ""})
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Len(t, detail.MappedRequirements, 2)
	assert.Empty(t, detail.Mitigations)
}

func TestGetTechnique_MappingRequestedWithoutMatches(t *testing.T) {
	f := seedTechniqueFixture(t)
	svc := NewTechniqueService(f.techniques, f.logger)

	detail, err := svc.GetTechnique(context.Background(), "T0822", true, []string{"unmapped-standard"})
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.NotNil(t, detail.MappedRequirements)
	assert.Empty(t, detail.MappedRequirements)

	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mapped_requirements":[]`)

	detail, err = svc.GetTechnique(context.Background(), "T0822", true, nil)
	require.NoError(t, err)
	raw, err = json.Marshal(detail)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "mapped_requirements")
}

func TestGetTechnique_NotFound(t *testing.T) {
	f := seedTechniqueFixture(t)
	svc := NewTechniqueService(f.techniques, f.logger)

	for _, id := range []string{"", "   ", "T9999"} {
		detail, err := svc.GetTechnique(context.Background(), id, true, []string{"iec-sample"})
		assert.NoError(t, err)
		assert.Nil(t, detail)
	}
}

func TestGetTechnique_StoreFailureDegrades(t *testing.T) {
	svc := NewTechniqueService(&failingStore{err: errStoreDown}, zaptest.NewLogger(t).Sugar())

	detail, err := svc.GetTechnique(context.Background(), "T0822", true, nil)
	assert.NoError(t, err)
	assert.Nil(t, detail)
}

func TestDedupeRequirements(t *testing.T) {
	in := []core.Requirement{{ID: 2}, {ID: 1}, {ID: 2}, {ID: 3}, {ID: 1}}
	out := dedupeRequirements(in)
	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, int64(1), out[1].ID)
	assert.Equal(t, int64(3), out[2].ID)
}
