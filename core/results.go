package core

import "encoding/json"

// SearchFilter holds the conjunctive filters of a relevance search
type SearchFilter struct {
	Standards     []string
	SecurityLevel *int
	ComponentType *string
	Limit         int
}

// SearchResult is a matching requirement decorated for display
type SearchResult struct {
	Requirement
	StandardTitle string  `json:"standard_title"`
	Relevance     float64 `json:"relevance"`
	Snippet       string  `json:"snippet"`
}

// RequirementDetail is a requirement with its standard, levels and mappings
type RequirementDetail struct {
	Requirement    Requirement     `json:"requirement"`
	Standard       Standard        `json:"standard"`
	SecurityLevels []SecurityLevel `json:"security_levels"`
	Mappings       []Mapping       `json:"mappings"`
}

// LevelRequirement is a requirement that applies at a requested security level,
// carrying every level row it has (not only the matching one)
type LevelRequirement struct {
	Requirement
	StandardTitle  string          `json:"standard_title"`
	SecurityLevels []SecurityLevel `json:"security_levels"`
}

// ZoneGuidance is the output of the zone/conduit guidance synthesizer
type ZoneGuidance struct {
	Filter   ZoneFilter        `json:"filter"`
	Zones    []Zone            `json:"zones"`
	Conduits []Conduit         `json:"conduits"`
	Flows    []ZoneConduitFlow `json:"flows"`
	Guidance string            `json:"guidance"`
}

// TechniqueDetail is a technique with its mitigations and, when requested,
// the distinct requirements those mitigations are primary-linked to.
// A nil MappedRequirements means no mapping was requested and the key is
// omitted; a non-nil empty slice encodes as [].
type TechniqueDetail struct {
	Technique          Technique          `json:"technique"`
	Mitigations        []LinkedMitigation `json:"mitigations"`
	MappedRequirements []Requirement      `json:"-"`
}

type techniqueDetailFields TechniqueDetail

// MarshalJSON emits mapped_requirements only when a mapping was requested
func (d TechniqueDetail) MarshalJSON() ([]byte, error) {
	if d.MappedRequirements == nil {
		return json.Marshal(techniqueDetailFields(d))
	}
	return json.Marshal(struct {
		techniqueDetailFields
		MappedRequirements []Requirement `json:"mapped_requirements"`
	}{techniqueDetailFields(d), d.MappedRequirements})
}

// RelatedStandard is one mapping read from the perspective of a requirement:
// the Standard/RequirementID fields always name the other side
type RelatedStandard struct {
	Direction     MappingDirection `json:"direction"`
	Standard      string           `json:"standard"`
	RequirementID string           `json:"requirement_id"`
	MappingType   MappingType      `json:"mapping_type"`
	Confidence    float64          `json:"confidence"`
	Notes         *string          `json:"notes,omitempty"`
}

// NewRelatedStandard orients m around the (standardID, requirementID) pair.
// Self-mappings are reported as outgoing.
func NewRelatedStandard(m Mapping, standardID, requirementID string) RelatedStandard {
	rel := RelatedStandard{
		MappingType: m.MappingType,
		Confidence:  m.Confidence,
		Notes:       m.Notes,
	}
	if m.SourceStandard == standardID && m.SourceRequirement == requirementID {
		rel.Direction = DirectionOutgoing
		rel.Standard = m.TargetStandard
		rel.RequirementID = m.TargetRequirement
	} else {
		rel.Direction = DirectionIncoming
		rel.Standard = m.SourceStandard
		rel.RequirementID = m.SourceRequirement
	}
	return rel
}

// RationaleDetail aggregates the why and where of one requirement
type RationaleDetail struct {
	Requirement      Requirement           `json:"requirement"`
	Standard         Standard              `json:"standard"`
	Rationale        *string               `json:"rationale"`
	SecurityLevels   []SecurityLevel       `json:"security_levels"`
	Sectors          []SectorApplicability `json:"regulatory_context"`
	RelatedStandards []RelatedStandard     `json:"related_standards"`
}

// StandardSummary is a standard with the number of requirements ingested for it
type StandardSummary struct {
	Standard
	RequirementCount int `json:"requirement_count"`
}
