package core

import "time"

// Standard is one published reference document
type Standard struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Version       *string        `json:"version,omitempty"`
	PublishedDate *string        `json:"published_date,omitempty"`
	URL           *string        `json:"url,omitempty"`
	Status        StandardStatus `json:"status"`
	Notes         *string        `json:"notes,omitempty"`
}

// Requirement is one control, requirement or guidance item of a Standard.
// ParentRequirementID is a soft reference to another requirement in the same
// standard; it is resolved by lookup and may point at nothing.
type Requirement struct {
	ID                  int64   `json:"id"`
	StandardID          string  `json:"standard_id"`
	RequirementID       string  `json:"requirement_id"`
	ParentRequirementID *string `json:"parent_requirement_id,omitempty"`
	Title               string  `json:"title"`
	Description         *string `json:"description,omitempty"`
	Rationale           *string `json:"rationale,omitempty"`
	ComponentType       *string `json:"component_type,omitempty"`
	PurdueLevel         *int    `json:"purdue_level,omitempty"`
}

// IsEnhancement reports whether the requirement refines a base requirement
func (r *Requirement) IsEnhancement() bool {
	return r.ParentRequirementID != nil && *r.ParentRequirementID != ""
}

// SecurityLevel assigns a 1..4 rigor tier to a requirement
type SecurityLevel struct {
	ID              int64     `json:"id"`
	RequirementDBID int64     `json:"requirement_db_id"`
	Level           int       `json:"security_level"`
	Type            LevelType `json:"sl_type"`
	CapabilityLevel *int      `json:"capability_level,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}

// Mapping is a directed, typed cross-reference between two requirements.
// Mappings are not mirrored; lookups search both sides.
type Mapping struct {
	ID                int64       `json:"id"`
	SourceStandard    string      `json:"source_standard"`
	SourceRequirement string      `json:"source_requirement"`
	TargetStandard    string      `json:"target_standard"`
	TargetRequirement string      `json:"target_requirement"`
	MappingType       MappingType `json:"mapping_type"`
	Confidence        float64     `json:"confidence"`
	Notes             *string     `json:"notes,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Touches reports whether the (standard, requirement) pair is either side of m
func (m *Mapping) Touches(standardID, requirementID string) bool {
	return (m.SourceStandard == standardID && m.SourceRequirement == requirementID) ||
		(m.TargetStandard == standardID && m.TargetRequirement == requirementID)
}

// SectorApplicability is the regulatory context of a standard in one sector and jurisdiction
type SectorApplicability struct {
	ID               int64         `json:"id"`
	Sector           string        `json:"sector"`
	Jurisdiction     string        `json:"jurisdiction"`
	StandardID       string        `json:"standard"`
	Applicability    Applicability `json:"applicability"`
	Threshold        *string       `json:"threshold,omitempty"`
	RegulatoryDriver *string       `json:"regulatory_driver,omitempty"`
	EffectiveDate    *string       `json:"effective_date,omitempty"`
}
