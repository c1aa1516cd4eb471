package dispatch

// Argument objects of each tool. Defaults are applied before decoding so an
// absent field keeps its default and a present one overrides it.

// SearchParams are the search_requirements arguments
type SearchParams struct {
	Query         string   `json:"query" validate:"max=500"`
	Standards     []string `json:"standards" validate:"max=50,dive,max=100"`
	SecurityLevel *int     `json:"security_level"`
	ComponentType *string  `json:"component_type" validate:"omitempty,max=100"`
	Limit         int      `json:"limit" validate:"max=100"`
}

// RequirementParams are the get_requirement arguments
type RequirementParams struct {
	RequirementID   string `json:"requirement_id" validate:"max=100"`
	Standard        string `json:"standard" validate:"max=100"`
	Version         string `json:"version" validate:"max=50"`
	IncludeMappings bool   `json:"include_mappings"`
}

// LevelParams are the map_security_level arguments
type LevelParams struct {
	SecurityLevel       int     `json:"security_level" validate:"min=1,max=4"`
	ComponentType       *string `json:"component_type" validate:"omitempty,max=100"`
	IncludeEnhancements bool    `json:"include_enhancements"`
}

// ZoneParams are the get_zone_conduit_guidance arguments
type ZoneParams struct {
	PurdueLevel           *int    `json:"purdue_level"`
	SecurityLevelTarget   *int    `json:"security_level_target"`
	ReferenceArchitecture *string `json:"reference_architecture" validate:"omitempty,max=200"`
}

// TechniqueParams are the get_technique arguments
type TechniqueParams struct {
	TechniqueID        string   `json:"technique_id" validate:"max=100"`
	IncludeMitigations bool     `json:"include_mitigations"`
	MapToStandards     []string `json:"map_to_standards" validate:"max=50,dive,max=100"`
}

// RationaleParams are the get_rationale arguments
type RationaleParams struct {
	RequirementID string `json:"requirement_id" validate:"max=100"`
	Standard      string `json:"standard" validate:"max=100"`
}

func defaultSearchParams() *SearchParams { return &SearchParams{Limit: 10} }

func defaultRequirementParams() *RequirementParams {
	return &RequirementParams{IncludeMappings: true}
}

func defaultLevelParams() *LevelParams { return &LevelParams{IncludeEnhancements: true} }

func defaultTechniqueParams() *TechniqueParams {
	return &TechniqueParams{IncludeMitigations: true}
}
