package core

// Technique is one adversary technique from a technique catalog
type Technique struct {
	TechniqueID string   `json:"technique_id"`
	Tactic      *string  `json:"tactic,omitempty"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Platforms   []string `json:"platforms"`
	DataSources []string `json:"data_sources"`
}

// Mitigation is one countermeasure
type Mitigation struct {
	MitigationID string  `json:"mitigation_id"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
}

// TechniqueMitigation joins a technique to a mitigation. RequirementID is the
// requirement identifier considered the primary control for that mitigation,
// filled by a separate cross-mapping step and nil until then.
type TechniqueMitigation struct {
	TechniqueID   string  `json:"technique_id"`
	MitigationID  string  `json:"mitigation_id"`
	RequirementID *string `json:"requirement_id,omitempty"`
}

// LinkedMitigation is a mitigation as seen from one technique
type LinkedMitigation struct {
	Mitigation
	RequirementID *string `json:"requirement_id,omitempty"`
}
