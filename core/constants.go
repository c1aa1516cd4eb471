package core

// Security level and Purdue hierarchy bounds (inclusive)
const (
	MinSecurityLevel = 1
	MaxSecurityLevel = 4
	MinPurdueLevel   = 0
	MaxPurdueLevel   = 5
)

// StandardStatus represents the lifecycle status of a published standard
type StandardStatus string

const (
	// StandardStatusCurrent indicates the standard is the active edition
	StandardStatusCurrent StandardStatus = "current"
	// StandardStatusSuperseded indicates a newer edition replaces this one
	StandardStatusSuperseded StandardStatus = "superseded"
)

// String returns the string representation
func (s StandardStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s StandardStatus) IsValid() bool {
	switch s {
	case StandardStatusCurrent, StandardStatusSuperseded:
		return true
	default:
		return false
	}
}

// LevelType tags how a security level applies to a requirement
type LevelType string

const (
	LevelTypeTarget     LevelType = "SL-T" // Target level for a zone or system
	LevelTypeCapability LevelType = "SL-C" // Capability a component provides
	LevelTypeAchieved   LevelType = "SL-A" // Level achieved after assessment
)

// AllLevelTypes returns all valid level types
var AllLevelTypes = []LevelType{LevelTypeTarget, LevelTypeCapability, LevelTypeAchieved}

// IsValid checks if the level type is valid
func (t LevelType) IsValid() bool {
	for _, valid := range AllLevelTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// MappingType describes the relationship between two requirements
type MappingType string

const (
	MappingTypeExact      MappingType = "exact"
	MappingTypePartial    MappingType = "partial"
	MappingTypeRelated    MappingType = "related"
	MappingTypeSupersedes MappingType = "supersedes"
	MappingTypeBroader    MappingType = "broader"
	MappingTypeNarrower   MappingType = "narrower"
)

// AllMappingTypes returns all valid mapping types
var AllMappingTypes = []MappingType{
	MappingTypeExact, MappingTypePartial, MappingTypeRelated,
	MappingTypeSupersedes, MappingTypeBroader, MappingTypeNarrower,
}

// IsValid checks if the mapping type is valid
func (t MappingType) IsValid() bool {
	for _, valid := range AllMappingTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// Applicability is the regulatory weight of a standard in a sector/jurisdiction
type Applicability string

const (
	ApplicabilityMandatory     Applicability = "mandatory"
	ApplicabilityRecommended   Applicability = "recommended"
	ApplicabilityOptional      Applicability = "optional"
	ApplicabilityNotApplicable Applicability = "not_applicable"
)

// AllApplicabilities returns all valid applicability levels
var AllApplicabilities = []Applicability{
	ApplicabilityMandatory, ApplicabilityRecommended,
	ApplicabilityOptional, ApplicabilityNotApplicable,
}

// IsValid checks if the applicability level is valid
func (a Applicability) IsValid() bool {
	for _, valid := range AllApplicabilities {
		if a == valid {
			return true
		}
	}
	return false
}

// Component categories shared by the industrial-control standards.
// Other standards use their own family codes (e.g. "AC", "IR"), so
// ComponentType is an open string and these are only the common values.
const (
	ComponentHost        = "host"
	ComponentNetwork     = "network"
	ComponentEmbedded    = "embedded"
	ComponentApplication = "application"
)

// MappingDirection tells which side of a mapping the requested requirement was on
type MappingDirection string

const (
	// DirectionOutgoing means the requested requirement is the mapping source
	DirectionOutgoing MappingDirection = "outgoing"
	// DirectionIncoming means the requested requirement is the mapping target
	DirectionIncoming MappingDirection = "incoming"
)
