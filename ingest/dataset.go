package ingest

import (
	"fmt"
	"strings"

	"crosswalk/core"
)

// Dataset is the YAML document the loader reads. It is the hand-off format
// between catalog-specific extract jobs and the store.
type Dataset struct {
	Standards   []StandardRecord   `yaml:"standards"`
	Mappings    []MappingRecord    `yaml:"mappings"`
	Zones       []ZoneRecord       `yaml:"zones"`
	Conduits    []ConduitRecord    `yaml:"conduits"`
	Flows       []FlowRecord       `yaml:"flows"`
	Mitigations []MitigationRecord `yaml:"mitigations"`
	Techniques  []TechniqueRecord  `yaml:"techniques"`
}

// StandardRecord is a standard with its requirements and regulatory context
type StandardRecord struct {
	ID            string              `yaml:"id"`
	Title         string              `yaml:"title"`
	Version       *string             `yaml:"version"`
	PublishedDate *string             `yaml:"published_date"`
	URL           *string             `yaml:"url"`
	Status        string              `yaml:"status"`
	Notes         *string             `yaml:"notes"`
	Requirements  []RequirementRecord `yaml:"requirements"`
	Sectors       []SectorRecord      `yaml:"sectors"`
}

// RequirementRecord is one requirement and its security level rows
type RequirementRecord struct {
	RequirementID       string        `yaml:"requirement_id"`
	ParentRequirementID *string       `yaml:"parent_requirement_id"`
	Title               string        `yaml:"title"`
	Description         *string       `yaml:"description"`
	Rationale           *string       `yaml:"rationale"`
	ComponentType       *string       `yaml:"component_type"`
	PurdueLevel         *int          `yaml:"purdue_level"`
	SecurityLevels      []LevelRecord `yaml:"security_levels"`
}

// LevelRecord is one security level row. Type defaults to SL-T.
type LevelRecord struct {
	Level           int     `yaml:"level"`
	Type            string  `yaml:"type"`
	CapabilityLevel *int    `yaml:"capability_level"`
	Notes           *string `yaml:"notes"`
}

// SectorRecord is one sector/jurisdiction applicability row of the enclosing standard
type SectorRecord struct {
	Sector           string  `yaml:"sector"`
	Jurisdiction     string  `yaml:"jurisdiction"`
	Applicability    string  `yaml:"applicability"`
	Threshold        *string `yaml:"threshold"`
	RegulatoryDriver *string `yaml:"regulatory_driver"`
	EffectiveDate    *string `yaml:"effective_date"`
}

// RequirementRef names a requirement by its natural key
type RequirementRef struct {
	Standard    string `yaml:"standard"`
	Requirement string `yaml:"requirement"`
}

// MappingRecord is a directed cross-reference between two requirements
type MappingRecord struct {
	Source     RequirementRef `yaml:"source"`
	Target     RequirementRef `yaml:"target"`
	Type       string         `yaml:"type"`
	Confidence *float64       `yaml:"confidence"` // default 1.0
	Notes      *string        `yaml:"notes"`
}

// ZoneRecord is one segmentation zone
type ZoneRecord struct {
	Name                string  `yaml:"name"`
	PurdueLevel         int     `yaml:"purdue_level"`
	SecurityLevelTarget *int    `yaml:"security_level_target"`
	Description         *string `yaml:"description"`
	Reference           *string `yaml:"reference"`
	TypicalAssets       *string `yaml:"typical_assets"`
}

// ConduitRecord is one conduit class
type ConduitRecord struct {
	Name                 string  `yaml:"name"`
	Type                 string  `yaml:"type"`
	SecurityRequirements *string `yaml:"security_requirements"`
	Description          *string `yaml:"description"`
	Reference            *string `yaml:"reference"`
	MinimumSecurityLevel int     `yaml:"minimum_security_level"`
}

// ZoneRef names a zone by its natural key
type ZoneRef struct {
	Zone        string `yaml:"zone"`
	PurdueLevel int    `yaml:"purdue_level"`
}

// ConduitRef names a conduit by its natural key
type ConduitRef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// FlowRecord is a data flow between two zones through a conduit
type FlowRecord struct {
	Source                ZoneRef    `yaml:"source"`
	Target                ZoneRef    `yaml:"target"`
	Conduit               ConduitRef `yaml:"conduit"`
	Description           *string    `yaml:"description"`
	SecurityLevelRequired *int       `yaml:"security_level_required"`
	Bidirectional         bool       `yaml:"bidirectional"`
}

// MitigationRecord is one countermeasure
type MitigationRecord struct {
	MitigationID string  `yaml:"mitigation_id"`
	Name         string  `yaml:"name"`
	Description  *string `yaml:"description"`
}

// TechniqueRecord is one adversary technique and its mitigation links
type TechniqueRecord struct {
	TechniqueID string       `yaml:"technique_id"`
	Tactic      *string      `yaml:"tactic"`
	Name        string       `yaml:"name"`
	Description *string      `yaml:"description"`
	Platforms   []string     `yaml:"platforms"`
	DataSources []string     `yaml:"data_sources"`
	Mitigations []LinkRecord `yaml:"mitigations"`
}

// LinkRecord links the enclosing technique to a mitigation, optionally naming
// the requirement identifier that is the mitigation's primary control
type LinkRecord struct {
	MitigationID  string  `yaml:"mitigation_id"`
	RequirementID *string `yaml:"requirement_id"`
}

// Validate checks the keys the store cannot check itself (blank identifiers).
// Range and enum checks are left to the storage write API.
func (d *Dataset) Validate() error {
	for i, s := range d.Standards {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("standards[%d]: id and title are required", i)
		}
		for j, r := range s.Requirements {
			if strings.TrimSpace(r.RequirementID) == "" || strings.TrimSpace(r.Title) == "" {
				return fmt.Errorf("standards[%d].requirements[%d]: requirement_id and title are required", i, j)
			}
		}
		for j, sec := range s.Sectors {
			if sec.Sector == "" || sec.Jurisdiction == "" {
				return fmt.Errorf("standards[%d].sectors[%d]: sector and jurisdiction are required", i, j)
			}
		}
	}
	for i, m := range d.Mappings {
		if m.Source.Standard == "" || m.Source.Requirement == "" || m.Target.Standard == "" || m.Target.Requirement == "" {
			return fmt.Errorf("mappings[%d]: source and target must name a standard and a requirement", i)
		}
	}
	for i, z := range d.Zones {
		if strings.TrimSpace(z.Name) == "" {
			return fmt.Errorf("zones[%d]: name is required", i)
		}
	}
	for i, c := range d.Conduits {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("conduits[%d]: name and type are required", i)
		}
	}
	for i, m := range d.Mitigations {
		if strings.TrimSpace(m.MitigationID) == "" || strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("mitigations[%d]: mitigation_id and name are required", i)
		}
	}
	for i, t := range d.Techniques {
		if strings.TrimSpace(t.TechniqueID) == "" || strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("techniques[%d]: technique_id and name are required", i)
		}
		for j, l := range t.Mitigations {
			if strings.TrimSpace(l.MitigationID) == "" {
				return fmt.Errorf("techniques[%d].mitigations[%d]: mitigation_id is required", i, j)
			}
		}
	}
	return nil
}

func (s StandardRecord) toStandard() *core.Standard {
	return &core.Standard{
		ID:            s.ID,
		Title:         s.Title,
		Version:       s.Version,
		PublishedDate: s.PublishedDate,
		URL:           s.URL,
		Status:        core.StandardStatus(s.Status),
		Notes:         s.Notes,
	}
}

func (r RequirementRecord) toRequirement(standardID string) (*core.Requirement, []core.SecurityLevel) {
	req := &core.Requirement{
		StandardID:          standardID,
		RequirementID:       r.RequirementID,
		ParentRequirementID: r.ParentRequirementID,
		Title:               r.Title,
		Description:         r.Description,
		Rationale:           r.Rationale,
		ComponentType:       r.ComponentType,
		PurdueLevel:         r.PurdueLevel,
	}
	levels := make([]core.SecurityLevel, len(r.SecurityLevels))
	for i, l := range r.SecurityLevels {
		levels[i] = core.SecurityLevel{
			Level:           l.Level,
			Type:            core.LevelType(l.Type),
			CapabilityLevel: l.CapabilityLevel,
			Notes:           l.Notes,
		}
	}
	return req, levels
}

func (m MappingRecord) toMapping() *core.Mapping {
	confidence := 1.0
	if m.Confidence != nil {
		confidence = *m.Confidence
	}
	return &core.Mapping{
		SourceStandard:    m.Source.Standard,
		SourceRequirement: m.Source.Requirement,
		TargetStandard:    m.Target.Standard,
		TargetRequirement: m.Target.Requirement,
		MappingType:       core.MappingType(m.Type),
		Confidence:        confidence,
		Notes:             m.Notes,
	}
}
