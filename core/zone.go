package core

// Zone is a network-segmentation trust boundary
type Zone struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	PurdueLevel         int     `json:"purdue_level"`
	SecurityLevelTarget *int    `json:"security_level_target,omitempty"`
	Description         *string `json:"description,omitempty"`
	Reference           *string `json:"iec_reference,omitempty"`
	TypicalAssets       *string `json:"typical_assets,omitempty"`
}

// Conduit is a named class of inter-zone connection
type Conduit struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	ConduitType          string  `json:"conduit_type"`
	SecurityRequirements *string `json:"security_requirements,omitempty"`
	Description          *string `json:"description,omitempty"`
	Reference            *string `json:"iec_reference,omitempty"`
	MinimumSecurityLevel int     `json:"minimum_security_level"`
}

// ZoneConduitFlow is a data flow between two zones through one conduit.
// The name fields are filled from the joined zone and conduit rows.
type ZoneConduitFlow struct {
	ID                    int64   `json:"id"`
	SourceZoneID          int64   `json:"source_zone_id"`
	TargetZoneID          int64   `json:"target_zone_id"`
	ConduitID             int64   `json:"conduit_id"`
	DataFlowDescription   *string `json:"data_flow_description,omitempty"`
	SecurityLevelRequired *int    `json:"security_level_required,omitempty"`
	Bidirectional         bool    `json:"bidirectional"`

	SourceZoneName string `json:"source_zone_name"`
	TargetZoneName string `json:"target_zone_name"`
	ConduitName    string `json:"conduit_name"`
}

// ZoneFilter narrows the zones returned by the guidance synthesizer.
// Conduits are never filtered by it.
type ZoneFilter struct {
	PurdueLevel           *int    `json:"purdue_level,omitempty"`
	SecurityLevelTarget   *int    `json:"security_level_target,omitempty"`
	ReferenceArchitecture *string `json:"reference_architecture,omitempty"`
}

// IsEmpty reports whether no zone criterion was supplied
func (f ZoneFilter) IsEmpty() bool {
	return f.PurdueLevel == nil && f.SecurityLevelTarget == nil &&
		(f.ReferenceArchitecture == nil || *f.ReferenceArchitecture == "")
}

// Validate checks the numeric filter bounds
func (f ZoneFilter) Validate() error {
	if f.PurdueLevel != nil {
		if err := ValidatePurdueLevel("purdue_level", *f.PurdueLevel); err != nil {
			return err
		}
	}
	if f.SecurityLevelTarget != nil {
		if err := ValidateSecurityLevel("security_level_target", *f.SecurityLevelTarget); err != nil {
			return err
		}
	}
	return nil
}
