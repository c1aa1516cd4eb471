package dispatch

import "encoding/json"

// Tool names accepted by the dispatcher
const (
	ToolSearchRequirements  = "search_requirements"
	ToolGetRequirement      = "get_requirement"
	ToolMapSecurityLevel    = "map_security_level"
	ToolZoneConduitGuidance = "get_zone_conduit_guidance"
	ToolGetTechnique        = "get_technique"
	ToolGetRationale        = "get_rationale"
	ToolListStandards       = "list_standards"
)

// Tool describes one callable operation and the JSON Schema of its arguments
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// toolDefinitions lists every tool in registration order
var toolDefinitions = []Tool{
	{
		Name:        ToolSearchRequirements,
		Description: "Search requirement titles, descriptions and rationale text. Title matches rank first.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "maxLength": 500},
				"standards": {"type": "array", "items": {"type": "string"}},
				"security_level": {"type": "integer", "minimum": 1, "maximum": 4},
				"component_type": {"type": "string"},
				"limit": {"type": "integer", "maximum": 100, "default": 10}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
	},
	{
		Name:        ToolGetRequirement,
		Description: "Resolve one requirement with its standard, security levels and cross-standard mappings.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"requirement_id": {"type": "string"},
				"standard": {"type": "string"},
				"version": {"type": "string", "maxLength": 50},
				"include_mappings": {"type": "boolean", "default": true}
			},
			"required": ["requirement_id", "standard"],
			"additionalProperties": false
		}`),
	},
	{
		Name:        ToolMapSecurityLevel,
		Description: "List the requirements tagged with exactly one security level (1-4).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"security_level": {"type": "integer", "minimum": 1, "maximum": 4},
				"component_type": {"type": "string"},
				"include_enhancements": {"type": "boolean", "default": true}
			},
			"required": ["security_level"],
			"additionalProperties": false
		}`),
	},
	{
		Name:        ToolZoneConduitGuidance,
		Description: "Filter zones, list conduits and flows, and render segmentation guidance.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"purdue_level": {"type": "integer", "minimum": 0, "maximum": 5},
				"security_level_target": {"type": "integer", "minimum": 1, "maximum": 4},
				"reference_architecture": {"type": "string"}
			},
			"additionalProperties": false
		}`),
	},
	{
		Name:        ToolGetTechnique,
		Description: "Resolve an adversary technique to its mitigations and linked requirements.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"technique_id": {"type": "string"},
				"include_mitigations": {"type": "boolean", "default": true},
				"map_to_standards": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["technique_id"],
			"additionalProperties": false
		}`),
	},
	{
		Name:        ToolGetRationale,
		Description: "Explain a requirement: rationale, security levels, regulatory context and related standards.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"requirement_id": {"type": "string"},
				"standard": {"type": "string"}
			},
			"required": ["requirement_id", "standard"],
			"additionalProperties": false
		}`),
	},
	{
		Name:        ToolListStandards,
		Description: "List ingested standards with their requirement counts.",
		InputSchema: json.RawMessage(`{"type": "object", "additionalProperties": false}`),
	},
}
