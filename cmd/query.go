package cmd

import (
	"strconv"
	"strings"

	"crosswalk/dispatch"

	"github.com/spf13/cobra"
)

// newSearchCmd creates the 'search' subcommand
func newSearchCmd() *cobra.Command {
	var (
		standards     []string
		securityLevel int
		componentType string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank requirements by relevance to a free-text query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"query": strings.Join(args, " ")}
			if len(standards) > 0 {
				params["standards"] = standards
			}
			if cmd.Flags().Changed("level") {
				params["security_level"] = securityLevel
			}
			if componentType != "" {
				params["component_type"] = componentType
			}
			if cmd.Flags().Changed("limit") {
				params["limit"] = limit
			}
			return runTool(cmd, dispatch.ToolSearchRequirements, params, renderSearchResults)
		},
	}

	cmd.Flags().StringSliceVarP(&standards, "standard", "s", nil, "Restrict to standard ids (repeatable)")
	cmd.Flags().IntVarP(&securityLevel, "level", "l", 0, "Restrict to requirements with a row at this security level (1-4)")
	cmd.Flags().StringVarP(&componentType, "component", "c", "", "Restrict to a component type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results (1-100)")
	return cmd
}

// newRequirementCmd creates the 'requirement' subcommand
func newRequirementCmd() *cobra.Command {
	var (
		version    string
		noMappings bool
	)

	cmd := &cobra.Command{
		Use:     "requirement <standard> <requirement-id>",
		Aliases: []string{"req"},
		Short:   "Show one requirement with its security levels and mappings",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{
				"standard":         args[0],
				"requirement_id":   args[1],
				"include_mappings": !noMappings,
			}
			if version != "" {
				params["version"] = version
			}
			return runTool(cmd, dispatch.ToolGetRequirement, params, renderRequirement)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Standard edition (accepted, not applied)")
	cmd.Flags().BoolVar(&noMappings, "no-mappings", false, "Omit cross-standard mappings")
	return cmd
}

// newLevelsCmd creates the 'levels' subcommand
func newLevelsCmd() *cobra.Command {
	var (
		componentType  string
		noEnhancements bool
	)

	cmd := &cobra.Command{
		Use:   "levels <security-level>",
		Short: "List requirements that apply at exactly one security level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			params := map[string]interface{}{
				"security_level":       level,
				"include_enhancements": !noEnhancements,
			}
			if componentType != "" {
				params["component_type"] = componentType
			}
			return runTool(cmd, dispatch.ToolMapSecurityLevel, params, renderLevelRequirements)
		},
	}

	cmd.Flags().StringVarP(&componentType, "component", "c", "", "Restrict to a component type")
	cmd.Flags().BoolVar(&noEnhancements, "no-enhancements", false, "Omit requirement enhancements")
	return cmd
}

// newZonesCmd creates the 'zones' subcommand
func newZonesCmd() *cobra.Command {
	var (
		purdueLevel int
		targetLevel int
		reference   string
	)

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "Print zone and conduit guidance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{}
			if cmd.Flags().Changed("purdue") {
				params["purdue_level"] = purdueLevel
			}
			if cmd.Flags().Changed("target-level") {
				params["security_level_target"] = targetLevel
			}
			if reference != "" {
				params["reference_architecture"] = reference
			}
			return runTool(cmd, dispatch.ToolZoneConduitGuidance, params, renderGuidance)
		},
	}

	cmd.Flags().IntVarP(&purdueLevel, "purdue", "p", 0, "Purdue level (0-5)")
	cmd.Flags().IntVarP(&targetLevel, "target-level", "t", 0, "Target security level (1-4)")
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "Reference architecture substring")
	return cmd
}

// newTechniqueCmd creates the 'technique' subcommand
func newTechniqueCmd() *cobra.Command {
	var (
		noMitigations bool
		mapTo         []string
	)

	cmd := &cobra.Command{
		Use:   "technique <technique-id>",
		Short: "Show a technique, its mitigations and the requirements they map to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{
				"technique_id":        args[0],
				"include_mitigations": !noMitigations,
			}
			if len(mapTo) > 0 {
				params["map_to_standards"] = mapTo
			}
			return runTool(cmd, dispatch.ToolGetTechnique, params, renderTechnique)
		},
	}

	cmd.Flags().BoolVar(&noMitigations, "no-mitigations", false, "Omit mitigations")
	cmd.Flags().StringSliceVarP(&mapTo, "map-to", "m", nil, "Standards to map mitigations onto (repeatable)")
	return cmd
}

// newRationaleCmd creates the 'rationale' subcommand
func newRationaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rationale <standard> <requirement-id>",
		Short: "Explain a requirement: rationale, levels, regulatory context and related standards",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{
				"standard":       args[0],
				"requirement_id": args[1],
			}
			return runTool(cmd, dispatch.ToolGetRationale, params, renderRationale)
		},
	}
}

// newStandardsCmd creates the 'standards' subcommand
func newStandardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "standards",
		Aliases: []string{"ls"},
		Short:   "List ingested standards",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, dispatch.ToolListStandards, map[string]interface{}{}, renderStandards)
		},
	}
}
