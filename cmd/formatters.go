package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"crosswalk/core"
	"crosswalk/dispatch"
	"crosswalk/ingest"
)

// renderCounts displays a seed summary
func renderCounts(w io.Writer, path string, c *ingest.Counts, elapsed time.Duration) {
	successColor.Fprintf(w, "✓ %s loaded in %.2fs\n", path, elapsed.Seconds())
	printField(w, "Standards", itoa(c.Standards))
	printField(w, "Requirements", fmt.Sprintf("%d (%d security level rows)", c.Requirements, c.SecurityLevels))
	printField(w, "Sector rows", itoa(c.Sectors))
	printField(w, "Mappings", itoa(c.Mappings))
	printField(w, "Zones", itoa(c.Zones))
	printField(w, "Conduits", itoa(c.Conduits))
	printField(w, "Data flows", itoa(c.Flows))
	printField(w, "Mitigations", itoa(c.Mitigations))
	printField(w, "Techniques", fmt.Sprintf("%d (%d mitigation links)", c.Techniques, c.Links))
}

// renderTools displays the tool registry
func renderTools(w io.Writer, tools []dispatch.Tool) {
	headerColor.Fprintln(w, "TOOLS")
	headerColor.Fprintln(w, strings.Repeat("=", 80))
	for _, t := range tools {
		infoColor.Fprintf(w, "%s\n", t.Name)
		fmt.Fprintf(w, "  %s\n", t.Description)
	}
	headerColor.Fprintln(w, strings.Repeat("=", 80))
}

// renderSearchResults displays ranked search hits
func renderSearchResults(w io.Writer, result interface{}) error {
	results, ok := result.([]core.SearchResult)
	if !ok {
		return outputAsJSON(w, result)
	}

	headerColor.Fprintln(w, "SEARCH RESULTS")
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	fmt.Fprintf(w, "%-6s %-20s %-16s %s\n", "Score", "Standard", "Requirement", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range results {
		fmt.Fprintf(w, "%-6.2f %-20s %-16s %s\n",
			r.Relevance, truncate(r.StandardID, 20), truncate(r.RequirementID, 16), r.Title)
		if r.Snippet != "" && r.Snippet != r.Title {
			fmt.Fprintf(w, "       %s\n", r.Snippet)
		}
	}
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	return nil
}

// renderRequirement displays one requirement detail
func renderRequirement(w io.Writer, result interface{}) error {
	d, ok := result.(*core.RequirementDetail)
	if !ok {
		return outputAsJSON(w, result)
	}

	headerColor.Fprintf(w, "%s %s: %s\n", d.Standard.ID, d.Requirement.RequirementID, d.Requirement.Title)
	fmt.Fprintln(w)

	printSection(w, "Requirement")
	printField(w, "Standard", d.Standard.Title)
	printField(w, "Parent", strOr(d.Requirement.ParentRequirementID))
	printField(w, "Component type", strOr(d.Requirement.ComponentType))
	printField(w, "Security levels", formatLevels(d.SecurityLevels))
	printField(w, "Description", strOr(d.Requirement.Description))
	fmt.Fprintln(w)

	if len(d.Mappings) > 0 {
		printSection(w, "Mappings")
		for _, m := range d.Mappings {
			rel := core.NewRelatedStandard(m, d.Standard.ID, d.Requirement.RequirementID)
			fmt.Fprintf(w, "  %-8s %-10s %s %s (%.2f)\n",
				rel.Direction, rel.MappingType, rel.Standard, rel.RequirementID, rel.Confidence)
		}
	}
	return nil
}

// renderLevelRequirements displays a security-level rollup
func renderLevelRequirements(w io.Writer, result interface{}) error {
	results, ok := result.([]core.LevelRequirement)
	if !ok {
		return outputAsJSON(w, result)
	}

	headerColor.Fprintln(w, "REQUIREMENTS AT LEVEL")
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	fmt.Fprintf(w, "%-20s %-16s %-12s %s\n", "Standard", "Requirement", "Levels", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range results {
		fmt.Fprintf(w, "%-20s %-16s %-12s %s\n",
			truncate(r.StandardID, 20), truncate(r.RequirementID, 16), formatLevels(r.SecurityLevels), r.Title)
	}
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	fmt.Fprintf(w, "%d requirement(s)\n", len(results))
	return nil
}

// renderGuidance prints the rendered guidance document as-is
func renderGuidance(w io.Writer, result interface{}) error {
	g, ok := result.(*core.ZoneGuidance)
	if !ok {
		return outputAsJSON(w, result)
	}
	_, err := fmt.Fprint(w, g.Guidance)
	return err
}

// renderTechnique displays a technique with its mitigations
func renderTechnique(w io.Writer, result interface{}) error {
	d, ok := result.(*core.TechniqueDetail)
	if !ok {
		return outputAsJSON(w, result)
	}

	headerColor.Fprintf(w, "%s: %s\n", d.Technique.TechniqueID, d.Technique.Name)
	fmt.Fprintln(w)
	printSection(w, "Technique")
	printField(w, "Tactic", strOr(d.Technique.Tactic))
	printField(w, "Platforms", strings.Join(d.Technique.Platforms, ", "))
	printField(w, "Data sources", strings.Join(d.Technique.DataSources, ", "))
	fmt.Fprintln(w)

	if len(d.Mitigations) > 0 {
		printSection(w, "Mitigations")
		for _, m := range d.Mitigations {
			line := fmt.Sprintf("  %-8s %s", m.MitigationID, m.Name)
			if m.RequirementID != nil {
				line += fmt.Sprintf(" [%s]", *m.RequirementID)
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}

	if len(d.MappedRequirements) > 0 {
		printSection(w, "Mapped requirements")
		for _, r := range d.MappedRequirements {
			fmt.Fprintf(w, "  %-20s %-16s %s\n", truncate(r.StandardID, 20), truncate(r.RequirementID, 16), r.Title)
		}
	}
	return nil
}

// renderRationale displays the rationale aggregate
func renderRationale(w io.Writer, result interface{}) error {
	d, ok := result.(*core.RationaleDetail)
	if !ok {
		return outputAsJSON(w, result)
	}

	headerColor.Fprintf(w, "%s %s: %s\n", d.Standard.ID, d.Requirement.RequirementID, d.Requirement.Title)
	fmt.Fprintln(w)
	printSection(w, "Rationale")
	fmt.Fprintf(w, "  %s\n\n", strOr(d.Rationale))
	printField(w, "Security levels", formatLevels(d.SecurityLevels))
	fmt.Fprintln(w)

	if len(d.Sectors) > 0 {
		printSection(w, "Regulatory context")
		for _, s := range d.Sectors {
			fmt.Fprintf(w, "  %-16s %-8s %-14s %s\n", s.Sector, s.Jurisdiction, s.Applicability, strOr(s.RegulatoryDriver))
		}
		fmt.Fprintln(w)
	}

	if len(d.RelatedStandards) > 0 {
		printSection(w, "Related standards")
		for _, rel := range d.RelatedStandards {
			fmt.Fprintf(w, "  %-8s %-10s %s %s (%.2f)\n",
				rel.Direction, rel.MappingType, rel.Standard, rel.RequirementID, rel.Confidence)
		}
	}
	return nil
}

// renderStandards displays the ingested standards
func renderStandards(w io.Writer, result interface{}) error {
	standards, ok := result.([]core.StandardSummary)
	if !ok {
		return outputAsJSON(w, result)
	}

	headerColor.Fprintln(w, "STANDARDS")
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	fmt.Fprintf(w, "%-24s %-10s %-12s %-8s %s\n", "ID", "Version", "Status", "Reqs", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, s := range standards {
		fmt.Fprintf(w, "%-24s %-10s %-12s %-8d %s\n",
			truncate(s.ID, 24), truncate(strOr(s.Version), 10), s.Status, s.RequirementCount, s.Title)
	}
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	return nil
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-25s %s\n", key+":", value)
}

// formatLevels renders level rows as e.g. "1, 2, 3 (SL-C)"
func formatLevels(levels []core.SecurityLevel) string {
	if len(levels) == 0 {
		return ""
	}
	sorted := make([]core.SecurityLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	parts := make([]string, len(sorted))
	for i, l := range sorted {
		parts[i] = strconv.Itoa(l.Level)
		if l.Type != core.LevelTypeTarget {
			parts[i] += " (" + string(l.Type) + ")"
		}
	}
	return strings.Join(parts, ", ")
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
