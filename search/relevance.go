// Package search holds the relevance scoring, snippet extraction and
// query construction shared by requirement search.
package search

import (
	"strings"
	"unicode"

	"crosswalk/core"
)

// FoldFunction is the SQL scalar function the store registers for Fold.
// Matching runs on fold(column) LIKE fold(query) because SQLite's LIKE only
// ignores case for ASCII.
const FoldFunction = "crosswalk_fold"

// Tiered relevance scores
const (
	TitleScore       = 1.0
	DescriptionScore = 0.7
	RationaleScore   = 0.5
	FallbackScore    = 0.3
)

// Result limits
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Field names the requirement text field a query matched in
type Field int

const (
	FieldNone Field = iota
	FieldTitle
	FieldDescription
	FieldRationale
)

// String returns the column name of the field
func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldDescription:
		return "description"
	case FieldRationale:
		return "rationale"
	default:
		return "none"
	}
}

// MatchField returns the first of title, description and rationale that
// contains query case-insensitively
func MatchField(req *core.Requirement, query string) Field {
	q := strings.TrimSpace(query)
	if q == "" {
		return FieldNone
	}
	if IndexFold(req.Title, q) >= 0 {
		return FieldTitle
	}
	if req.Description != nil && IndexFold(*req.Description, q) >= 0 {
		return FieldDescription
	}
	if req.Rationale != nil && IndexFold(*req.Rationale, q) >= 0 {
		return FieldRationale
	}
	return FieldNone
}

// FieldScore returns the relevance tier of a matched field
func FieldScore(f Field) float64 {
	switch f {
	case FieldTitle:
		return TitleScore
	case FieldDescription:
		return DescriptionScore
	case FieldRationale:
		return RationaleScore
	default:
		return FallbackScore
	}
}

// Score computes the tiered relevance of req for query
func Score(req *core.Requirement, query string) float64 {
	return FieldScore(MatchField(req, query))
}

// ClampLimit applies the default and upper bound to a result limit
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Fold lowers s rune by rune. IndexFold and FoldFunction use the same mapping,
// so SQL candidate matching agrees with Go scoring.
func Fold(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// LikePattern escapes LIKE metacharacters in q and wraps it for a substring match.
// The pattern must be used with ESCAPE '\'.
func LikePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// RequirementQuery builds the candidate query for a relevance search.
// Rows carry the requirement columns, the owning standard title and the
// tiered score, ordered by score then surrogate id.
func RequirementQuery(query string, filter core.SearchFilter) (string, []interface{}) {
	pattern := LikePattern(Fold(strings.TrimSpace(query)))
	title := FoldFunction + "(r.title)"
	description := FoldFunction + "(r.description)"
	rationale := FoldFunction + "(r.rationale)"

	b := NewSQLBuilder().
		Select(
			"r.id", "r.standard_id", "r.requirement_id", "r.parent_requirement_id",
			"r.title", "r.description", "r.rationale", "r.component_type", "r.purdue_level",
			"s.title",
		).
		SelectExpr(`CASE
			WHEN `+title+` LIKE ? ESCAPE '\' THEN ?
			WHEN `+description+` LIKE ? ESCAPE '\' THEN ?
			WHEN `+rationale+` LIKE ? ESCAPE '\' THEN ?
			ELSE ? END AS score`,
			pattern, TitleScore, pattern, DescriptionScore, pattern, RationaleScore, FallbackScore).
		From("requirements", "r").
		Join("JOIN standards s ON s.id = r.standard_id").
		Where(`(`+title+` LIKE ? ESCAPE '\' OR `+description+` LIKE ? ESCAPE '\' OR `+rationale+` LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)

	b.WhereInStrings("r.standard_id", filter.Standards)
	if filter.SecurityLevel != nil {
		b.Where("EXISTS (SELECT 1 FROM security_levels sl WHERE sl.requirement_db_id = r.id AND sl.security_level = ?)",
			*filter.SecurityLevel)
	}
	if filter.ComponentType != nil && *filter.ComponentType != "" {
		b.Where("r.component_type = ?", *filter.ComponentType)
	}

	return b.OrderBy("score", "DESC").
		OrderBy("r.id", "ASC").
		Limit(ClampLimit(filter.Limit)).
		Build()
}
