package search

import (
	"regexp"
	"strconv"
	"strings"
)

// plainIdent matches identifiers emitted unquoted (column, alias or table.column)
var plainIdent = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// SQLBuilder assembles parameterized read queries against the control store.
// Values only ever travel as bind arguments; identifiers that are not plain
// are double-quoted.
type SQLBuilder struct {
	columns    []string
	columnArgs []interface{}
	from       string
	joins      []string
	conds      []string
	condArgs   []interface{}
	order      []string
	limit      int
}

// NewSQLBuilder returns an empty builder selecting *
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{limit: -1}
}

// Select appends quoted column references
func (b *SQLBuilder) Select(columns ...string) *SQLBuilder {
	for _, c := range columns {
		b.columns = append(b.columns, quoteIdent(c))
	}
	return b
}

// SelectExpr appends a computed column. Its args bind before any WHERE args.
func (b *SQLBuilder) SelectExpr(expr string, args ...interface{}) *SQLBuilder {
	b.columns = append(b.columns, expr)
	b.columnArgs = append(b.columnArgs, args...)
	return b
}

// From sets the source table and optional alias
func (b *SQLBuilder) From(table string, alias ...string) *SQLBuilder {
	b.from = quoteIdent(table)
	if len(alias) > 0 && alias[0] != "" {
		b.from += " " + quoteIdent(alias[0])
	}
	return b
}

// Join appends a literal join clause
func (b *SQLBuilder) Join(clause string) *SQLBuilder {
	b.joins = append(b.joins, clause)
	return b
}

// Where ANDs a condition; user input must arrive through args
func (b *SQLBuilder) Where(cond string, args ...interface{}) *SQLBuilder {
	b.conds = append(b.conds, cond)
	b.condArgs = append(b.condArgs, args...)
	return b
}

// WhereIn ANDs "column IN (?, ...)". No values adds no condition.
func (b *SQLBuilder) WhereIn(column string, values ...interface{}) *SQLBuilder {
	if len(values) == 0 {
		return b
	}
	return b.Where(quoteIdent(column)+" IN ("+placeholders(len(values))+")", values...)
}

// WhereInStrings is WhereIn for a string list
func (b *SQLBuilder) WhereInStrings(column string, values []string) *SQLBuilder {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return b.WhereIn(column, args...)
}

// OrderBy appends a sort key; an empty direction means ASC
func (b *SQLBuilder) OrderBy(column, direction string) *SQLBuilder {
	direction = strings.ToUpper(direction)
	if direction != "DESC" {
		direction = "ASC"
	}
	b.order = append(b.order, quoteIdent(column)+" "+direction)
	return b
}

// Limit caps the row count
func (b *SQLBuilder) Limit(n int) *SQLBuilder {
	b.limit = n
	return b
}

// Build returns the statement and its bind arguments in placeholder order
func (b *SQLBuilder) Build() (string, []interface{}) {
	parts := make([]string, 0, 8)

	if len(b.columns) == 0 {
		parts = append(parts, "SELECT *")
	} else {
		parts = append(parts, "SELECT "+strings.Join(b.columns, ", "))
	}
	if b.from != "" {
		parts = append(parts, "FROM "+b.from)
	}
	parts = append(parts, b.joins...)
	if len(b.conds) > 0 {
		parts = append(parts, "WHERE "+strings.Join(b.conds, " AND "))
	}
	if len(b.order) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(b.order, ", "))
	}
	if b.limit >= 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(b.limit))
	}

	args := make([]interface{}, 0, len(b.columnArgs)+len(b.condArgs))
	args = append(args, b.columnArgs...)
	args = append(args, b.condArgs...)
	return strings.Join(parts, " "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func quoteIdent(ident string) string {
	if ident == "*" || plainIdent.MatchString(ident) {
		return ident
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
