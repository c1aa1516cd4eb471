package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullIntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// encodeList stores an ordered string list as a JSON array; nil stays NULL
func encodeList(values []string) (sql.NullString, error) {
	if values == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode list: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// decodeList restores a JSON array column. NULL and empty decode to nil.
func decodeList(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(ns.String), &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidListEncoding, err)
	}
	return values, nil
}

// parseTimestamp reads the RFC 3339 text the store writes
func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return ts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
