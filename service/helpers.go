package service

import (
	"errors"
	"strings"
	"unicode"

	"crosswalk/core"
	"crosswalk/metrics"
	"crosswalk/storage"

	"go.uber.org/zap"
)

// ============================================================================
// Shared Helper Functions
// ============================================================================

const (
	// maxIdentifierLength bounds standard, requirement and technique identifiers
	maxIdentifierLength = 100

	// maxVersionLength bounds the accepted-but-unused version argument
	maxVersionLength = 50
)

// degradeStoreFailure records a read-path fault and lets the caller fall back
// to its empty or not-found outcome.
//
// OUTCOME CLASSES:
//   - validation failures are returned to the caller and never reach here
//   - not-found is an ordinary result and is not counted
//   - everything else (closed handle, corruption, driver faults) is logged at
//     warn level, counted in crosswalk_store_failures_total and swallowed
//
// Context cancellation is counted like any other fault; the caller asked for
// nothing more once it cancelled.
func degradeStoreFailure(logger *zap.SugaredLogger, operation string, err error, keysAndValues ...interface{}) {
	metrics.StoreFailures.WithLabelValues(operation).Inc()
	fields := append([]interface{}{"operation", operation, "error", err}, keysAndValues...)
	logger.Warnw("Store read failed, degrading to empty result", fields...)
}

// isNotFound reports whether err is the storage not-found sentinel
func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// normalizeIdentifier trims id and reports whether it is usable.
// Blank identifiers are not an error; they short-circuit to not-found.
func normalizeIdentifier(field, id string) (string, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false, nil
	}
	if len(id) > maxIdentifierLength {
		return "", false, core.NewValidationError(field, nil, "must be at most 100 characters")
	}
	return id, true, nil
}

// validateVersion checks the shape of a version argument. The value is not
// used for filtering.
func validateVersion(version string) error {
	if version == "" {
		return nil
	}
	if len(version) > maxVersionLength {
		return core.NewValidationError("version", nil, "must be at most 50 characters")
	}
	for _, r := range version {
		if !unicode.IsPrint(r) {
			return core.NewValidationError("version", version, "must contain printable characters only")
		}
	}
	return nil
}

// trimmedOrNil returns nil for blank strings
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
