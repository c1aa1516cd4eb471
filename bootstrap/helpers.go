package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crosswalk/config"

	"go.uber.org/zap"
)

// EnsureDataDirectory creates the directory holding the SQLite file and
// verifies it is writable. This is a pre-flight check that runs before the
// store is opened.
func EnsureDataDirectory(cfg *config.Config, sugar *zap.SugaredLogger) error {
	dir := filepath.Dir(cfg.GetSQLitePath())
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for %s: %w", dir, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w\n"+
			"  Remediation: Ensure the parent directory exists and is writable\n"+
			"  For Docker: Check volume mount permissions", dir, err)
	}

	testFile := filepath.Join(absPath, ".crosswalk_write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w\n"+
			"  Remediation: Check file system permissions\n"+
			"  For bare metal: Run 'chmod -R u+w %s'", dir, err, absPath)
	}
	_ = os.Remove(testFile)

	sugar.Debugw("Data directory ready", "path", absPath)
	return nil
}

// ClassifySQLiteError turns a store open failure into an operator-facing
// message with remediation hints.
func ClassifySQLiteError(err error, dbPath string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	absPath, _ := filepath.Abs(dbPath)
	parentDir := filepath.Dir(absPath)

	switch {
	case containsIgnoreCase(errStr, "permission denied") || containsIgnoreCase(errStr, "access denied"):
		return fmt.Sprintf("Permission denied accessing SQLite database at %s.\n"+
			"  Remediation:\n"+
			"  - Check file permissions: ls -la %s\n"+
			"  - Check directory permissions: ls -la %s",
			absPath, absPath, parentDir)

	case containsIgnoreCase(errStr, "database is locked") || containsIgnoreCase(errStr, "SQLITE_BUSY"):
		return fmt.Sprintf("SQLite database at %s is locked by another process.\n"+
			"  Remediation:\n"+
			"  - Wait for a running seed or migrate command to finish\n"+
			"  - Raise storage.busy_timeout_ms if writers overlap routinely", absPath)

	case containsIgnoreCase(errStr, "corrupt") || containsIgnoreCase(errStr, "malformed") || containsIgnoreCase(errStr, "SQLITE_CORRUPT"):
		return fmt.Sprintf("SQLite database at %s appears to be corrupted.\n"+
			"  Remediation:\n"+
			"  - Check integrity: sqlite3 %s \"PRAGMA integrity_check;\"\n"+
			"  - The control store is derived data: delete it and re-run seed",
			absPath, absPath)

	case containsIgnoreCase(errStr, "invalid database path"):
		return fmt.Sprintf("Refusing database path %s.\n"+
			"  Remediation:\n"+
			"  - Use a plain file path without '..' segments via CROSSWALK_SQLITE_PATH", dbPath)

	case containsIgnoreCase(errStr, "read-only"):
		return fmt.Sprintf("SQLite database location is on a read-only file system: %s.\n"+
			"  Remediation:\n"+
			"  - Move database to a writable location via CROSSWALK_SQLITE_PATH", absPath)
	}

	return fmt.Sprintf("Failed to open SQLite database at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure the directory %s exists and is writable\n"+
		"  - Check disk space and permissions", absPath, err, parentDir)
}

// containsIgnoreCase checks if a string contains a substring (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
