package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"crosswalk/metrics"
	"crosswalk/search"

	"go.uber.org/zap"
	sqlitedrv "modernc.org/sqlite"
)

const (
	// DefaultReadPoolSize is the read pool size used when Options leaves it unset
	DefaultReadPoolSize = 10
	// DefaultBusyTimeoutMS is the busy timeout used when Options leaves it unset
	DefaultBusyTimeoutMS = 5000
)

// Options tunes the SQLite connection pools
type Options struct {
	ReadPoolSize  int
	BusyTimeoutMS int
}

func (o Options) withDefaults() Options {
	if o.ReadPoolSize <= 0 {
		o.ReadPoolSize = DefaultReadPoolSize
	}
	if o.BusyTimeoutMS <= 0 {
		o.BusyTimeoutMS = DefaultBusyTimeoutMS
	}
	return o
}

// SQLite holds the control store connections.
// PERFORMANCE: separate read and write pools let WAL serve concurrent readers
// while a single writer handles ingest.
type SQLite struct {
	WriteDB *sql.DB // MaxOpenConns=1, single WAL writer
	ReadDB  *sql.DB // query_only connections for all query operations
	Path    string
	Logger  *zap.SugaredLogger

	// previous counter values, Prometheus counters only take deltas
	prevWriteWaitCount int64
	prevReadWaitCount  int64
}

var (
	registerFuncsOnce sync.Once
	registerFuncsErr  error
)

// registerFunctions installs the scalar functions queries rely on. The driver
// keeps them process-wide and applies them to every new connection.
func registerFunctions() error {
	registerFuncsOnce.Do(func() {
		registerFuncsErr = sqlitedrv.RegisterDeterministicScalarFunction(search.FoldFunction, 1, foldSQL)
	})
	return registerFuncsErr
}

// foldSQL is search.Fold as a SQL function; NULL stays NULL
func foldSQL(_ *sqlitedrv.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return search.Fold(v), nil
	case []byte:
		return search.Fold(string(v)), nil
	default:
		return v, nil
	}
}

// buildDSN encodes per-connection pragmas in the DSN so every pooled
// connection gets them, not only the one that happened to run an Exec.
func buildDSN(dbPath string, pragmas ...string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return dbPath + "?" + q.Encode()
}

// NewSQLite opens the store at dbPath, applies pending migrations and
// returns a handle with separate read and write pools
func NewSQLite(dbPath string, opts Options, logger *zap.SugaredLogger) (*SQLite, error) {
	// SECURITY: reject traversal and device paths before touching the filesystem
	if err := validateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	opts = opts.withDefaults()
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("failed to register SQL functions: %w", err)
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	busy := fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeoutMS)

	// === WRITE CONNECTION POOL ===
	writeDB, err := sql.Open("sqlite", buildDSN(dbPath, busy, "foreign_keys(1)", "journal_mode(WAL)"))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0)
	writeDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := verifyWritePool(writeDB, logger); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to configure write connection: %w", err)
	}

	s := &SQLite{
		WriteDB: writeDB,
		Path:    dbPath,
		Logger:  logger,
	}

	// Schema must exist before the read pool is opened query_only
	if err := s.RunMigrations(); err != nil {
		_ = writeDB.Close()
		return nil, err
	}

	// === READ CONNECTION POOL ===
	readDB, err := sql.Open("sqlite", buildDSN(dbPath, busy, "foreign_keys(1)", "query_only(1)"))
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read database: %w", err)
	}
	readDB.SetMaxOpenConns(opts.ReadPoolSize)
	readDB.SetMaxIdleConns((opts.ReadPoolSize + 1) / 2)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	readDB.SetConnMaxIdleTime(10 * time.Minute)

	var queryOnly int
	if err := readDB.QueryRow("PRAGMA query_only").Scan(&queryOnly); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to verify query_only mode: %w", err)
	}
	if queryOnly != 1 {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("query_only mode not enabled on read pool (got: %d, expected: 1)", queryOnly)
	}
	s.ReadDB = readDB

	logger.Infof("SQLite control store opened at %s (read pool: %d connections)", dbPath, opts.ReadPoolSize)
	return s, nil
}

func verifyWritePool(db *sql.DB, logger *zap.SugaredLogger) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite disables foreign keys by default
	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys not enabled (got: %d, expected: 1)", fkEnabled)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got: %s, expected: wal)", journalMode)
	}
	logger.Debugf("SQLite write pool: foreign keys on, journal mode %s", journalMode)
	return nil
}

// WithTransaction executes fn within a write transaction, rolling back on error or panic
func (s *SQLite) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.WriteDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction (original error: %w, rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes both connection pools
func (s *SQLite) Close() error {
	var writeErr, readErr error
	if s.WriteDB != nil {
		writeErr = s.WriteDB.Close()
	}
	if s.ReadDB != nil {
		readErr = s.ReadDB.Close()
	}

	if writeErr != nil {
		return fmt.Errorf("failed to close write pool: %w", writeErr)
	}
	if readErr != nil {
		return fmt.Errorf("failed to close read pool: %w", readErr)
	}
	return nil
}

// HealthCheck verifies both pools answer
func (s *SQLite) HealthCheck(ctx context.Context) error {
	if err := s.WriteDB.PingContext(ctx); err != nil {
		return fmt.Errorf("write pool: %w", err)
	}
	if err := s.ReadDB.PingContext(ctx); err != nil {
		return fmt.Errorf("read pool: %w", err)
	}
	return nil
}

// ConnectionPoolStats returns statistics about the read and write connection pools
type ConnectionPoolStats struct {
	WritePool PoolStats `json:"write_pool"`
	ReadPool  PoolStats `json:"read_pool"`
}

type PoolStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

func newPoolStats(stats sql.DBStats) PoolStats {
	return PoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}
}

// GetConnectionPoolStats returns current connection pool statistics
func (s *SQLite) GetConnectionPoolStats() ConnectionPoolStats {
	return ConnectionPoolStats{
		WritePool: newPoolStats(s.WriteDB.Stats()),
		ReadPool:  newPoolStats(s.ReadDB.Stats()),
	}
}

// StartMetricsCollection periodically publishes pool stats until ctx is done.
// The returned channel is closed when the collector goroutine exits.
func (s *SQLite) StartMetricsCollection(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	s.updatePoolMetrics()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.Logger.Debug("SQLite metrics collection stopped")
				return
			case <-ticker.C:
				s.updatePoolMetrics()
			}
		}
	}()

	s.Logger.Debugf("SQLite metrics collection started (interval: %v)", interval)
	return done
}

func (s *SQLite) updatePoolMetrics() {
	s.updatePoolMetricsForType("write", s.WriteDB.Stats(), &s.prevWriteWaitCount)
	s.updatePoolMetricsForType("read", s.ReadDB.Stats(), &s.prevReadWaitCount)
}

// updatePoolMetricsForType publishes gauges and adds counter deltas for one pool
func (s *SQLite) updatePoolMetricsForType(poolType string, stats sql.DBStats, prevWaitCount *int64) {
	metrics.SQLitePoolOpenConnections.WithLabelValues(poolType).Set(float64(stats.OpenConnections))
	metrics.SQLitePoolInUse.WithLabelValues(poolType).Set(float64(stats.InUse))
	metrics.SQLitePoolIdle.WithLabelValues(poolType).Set(float64(stats.Idle))

	if delta := stats.WaitCount - *prevWaitCount; delta > 0 {
		metrics.SQLitePoolWaitCount.WithLabelValues(poolType).Add(float64(delta))
		*prevWaitCount = stats.WaitCount
	}
}

// validateDatabasePath rejects paths that could escape into unintended files.
// Absolute paths are allowed; operators point the store wherever the dataset lives.
//
// Blocked:
// - "../../etc/passwd" - directory traversal
// - "data\x00hidden.db" - null byte injection
// - "CON", "nul.db" - Windows reserved device names
func validateDatabasePath(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if len(dbPath) > 512 {
		return fmt.Errorf("database path exceeds maximum length of 512 characters")
	}

	if strings.Contains(dbPath, "\x00") {
		return fmt.Errorf("null bytes not allowed in path")
	}

	for _, part := range strings.FieldsFunc(dbPath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("path traversal not allowed (..): %s", dbPath)
		}
	}

	if strings.ContainsAny(dbPath, "?#") {
		return fmt.Errorf("query characters not allowed in path: %s", dbPath)
	}

	base := filepath.Base(dbPath)
	reserved := []string{"CON", "PRN", "AUX", "NUL", "COM1", "COM2", "COM3", "COM4",
		"COM5", "COM6", "COM7", "COM8", "COM9", "LPT1", "LPT2", "LPT3", "LPT4",
		"LPT5", "LPT6", "LPT7", "LPT8", "LPT9"}

	baseUpper := strings.ToUpper(base)
	for _, r := range reserved {
		if baseUpper == r || strings.HasPrefix(baseUpper, r+".") {
			return fmt.Errorf("reserved name not allowed: %s", base)
		}
	}

	return nil
}
