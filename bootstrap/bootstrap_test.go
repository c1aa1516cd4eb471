package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"crosswalk/config"
	"crosswalk/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataPaths: config.DataPaths{
			DataDir:    dir,
			SQLitePath: filepath.Join(dir, "store", "crosswalk.db"),
		},
		Log: config.LogConfig{Level: "debug", Format: "console"},
		API: config.APIConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Storage: config.StorageConfig{
			ReadPoolSize:    2,
			BusyTimeoutMS:   1000,
			MetricsInterval: 10 * time.Millisecond,
		},
	}
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"console info", "info", "console", false},
		{"json debug", "debug", "json", false},
		{"default format", "warn", "", false},
		{"bad level", "verbose", "console", true},
		{"bad format", "info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, sugar, err := InitLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
			assert.NotNil(t, sugar)
		})
	}
}

func TestInitStorage_CreatesDirectory(t *testing.T) {
	cfg := testConfig(t)
	sugar := zaptest.NewLogger(t).Sugar()

	components, err := InitStorage(cfg, sugar)
	require.NoError(t, err)
	defer components.Close()

	assert.FileExists(t, cfg.GetSQLitePath())
	assert.NoError(t, components.SQLite.HealthCheck(context.Background()))
}

func TestInitStorage_SeedThenQuery(t *testing.T) {
	cfg := testConfig(t)
	sugar := zaptest.NewLogger(t).Sugar()
	ctx := context.Background()

	components, err := InitStorage(cfg, sugar)
	require.NoError(t, err)
	defer components.Close()

	_, err = components.NewLoader(sugar).LoadFile(ctx, filepath.Join("..", "ingest", "testdata", "sample.yaml"))
	require.NoError(t, err)

	d, err := NewDispatcher(components, sugar)
	require.NoError(t, err)

	resp, err := d.Call(ctx, dispatch.ToolListStandards, nil)
	require.NoError(t, err)
	assert.True(t, resp.Found)

	resp, err = d.Call(ctx, dispatch.ToolGetTechnique, []byte(`{"technique_id": "T0859", "map_to_standards": ["iec62443-3-3"]}`))
	require.NoError(t, err)
	assert.True(t, resp.Found)
}

func TestApp_Lifecycle(t *testing.T) {
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	app, err := NewAppWithConfig(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, app.Dispatcher)
	require.NotNil(t, app.APIServer)

	require.NoError(t, app.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)

	app.Shutdown()
	app.Shutdown()

	assert.Error(t, app.Storage.SQLite.HealthCheck(context.Background()), "store is closed after shutdown")
}

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil error", nil, ""},
		{"permission", errors.New("open: permission denied"), "Permission denied"},
		{"locked", errors.New("database is locked (SQLITE_BUSY)"), "locked by another process"},
		{"corrupt", errors.New("database disk image is malformed"), "corrupted"},
		{"traversal", errors.New("invalid database path: contains .."), "Refusing database path"},
		{"read only", errors.New("attempt to write a read-only database"), "read-only"},
		{"other", errors.New("boom"), "Failed to open SQLite database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ClassifySQLiteError(tt.err, "/data/crosswalk.db")
			if tt.contains == "" {
				assert.Empty(t, msg)
				return
			}
			assert.Contains(t, msg, tt.contains)
		})
	}
}

func TestContainsIgnoreCase(t *testing.T) {
	assert.True(t, containsIgnoreCase("Connection Refused", "connection refused"))
	assert.True(t, containsIgnoreCase("SQLITE_BUSY", "sqlite_busy"))
	assert.True(t, containsIgnoreCase("abc", ""))
	assert.False(t, containsIgnoreCase("", "abc"))
}
