package bootstrap

import (
	"fmt"

	"crosswalk/config"
	"crosswalk/ingest"
	"crosswalk/storage"

	"go.uber.org/zap"
)

// StorageComponents holds the SQLite handle and the per-entity stores built on it.
type StorageComponents struct {
	SQLite       *storage.SQLite
	Standards    *storage.SQLiteStandardStorage
	Requirements *storage.SQLiteRequirementStorage
	Mappings     *storage.SQLiteMappingStorage
	Zones        *storage.SQLiteZoneStorage
	Techniques   *storage.SQLiteTechniqueStorage
}

// InitStorage opens the control store, applying pending migrations, and
// builds the entity stores.
func InitStorage(cfg *config.Config, sugar *zap.SugaredLogger) (*StorageComponents, error) {
	if err := EnsureDataDirectory(cfg, sugar); err != nil {
		return nil, err
	}

	path := cfg.GetSQLitePath()
	sqlite, err := storage.NewSQLite(path, storage.Options{
		ReadPoolSize:  cfg.Storage.ReadPoolSize,
		BusyTimeoutMS: cfg.Storage.BusyTimeoutMS,
	}, sugar)
	if err != nil {
		sugar.Error(ClassifySQLiteError(err, path))
		return nil, fmt.Errorf("failed to open control store: %w", err)
	}

	return &StorageComponents{
		SQLite:       sqlite,
		Standards:    storage.NewSQLiteStandardStorage(sqlite, sugar),
		Requirements: storage.NewSQLiteRequirementStorage(sqlite, sugar),
		Mappings:     storage.NewSQLiteMappingStorage(sqlite, sugar),
		Zones:        storage.NewSQLiteZoneStorage(sqlite, sugar),
		Techniques:   storage.NewSQLiteTechniqueStorage(sqlite, sugar),
	}, nil
}

// NewLoader returns a dataset loader writing through the entity stores
func (s *StorageComponents) NewLoader(sugar *zap.SugaredLogger) *ingest.Loader {
	return ingest.NewLoader(ingest.Stores{
		Standards:    s.Standards,
		Requirements: s.Requirements,
		Mappings:     s.Mappings,
		Zones:        s.Zones,
		Techniques:   s.Techniques,
	}, sugar)
}

// Close closes the underlying SQLite handle
func (s *StorageComponents) Close() error {
	return s.SQLite.Close()
}
