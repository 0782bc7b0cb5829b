// Package worldindex persists scan results (worlds, regions, chunk presence) between CLI
// invocations so a rescan can report what changed without the caller re-walking every
// region file by hand. It is a cache of derived facts, never a source of truth: every
// rescan re-derives a world's rows from the actual region files and replaces them.
package worldindex

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is a handle to the SQLite-backed scan index.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the SQLite database at dbPath and brings its schema up
// to date via the registered migrations.
func Open(dbPath string, config ...DBConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("worldindex: opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("worldindex: getting database handle: %w", err)
	}
	if len(config) > 0 {
		cfg := config[0]
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("worldindex: migrating database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	m := gormigrate.New(s.db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202601010000_init",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&ScannedWorld{}, &ScannedRegion{}, &ScannedChunk{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&ScannedChunk{}, &ScannedRegion{}, &ScannedWorld{})
			},
		},
		{
			ID: "202601020000_region_world_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_scanned_regions_world_rxrz ON scanned_regions(world_id, rx, rz)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_scanned_regions_world_rxrz").Error
			},
		},
	})
	return m.Migrate()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertWorld records or refreshes a scanned world by its path, returning its ID.
func (s *Store) UpsertWorld(ctx context.Context, path, name string) (string, error) {
	var existing ScannedWorld
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&existing).Error
	switch {
	case err == nil:
		existing.Name = name
		existing.LastScanAt = time.Now().UTC()
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return "", fmt.Errorf("worldindex: updating world %s: %w", path, err)
		}
		return existing.ID, nil
	case err == gorm.ErrRecordNotFound:
		w := ScannedWorld{ID: uuid.New().String(), Path: path, Name: name, LastScanAt: time.Now().UTC()}
		if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
			return "", fmt.Errorf("worldindex: creating world %s: %w", path, err)
		}
		return w.ID, nil
	default:
		return "", fmt.Errorf("worldindex: looking up world %s: %w", path, err)
	}
}

// ReplaceRegions deletes all regions (and their chunks) previously recorded for worldID and
// inserts the freshly scanned set, so a rescan never leaves stale rows behind for region
// files that have since been deleted on disk.
func (s *Store) ReplaceRegions(ctx context.Context, worldID string, regions []ScannedRegion, chunksByRegionIdx [][]ScannedChunk) error {
	if len(regions) != len(chunksByRegionIdx) {
		return fmt.Errorf("worldindex: regions/chunks length mismatch (%d vs %d)", len(regions), len(chunksByRegionIdx))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldRegions []ScannedRegion
		if err := tx.Where("world_id = ?", worldID).Find(&oldRegions).Error; err != nil {
			return err
		}
		for _, old := range oldRegions {
			if err := tx.Where("region_id = ?", old.ID).Delete(&ScannedChunk{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("world_id = ?", worldID).Delete(&ScannedRegion{}).Error; err != nil {
			return err
		}

		for i, region := range regions {
			region.ID = uuid.New().String()
			region.WorldID = worldID
			if err := tx.Create(&region).Error; err != nil {
				return err
			}
			for _, chunk := range chunksByRegionIdx[i] {
				chunk.ID = uuid.New().String()
				chunk.RegionID = region.ID
				if err := tx.Create(&chunk).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ListWorlds returns every world recorded in the index, most recently scanned first.
func (s *Store) ListWorlds(ctx context.Context) ([]ScannedWorld, error) {
	var worlds []ScannedWorld
	err := s.db.WithContext(ctx).Order("last_scan_at DESC").Find(&worlds).Error
	return worlds, err
}

// RegionsForWorld returns every region recorded for worldID.
func (s *Store) RegionsForWorld(ctx context.Context, worldID string) ([]ScannedRegion, error) {
	var regions []ScannedRegion
	err := s.db.WithContext(ctx).Where("world_id = ?", worldID).Order("rx, rz").Find(&regions).Error
	return regions, err
}
