package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"repologic/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaVersion = []byte("schema_version")

// SchemaInfo stores the schema version of a database.
type SchemaInfo struct {
	Version int `json:"version"`
}

// migrations[v] upgrades a database from version v to v+1. Each step runs in
// the same transaction that stamps the new version.
var migrations = []func(tx *bbolt.Tx) error{
	// v0 -> v1: lay out the repos and meta buckets.
	func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRepos, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	},
}

// GetSchemaInfo retrieves the current schema info from the database. A
// database without a meta bucket reports version 0.
func (s *BoltChunkStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return nil
		}
		data := meta.Get(keySchemaVersion)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &info.Version); err != nil {
			return fmt.Errorf("schema version: %w: %v", domain.ErrCorruption, err)
		}
		return nil
	})
	return &info, err
}

func (s *BoltChunkStore) setSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putSchemaVersion(tx, info.Version)
	})
}

func putSchemaVersion(tx *bbolt.Tx, version int) error {
	meta, err := tx.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	data, err := json.Marshal(version)
	if err != nil {
		return err
	}
	return meta.Put(keySchemaVersion, data)
}

// Migrate brings the database to CurrentSchemaVersion. A database written
// by a newer version is reported as corrupt for this binary.
func (s *BoltChunkStore) Migrate() error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("%w: database created by newer version (v%d > v%d)", domain.ErrCorruption, info.Version, CurrentSchemaVersion)
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}
	return nil
}

// runMigration applies the step from version from to from+1 and records
// the new version atomically with it.
func (s *BoltChunkStore) runMigration(from int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := migrations[from](tx); err != nil {
			return err
		}
		return putSchemaVersion(tx, from+1)
	})
}
