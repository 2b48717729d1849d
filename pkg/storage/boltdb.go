package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

var (
	// Bucket names
	bucketSnapshots = []byte("snapshots")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "bosun.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshots); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketSnapshots, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot upserts the asset's shared solution tuple.
func (s *BoltStore) SaveSnapshot(asset types.Asset, snap *solution.Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		return b.Put([]byte(asset), data)
	})
}

// LoadSnapshot reads the asset's persisted shared solution tuple.
func (s *BoltStore) LoadSnapshot(asset types.Asset) (*solution.Snapshot, error) {
	var snap solution.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		data := b.Get([]byte(asset))
		if data == nil {
			return fmt.Errorf("snapshot not found for asset: %s", asset)
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListAssets lists the assets with a persisted snapshot.
func (s *BoltStore) ListAssets() ([]types.Asset, error) {
	var assets []types.Asset
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		return b.ForEach(func(k, v []byte) error {
			assets = append(assets, types.Asset(k))
			return nil
		})
	})
	return assets, err
}

// DeleteSnapshot removes the asset's persisted snapshot.
func (s *BoltStore) DeleteSnapshot(asset types.Asset) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(asset))
	})
}
