package storage

import (
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

// Store defines the interface for persisted scheduler state: the shared
// solution tuple per asset, written on a timer and read back on startup.
type Store interface {
	// Snapshots
	SaveSnapshot(asset types.Asset, snap *solution.Snapshot) error
	LoadSnapshot(asset types.Asset) (*solution.Snapshot, error)
	ListAssets() ([]types.Asset, error)
	DeleteSnapshot(asset types.Asset) error

	// Utility
	Close() error
}
