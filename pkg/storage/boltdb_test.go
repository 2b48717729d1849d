package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

func testStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := testStore(t)

	snap := solution.NewSnapshot()
	period := types.Period{
		ID:    2,
		Start: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC),
	}
	snap.Strategic.Assignments[2400471691] = &period
	snap.Strategic.AddLoad(map[types.Resource]float64{types.MtnMech: 120}, 2, 1)
	snap.Strategic.Objective = 77

	require.NoError(t, store.SaveSnapshot(types.AssetDF, snap))

	loaded, err := store.LoadSnapshot(types.AssetDF)
	require.NoError(t, err)
	require.Contains(t, loaded.Strategic.Assignments, types.WorkOrderNumber(2400471691))
	assert.Equal(t, 2, loaded.Strategic.Assignments[2400471691].ID)
	assert.Equal(t, 120.0, loaded.Strategic.Loading(types.MtnMech, 2))
	assert.Equal(t, uint64(77), loaded.Strategic.Objective)
}

func TestLoadMissingSnapshot(t *testing.T) {
	store := testStore(t)

	_, err := store.LoadSnapshot(types.AssetHB)
	assert.Error(t, err)
}

func TestListAndDelete(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.SaveSnapshot(types.AssetDF, solution.NewSnapshot()))
	require.NoError(t, store.SaveSnapshot(types.AssetHB, solution.NewSnapshot()))

	assets, err := store.ListAssets()
	require.NoError(t, err)
	assert.Len(t, assets, 2)

	require.NoError(t, store.DeleteSnapshot(types.AssetDF))
	assets, err = store.ListAssets()
	require.NoError(t, err)
	assert.Equal(t, []types.Asset{types.AssetHB}, assets)
}
