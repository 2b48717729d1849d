package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// A named-but-missing config file is an error; the default search
	// path tolerates absence.
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8321", cfg.API.Addr)
	assert.Equal(t, 5*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 13, cfg.Scheduler.StrategicPeriods)
	assert.Equal(t, 56, cfg.Scheduler.TacticalDays)
	assert.Equal(t, "info", cfg.Logging.Level)

	// Weight maps arrive populated.
	assert.Equal(t, uint64(10), cfg.Weights.OrderTypeWeights["WDF"])
	assert.Equal(t, uint64(100), cfg.Weights.StatusWeights["AWSC"])
	assert.Equal(t, uint64(9), cfg.Weights.WdfPriorityMap["1"])
	assert.Equal(t, uint64(8), cfg.Weights.WpmPriorityMap["A"])

	// Material offsets keep unready material out of the near periods.
	assert.Equal(t, 0, cfg.Scheduler.MaterialOffsets.Nmat)
	assert.Equal(t, 3, cfg.Scheduler.MaterialOffsets.Wmat)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bosun.yaml")
	content := []byte(`
api:
  addr: ":9999"
scheduler:
  tactical_days: 28
  operating_time:
    MTN-MECH: 5.5
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.API.Addr)
	assert.Equal(t, 28, cfg.Scheduler.TacticalDays)
	assert.Equal(t, 5.5, cfg.Scheduler.OperatingTimeFor(types.MtnMech))

	// Unconfigured resources fall back to the default operating time.
	assert.Equal(t, 6.0, cfg.Scheduler.OperatingTimeFor(types.MtnElec))
}

func TestValidationRejectsBadLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bosun.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
