package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/config"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/log"
	"github.com/bosunhq/bosun/pkg/strategic"
	"github.com/bosunhq/bosun/pkg/types"
)

func init() {
	log.Setup(config.LoggingConfig{Level: "error", JSON: true})
}

func testEnvironment(t *testing.T) *environment.Environment {
	t.Helper()
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)

	worker := &types.Worker{
		ID:        types.NewWorkerID(types.AssetDF, 1),
		Asset:     types.AssetDF,
		Resources: []types.Resource{types.MtnMech},
		Availability: types.Availability{
			Start:  time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
			Finish: time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC),
		},
		Break:    types.TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour},
		OffShift: types.TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour},
		Toolbox:  types.TimeInterval{Start: 7 * time.Hour, End: 8 * time.Hour},
	}

	wo := &types.WorkOrder{
		Number:       2400471691,
		MainResource: types.MtnMech,
		Operations: map[types.ActivityNumber]*types.Operation{
			10: {Activity: 10, Resource: types.MtnMech, WorkerCount: 1, Work: 12, OperatingTime: 6},
		},
		FunctionalLocation: types.FunctionalLocation{Raw: "DF-100", Asset: types.AssetDF},
		Type:               types.TypeWDF,
		Priority:           types.IntPriority(1),
		EarliestStart:      start,
		LatestFinish:       start.AddDate(0, 3, 0),
	}

	env, err := environment.NewBuilder().
		Periods(13, start).
		Days(56, start).
		WorkOrder(wo).
		Worker(worker).
		StrategicCapacity(types.MtnMech, 300).
		TacticalCapacity(types.MtnMech, 30).
		Build()
	require.NoError(t, err)
	return env
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Scheduler.PersistInterval = 0
	return cfg
}

func TestOrchestratorEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	orch := New(cfg, testEnvironment(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, orch.Start(ctx))
	defer orch.Stop()

	assert.Equal(t, []types.Asset{types.AssetDF}, orch.Assets())
	assert.True(t, orch.Healthy(types.AssetDF))

	// Give the actors a few iterations.
	time.Sleep(300 * time.Millisecond)

	status, err := orch.StrategicStatus(ctx, types.AssetDF)
	require.NoError(t, err)
	assert.Equal(t, 1, status.WorkOrders)
	assert.Equal(t, 13, status.Periods)

	tacticalStatus, err := orch.TacticalStatus(ctx, types.AssetDF)
	require.NoError(t, err)
	assert.Equal(t, 1, tacticalStatus.Scheduled)

	operationalStatuses, err := orch.OperationalStatuses(ctx, types.AssetDF)
	require.NoError(t, err)
	require.Len(t, operationalStatuses, 1)

	// Every published snapshot holds the universal invariants: the
	// worker timelines tile their availability windows.
	snap, err := orch.Export(types.AssetDF)
	require.NoError(t, err)
	env := orch.Environment()
	for id, tl := range snap.Operational.Workers {
		worker := env.Workers[id]
		require.NotNil(t, worker)
		assert.NoError(t, tl.ValidateTiling(worker.Availability))
	}
}

func TestPinPropagatesToSnapshot(t *testing.T) {
	cfg := testConfig(t)
	orch := New(cfg, testEnvironment(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, orch.Start(ctx))
	defer orch.Stop()

	require.NoError(t, orch.PinWorkOrder(ctx, types.AssetDF, strategic.ScheduleRequest{
		WorkOrderNumber: 2400471691,
		PeriodID:        5,
	}))

	// The next published strategic snapshot honors the pin.
	require.Eventually(t, func() bool {
		snap, err := orch.Export(types.AssetDF)
		if err != nil {
			return false
		}
		period, ok := snap.Strategic.ScheduledPeriod(2400471691)
		return ok && period != nil && period.ID == 5
	}, 3*time.Second, 20*time.Millisecond)
}

func TestCreateAndDeleteSupervisor(t *testing.T) {
	cfg := testConfig(t)
	orch := New(cfg, testEnvironment(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, orch.Start(ctx))
	defer orch.Stop()

	require.NoError(t, orch.CreateSupervisor(types.AssetDF, "SUP-DF-2"))
	assert.Error(t, orch.CreateSupervisor(types.AssetDF, "SUP-DF-2"))

	require.NoError(t, orch.DeleteSupervisor(types.AssetDF, "SUP-DF-2"))
	assert.Error(t, orch.DeleteSupervisor(types.AssetDF, "SUP-DF-2"))
}

func TestToggleUserStatusPublishesStateLink(t *testing.T) {
	cfg := testConfig(t)
	orch := New(cfg, testEnvironment(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, orch.Start(ctx))
	defer orch.Stop()

	on := true
	require.NoError(t, orch.ToggleUserStatus(2400471691, UserStatusToggle{AWSC: &on}))

	wo, err := orch.Environment().GetWorkOrder(2400471691)
	require.NoError(t, err)
	assert.True(t, wo.UserStatus.AWSC)

	// Unknown work orders are input errors.
	assert.Error(t, orch.ToggleUserStatus(999, UserStatusToggle{AWSC: &on}))
}
