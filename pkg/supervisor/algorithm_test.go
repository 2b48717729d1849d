package supervisor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/alns"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

func testWeights() *types.WeightConfig {
	intMap := map[string]uint64{
		"0": 1, "1": 9, "2": 8, "3": 7, "4": 6,
		"5": 5, "6": 4, "7": 3, "8": 2,
	}
	return &types.WeightConfig{
		OrderTypeWeights: map[string]uint64{"WDF": 10, "WGN": 8, "WPM": 6, "Other": 1},
		StatusWeights:    map[string]uint64{"AWSC": 100, "SECE": 80, "PCNF_NMAT_SMAT": 50},
		WdfPriorityMap:   intMap,
		WgnPriorityMap:   intMap,
		WpmPriorityMap:   map[string]uint64{"A": 8, "B": 4, "C": 2, "D": 1},
	}
}

func testWorker(n int, resources ...types.Resource) *types.Worker {
	return &types.Worker{
		ID:        types.NewWorkerID(types.AssetDF, n),
		Asset:     types.AssetDF,
		Resources: resources,
		Availability: types.Availability{
			Start:  time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
			Finish: time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC),
		},
		Break:    types.TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour},
		OffShift: types.TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour},
		Toolbox:  types.TimeInterval{Start: 7 * time.Hour, End: 8 * time.Hour},
	}
}

func mechWorkOrder(number types.WorkOrderNumber, workerCount int) *types.WorkOrder {
	return &types.WorkOrder{
		Number:       number,
		MainResource: types.MtnMech,
		Operations: map[types.ActivityNumber]*types.Operation{
			10: {Activity: 10, Resource: types.MtnMech, WorkerCount: workerCount, Work: 12, OperatingTime: 6},
		},
		FunctionalLocation: types.FunctionalLocation{Raw: "DF-100", Asset: types.AssetDF},
		Type:               types.TypeWDF,
		Priority:           types.IntPriority(1),
		EarliestStart:      time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		LatestFinish:       time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testSetup(t *testing.T, workOrder *types.WorkOrder, workers ...*types.Worker) (*Algorithm, *solution.Snapshot) {
	t.Helper()
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	b := environment.NewBuilder().
		Periods(13, start).
		Days(56, start).
		WorkOrder(workOrder)
	for _, w := range workers {
		b.Worker(w)
	}
	env, err := b.Build()
	require.NoError(t, err)

	alg := New("SUP-DF-1", types.AssetDF, environment.NewAtomicSource(env), testWeights(), Options{NumberOfRemoved: 2})

	// The work order has a tactical day placement.
	snap := solution.NewSnapshot()
	snap.Tactical.WorkOrders[workOrder.Number] = &solution.TacticalWorkOrder{
		State: solution.TacticalScheduled,
		Activities: map[types.ActivityNumber][]solution.DayLoad{
			10: {{Day: types.Day{Index: 3, Date: start.Add(3 * 24 * time.Hour)}, Hours: 6}},
		},
		Resources: map[types.ActivityNumber]types.Resource{10: types.MtnMech},
	}
	return alg, snap
}

// The best-fitting workers are assigned up to the activity's headcount,
// the rest assess.
func TestAssignUpToHeadcount(t *testing.T) {
	wo := mechWorkOrder(1, 1)
	mech1 := testWorker(1, types.MtnMech)
	mech2 := testWorker(2, types.MtnMech)
	alg, snap := testSetup(t, wo, mech1, mech2)

	woa := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}

	// One worker already carries a placement with a tight margin; it
	// should win the assignment.
	tl := solution.NewWorkerTimeline(mech2.Availability)
	tl.Scheduled[0].MarginalFitness = solution.MarginalFitness{}
	snap.Operational.Workers[mech2.ID] = tl
	sa := &solution.ScheduledActivity{
		WOA: woa,
		Assignments: []solution.Assignment{mustAssignment(t,
			time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC), 2*time.Hour, woa)},
		MarginalFitness: solution.MarginalFitness{Scheduled: true, Seconds: 600},
	}
	tl.TryInsert(sa)

	require.NoError(t, alg.Schedule(snap))

	assert.Equal(t, solution.DelegateAssign, alg.delegations[mech2.ID][woa])
	assert.Equal(t, solution.DelegateAssess, alg.delegations[mech1.ID][woa])
}

func mustAssignment(t *testing.T, start time.Time, d time.Duration, woa types.WorkOrderActivity) solution.Assignment {
	t.Helper()
	event := solution.SpanEvent(solution.EventWrenchTime, start, start.Add(d))
	event.Activity = woa
	a, err := solution.NewAssignment(event, start, start.Add(d))
	require.NoError(t, err)
	return a
}

// A stale pairing on the wrong craft is dropped, and the drop reaches
// the shared solution on publish.
func TestCraftMismatchDrops(t *testing.T) {
	wo := mechWorkOrder(1, 1)
	elec := testWorker(1, types.MtnElec)
	mech := testWorker(2, types.MtnMech)
	alg, snap := testSetup(t, wo, elec, mech)

	woa := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}
	alg.set(elec.ID, woa, solution.DelegateAssess)

	require.NoError(t, alg.Schedule(snap))

	assert.Equal(t, solution.DelegateDrop, alg.delegations[elec.ID][woa])
	assert.Equal(t, solution.DelegateAssign, alg.delegations[mech.ID][woa])

	store := solution.NewStore(snap)
	alg.Publish(store)
	delegates := store.Load().Supervisor.DelegatesFor(elec.ID)
	assert.True(t, delegates[woa].IsDrop())
}

// Pairings whose activity left the tactical plan disappear on
// incorporate.
func TestIncorporateDropsUntacticalPairs(t *testing.T) {
	wo := mechWorkOrder(1, 1)
	mech := testWorker(1, types.MtnMech)
	alg, snap := testSetup(t, wo, mech)

	woa := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}
	require.NoError(t, alg.Schedule(snap))
	require.Equal(t, solution.DelegateAssign, alg.delegations[mech.ID][woa])

	snap.Tactical.WorkOrders[1].State = solution.TacticalStrategicOnly
	require.NoError(t, alg.IncorporateSystemSolution(snap))

	_, exists := alg.delegations[mech.ID][woa]
	assert.False(t, exists)
}

// Destroy removes pairs; repair restores a full delegation set.
func TestDestroyRepairConverges(t *testing.T) {
	wo := mechWorkOrder(1, 2)
	mech1 := testWorker(1, types.MtnMech)
	mech2 := testWorker(2, types.MtnMech)
	alg, snap := testSetup(t, wo, mech1, mech2)

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 10; i++ {
		require.NoError(t, alg.Unschedule(rng))
		require.NoError(t, alg.Schedule(snap))
	}

	woa := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}
	assert.Equal(t, solution.DelegateAssign, alg.delegations[mech1.ID][woa])
	assert.Equal(t, solution.DelegateAssign, alg.delegations[mech2.ID][woa])

	resp := alg.HandleRequest(alns.Request{Kind: "status"})
	require.NoError(t, resp.Err)
	status := resp.Payload.(StatusResponse)
	assert.Equal(t, 2, status.Assigned)
}
