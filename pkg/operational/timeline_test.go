package operational

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

// testWorker is the single-worker fixture: a clean two-week offshore
// rotation with toolbox talk 07:00-08:00, break 11:00-12:00 and
// off-shift 19:00-07:00.
func testWorker(availStart, availFinish time.Time) *types.Worker {
	return &types.Worker{
		ID:           types.NewWorkerID(types.AssetDF, 1),
		Asset:        types.AssetDF,
		Resources:    []types.Resource{types.MtnMech},
		Availability: types.Availability{Start: availStart, Finish: availFinish},
		Break:        types.TimeInterval{Start: 11 * time.Hour, End: 12 * time.Hour},
		OffShift:     types.TimeInterval{Start: 19 * time.Hour, End: 7 * time.Hour},
		Toolbox:      types.TimeInterval{Start: 7 * time.Hour, End: 8 * time.Hour},
	}
}

func testEnvironment(t *testing.T, worker *types.Worker, workOrders ...*types.WorkOrder) *environment.Environment {
	t.Helper()
	b := environment.NewBuilder().
		Periods(13, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)).
		Days(56, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)).
		Worker(worker)
	for _, wo := range workOrders {
		b.WorkOrder(wo)
	}
	env, err := b.Build()
	require.NoError(t, err)
	return env
}

func simpleWorkOrder(number types.WorkOrderNumber, activity types.ActivityNumber, workHours float64) *types.WorkOrder {
	return &types.WorkOrder{
		Number:       number,
		MainResource: types.MtnMech,
		Operations: map[types.ActivityNumber]*types.Operation{
			activity: {Activity: activity, Resource: types.MtnMech, WorkerCount: 1, Work: workHours, OperatingTime: 6},
		},
		FunctionalLocation: types.FunctionalLocation{Raw: "DF-100", Asset: types.AssetDF},
		Type:               types.TypeWDF,
		Priority:           types.IntPriority(1),
		EarliestStart:      time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		LatestFinish:       time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func engineFor(t *testing.T, worker *types.Worker, workOrders ...*types.WorkOrder) (*Engine, *Parameters) {
	t.Helper()
	env := testEnvironment(t, worker, workOrders...)
	params, err := BuildParameters(env, worker.ID)
	require.NoError(t, err)
	return NewEngine(params), params
}

func TestNextEventOrdering(t *testing.T) {
	worker := testWorker(
		time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC))
	engine, _ := engineFor(t, worker)

	// 06:00: toolbox at 07:00 is the nearest upcoming event.
	delta, next, err := engine.NextEvent(time.Date(2024, 5, 16, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, delta)
	assert.Equal(t, solution.EventToolbox, next.kind)

	// 08:00: the break at 11:00 comes before the off-shift.
	delta, next, err = engine.NextEvent(time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, delta)
	assert.Equal(t, solution.EventBreak, next.kind)

	// 12:00: break and toolbox have passed for the day; off-shift remains.
	delta, next, err = engine.NextEvent(time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 7*time.Hour, delta)
	assert.Equal(t, solution.EventOffShift, next.kind)
}

func TestAdvancePastEventWrapsMidnight(t *testing.T) {
	worker := testWorker(
		time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC))
	engine, _ := engineFor(t, worker)

	// 21:00 lies inside the off-shift; its end is tomorrow 07:00, which
	// rolls straight into the toolbox talk ending 08:00.
	open, err := engine.AdvancePastEvent(time.Date(2024, 5, 16, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC), open)

	// An open moment is returned untouched.
	open, err = engine.AdvancePastEvent(time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC), open)
}

func TestPlaceWrenchSplitsAroundBreak(t *testing.T) {
	worker := testWorker(
		time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC))
	engine, _ := engineFor(t, worker)
	woa := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}

	// Four hours starting 09:00: two before the break, the break itself,
	// two after.
	assignments, err := engine.PlaceWrench(woa, 4*time.Hour, time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, assignments, 3)

	assert.Equal(t, solution.EventWrenchTime, assignments[0].Event.Kind)
	assert.Equal(t, time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC), assignments[0].Start)
	assert.Equal(t, time.Date(2024, 5, 16, 11, 0, 0, 0, time.UTC), assignments[0].Finish)

	assert.Equal(t, solution.EventBreak, assignments[1].Event.Kind)
	assert.Equal(t, time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC), assignments[1].Finish)

	assert.Equal(t, solution.EventWrenchTime, assignments[2].Event.Kind)
	assert.Equal(t, time.Date(2024, 5, 16, 14, 0, 0, 0, time.UTC), assignments[2].Finish)

	// Every emit keeps the duration invariant.
	for _, a := range assignments {
		assert.Equal(t, a.Finish.Sub(a.Start), a.Event.Duration())
	}
}

func TestFillClipsLeadingBreakToAvailability(t *testing.T) {
	// The worker becomes available mid-break; the leading break event is
	// clipped to the availability start.
	worker := testWorker(
		time.Date(2024, 5, 16, 11, 30, 0, 0, time.UTC),
		time.Date(2024, 5, 17, 15, 0, 0, 0, time.UTC))
	engine, params := engineFor(t, worker)

	tl := solution.NewWorkerTimeline(params.Availability)
	filler, err := engine.Fill(tl)
	require.NoError(t, err)
	require.NotEmpty(t, filler)

	first := filler[0]
	assert.Equal(t, solution.EventBreak, first.Event.Kind)
	assert.Equal(t, params.Availability.Start, first.Start)
	assert.Equal(t, time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC), first.Finish)
	assert.Equal(t, 30*time.Minute, first.Event.Duration())

	tl.Filler = filler
	assert.NoError(t, tl.ValidateTiling(params.Availability))
}

func TestFillTilesCleanShift(t *testing.T) {
	worker := testWorker(
		time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC))
	engine, params := engineFor(t, worker)

	tl := solution.NewWorkerTimeline(params.Availability)
	filler, err := engine.Fill(tl)
	require.NoError(t, err)
	tl.Filler = filler

	require.NoError(t, tl.ValidateTiling(params.Availability))

	// The first day opens with the toolbox talk.
	assert.Equal(t, solution.EventToolbox, filler[0].Event.Kind)
	assert.Equal(t, params.Availability.Start, filler[0].Start)

	// The last event is clipped to the availability finish.
	last := filler[len(filler)-1]
	assert.Equal(t, params.Availability.Finish, last.Finish)
}
