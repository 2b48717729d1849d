package solution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/types"
)

func testAvailability() types.Availability {
	return types.Availability{
		Start:  time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
		Finish: time.Date(2024, 5, 30, 15, 0, 0, 0, time.UTC),
	}
}

func TestNewAssignmentValidatesDuration(t *testing.T) {
	start := time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC)
	finish := start.Add(2 * time.Hour)

	event := SpanEvent(EventWrenchTime, start, finish)
	a, err := NewAssignment(event, start, finish)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, a.Event.Duration())

	// A span that disagrees with the event interval is rejected.
	_, err = NewAssignment(event, start, start.Add(3*time.Hour))
	assert.Error(t, err)

	// Zero-length assignments are rejected.
	_, err = NewAssignment(event, start, start)
	assert.Error(t, err)
}

func TestWorkerTimelineSentinels(t *testing.T) {
	tl := NewWorkerTimeline(testAvailability())

	require.Len(t, tl.Scheduled, 2)
	assert.True(t, tl.Scheduled[0].WOA.WorkOrderNumber.IsDummy())
	assert.True(t, tl.Scheduled[1].WOA.WorkOrderNumber.IsDummy())
	assert.Equal(t, EventUnavailable, tl.Scheduled[0].Assignments[0].Event.Kind)

	// Sentinels refuse removal.
	err := tl.Remove(tl.Scheduled[0].WOA)
	assert.Error(t, err)
}

func wrenchBlock(t *testing.T, woa types.WorkOrderActivity, start time.Time, d time.Duration) *ScheduledActivity {
	t.Helper()
	event := SpanEvent(EventWrenchTime, start, start.Add(d))
	event.Activity = woa
	a, err := NewAssignment(event, start, start.Add(d))
	require.NoError(t, err)
	return &ScheduledActivity{WOA: woa, Assignments: []Assignment{a}}
}

func TestWorkerTimelineContainingOrNext(t *testing.T) {
	availability := testAvailability()
	tl := NewWorkerTimeline(availability)

	woa := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}
	start := time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC)
	tl.TryInsert(wrenchBlock(t, woa, start, 2*time.Hour))

	kind, sa := tl.ContainingOrNext(start.Add(30 * time.Minute))
	assert.Equal(t, ContainInside, kind)
	assert.Equal(t, woa, sa.WOA)

	kind, sa = tl.ContainingOrNext(availability.Start)
	assert.Equal(t, ContainNext, kind)
	assert.Equal(t, woa, sa.WOA)

	kind, _ = tl.ContainingOrNext(start.Add(3 * time.Hour))
	assert.Equal(t, ContainNone, kind)
}

func TestWorkerTimelineOrderedInsert(t *testing.T) {
	tl := NewWorkerTimeline(testAvailability())

	later := types.WorkOrderActivity{WorkOrderNumber: 2, ActivityNumber: 10}
	earlier := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}
	tl.TryInsert(wrenchBlock(t, later, time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC), time.Hour))
	tl.TryInsert(wrenchBlock(t, earlier, time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC), time.Hour))

	require.Len(t, tl.Scheduled, 4)
	assert.Equal(t, earlier, tl.Scheduled[1].WOA)
	assert.Equal(t, later, tl.Scheduled[2].WOA)
}

func TestValidateTilingDetectsGapsAndOverlap(t *testing.T) {
	availability := types.Availability{
		Start:  time.Date(2024, 5, 16, 7, 0, 0, 0, time.UTC),
		Finish: time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC),
	}
	tl := NewWorkerTimeline(availability)

	full, err := NewAssignment(
		SpanEvent(EventNonProductive, availability.Start, availability.Finish),
		availability.Start, availability.Finish)
	require.NoError(t, err)
	tl.Filler = []Assignment{full}
	assert.NoError(t, tl.ValidateTiling(availability))

	// A gap at the front violates the tiling.
	short, err := NewAssignment(
		SpanEvent(EventNonProductive, availability.Start.Add(30*time.Minute), availability.Finish),
		availability.Start.Add(30*time.Minute), availability.Finish)
	require.NoError(t, err)
	tl.Filler = []Assignment{short}
	assert.Error(t, tl.ValidateTiling(availability))

	// Escaping the window with any event other than unavailable violates
	// the tiling.
	escape, err := NewAssignment(
		SpanEvent(EventNonProductive, availability.Start, availability.Finish.Add(time.Hour)),
		availability.Start, availability.Finish.Add(time.Hour))
	require.NoError(t, err)
	tl.Filler = []Assignment{escape}
	assert.Error(t, tl.ValidateTiling(availability))
}

func TestWorkerTimelineCloneIsDeep(t *testing.T) {
	tl := NewWorkerTimeline(testAvailability())
	woa := types.WorkOrderActivity{WorkOrderNumber: 1, ActivityNumber: 10}
	tl.TryInsert(wrenchBlock(t, woa, time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC), time.Hour))

	clone := tl.Clone()
	require.NoError(t, clone.Remove(woa))

	_, found := tl.Find(woa)
	assert.True(t, found)
}
