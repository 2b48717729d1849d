package solution

import (
	"fmt"
	"sort"
	"time"

	"github.com/bosunhq/bosun/pkg/types"
)

// EventKind classifies one minute-accurate event on a worker's timeline.
type EventKind string

const (
	EventWrenchTime    EventKind = "wrench-time"
	EventBreak         EventKind = "break"
	EventOffShift      EventKind = "off-shift"
	EventToolbox       EventKind = "toolbox"
	EventNonProductive EventKind = "non-productive"
	EventUnavailable   EventKind = "unavailable"
)

// Event is a timeline event: a kind plus the daily interval it spans.
// Wrench-time events additionally carry the activity they bill against.
type Event struct {
	Kind     EventKind              `json:"kind"`
	Interval types.TimeInterval     `json:"interval"`
	Activity types.WorkOrderActivity `json:"activity,omitempty"`
}

// Duration is the length the event must span on the timeline.
func (e Event) Duration() time.Duration {
	return e.Interval.Duration()
}

// IsWrenchTime reports whether the event bills against an activity.
func (e Event) IsWrenchTime() bool { return e.Kind == EventWrenchTime }

// Assignment anchors an event to absolute time.
type Assignment struct {
	Event  Event     `json:"event"`
	Start  time.Time `json:"start"`
	Finish time.Time `json:"finish"`
}

// NewAssignment validates that the event's interval duration matches the
// absolute span exactly before admitting the assignment.
func NewAssignment(event Event, start, finish time.Time) (Assignment, error) {
	if !start.Before(finish) {
		return Assignment{}, fmt.Errorf("assignment start %s not before finish %s", start, finish)
	}
	if span := finish.Sub(start); span != event.Duration() {
		return Assignment{}, fmt.Errorf("assignment span %s does not equal %s event duration %s",
			span, event.Kind, event.Duration())
	}
	return Assignment{Event: event, Start: start, Finish: finish}, nil
}

// SpanEvent builds an event of the given kind whose interval is derived
// from the absolute span, keeping the duration invariant by construction.
func SpanEvent(kind EventKind, start, finish time.Time) Event {
	return Event{
		Kind: kind,
		Interval: types.TimeInterval{
			Start: types.TimeOfDay(start),
			End:   types.TimeOfDay(finish),
		},
	}
}

// MarginalFitness is the non-productive time flanking an activity's
// wrench block. The supervisor reads it as a fitness proxy: a large
// margin means the placement wastes the worker's time.
type MarginalFitness struct {
	Scheduled bool  `json:"scheduled"`
	Seconds   int64 `json:"seconds"`
}

// ScheduledActivity is one activity's block of assignments on a worker's
// timeline.
type ScheduledActivity struct {
	WOA             types.WorkOrderActivity `json:"woa"`
	Assignments     []Assignment            `json:"assignments"`
	MarginalFitness MarginalFitness         `json:"marginal_fitness"`
}

// Start returns the first assignment's start.
func (sa *ScheduledActivity) Start() time.Time {
	return sa.Assignments[0].Start
}

// Finish returns the last assignment's finish.
func (sa *ScheduledActivity) Finish() time.Time {
	return sa.Assignments[len(sa.Assignments)-1].Finish
}

// ContainKind is the result of probing a timeline at a moment.
type ContainKind int

const (
	// ContainInside means the moment falls inside a scheduled activity.
	ContainInside ContainKind = iota
	// ContainNext means the moment falls before the returned activity.
	ContainNext
	// ContainNone means no scheduled activity lies at or after the moment.
	ContainNone
)

// WorkerTimeline is one worker's operational solution: the scheduled
// activities plus the filler events that make the timeline tile the
// availability window exactly. Scheduled is kept ordered by start and
// anchored by sentinel activities at work order number zero.
type WorkerTimeline struct {
	Scheduled []*ScheduledActivity `json:"scheduled"`
	Filler    []Assignment         `json:"filler"`
	Objective uint64               `json:"objective"`
}

// NewWorkerTimeline builds a timeline holding only the two sentinels:
// unavailable blocks immediately before and after the availability
// window. Sentinels keep the window arithmetic total and are never
// destroyed.
func NewWorkerTimeline(availability types.Availability) *WorkerTimeline {
	lead, _ := NewAssignment(
		SpanEvent(EventUnavailable, availability.Start.Add(-time.Hour), availability.Start),
		availability.Start.Add(-time.Hour), availability.Start)
	trail, _ := NewAssignment(
		SpanEvent(EventUnavailable, availability.Finish, availability.Finish.Add(time.Hour)),
		availability.Finish, availability.Finish.Add(time.Hour))
	return &WorkerTimeline{
		Scheduled: []*ScheduledActivity{
			{WOA: types.WorkOrderActivity{WorkOrderNumber: 0, ActivityNumber: 0}, Assignments: []Assignment{lead}},
			{WOA: types.WorkOrderActivity{WorkOrderNumber: 0, ActivityNumber: 1}, Assignments: []Assignment{trail}},
		},
	}
}

// Clone deep-copies the timeline.
func (wt *WorkerTimeline) Clone() *WorkerTimeline {
	clone := &WorkerTimeline{
		Scheduled: make([]*ScheduledActivity, len(wt.Scheduled)),
		Filler:    append([]Assignment(nil), wt.Filler...),
		Objective: wt.Objective,
	}
	for i, sa := range wt.Scheduled {
		copied := &ScheduledActivity{
			WOA:             sa.WOA,
			Assignments:     append([]Assignment(nil), sa.Assignments...),
			MarginalFitness: sa.MarginalFitness,
		}
		clone.Scheduled[i] = copied
	}
	return clone
}

// TryInsert places a scheduled activity keeping Scheduled ordered by
// start time.
func (wt *WorkerTimeline) TryInsert(sa *ScheduledActivity) {
	index := sort.Search(len(wt.Scheduled), func(i int) bool {
		return wt.Scheduled[i].Start().After(sa.Start())
	})
	wt.Scheduled = append(wt.Scheduled, nil)
	copy(wt.Scheduled[index+1:], wt.Scheduled[index:])
	wt.Scheduled[index] = sa
}

// Remove drops the activity from the timeline. Sentinels are refused.
func (wt *WorkerTimeline) Remove(woa types.WorkOrderActivity) error {
	if woa.WorkOrderNumber.IsDummy() {
		return fmt.Errorf("sentinel activity %s cannot be removed", woa)
	}
	for i, sa := range wt.Scheduled {
		if sa.WOA == woa {
			wt.Scheduled = append(wt.Scheduled[:i], wt.Scheduled[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("activity %s is not scheduled", woa)
}

// Find returns the scheduled activity for woa, if present.
func (wt *WorkerTimeline) Find(woa types.WorkOrderActivity) (*ScheduledActivity, bool) {
	for _, sa := range wt.Scheduled {
		if sa.WOA == woa {
			return sa, true
		}
	}
	return nil, false
}

// ContainingOrNext probes the scheduled activities at a moment,
// skipping the sentinels.
func (wt *WorkerTimeline) ContainingOrNext(moment time.Time) (ContainKind, *ScheduledActivity) {
	var next *ScheduledActivity
	for _, sa := range wt.Scheduled {
		if sa.WOA.WorkOrderNumber.IsDummy() {
			continue
		}
		if !moment.Before(sa.Start()) && moment.Before(sa.Finish()) {
			return ContainInside, sa
		}
		if sa.Start().After(moment) && (next == nil || sa.Start().Before(next.Start())) {
			next = sa
		}
	}
	if next != nil {
		return ContainNext, next
	}
	return ContainNone, nil
}

// AllAssignments merges scheduled and filler assignments sorted by
// start, excluding the sentinels.
func (wt *WorkerTimeline) AllAssignments() []Assignment {
	var all []Assignment
	for _, sa := range wt.Scheduled {
		if sa.WOA.WorkOrderNumber.IsDummy() {
			continue
		}
		all = append(all, sa.Assignments...)
	}
	all = append(all, wt.Filler...)
	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return all
}

// ValidateTiling enforces the core operational invariants: assignments
// are strictly non-overlapping, every span equals its event duration,
// only unavailable events leave the availability window, and the merged
// list covers [start, finish) exactly once.
func (wt *WorkerTimeline) ValidateTiling(availability types.Availability) error {
	all := wt.AllAssignments()
	cursor := availability.Start
	for i, a := range all {
		if span := a.Finish.Sub(a.Start); span != a.Event.Duration() {
			return fmt.Errorf("assignment %d (%s): span %s != event duration %s",
				i, a.Event.Kind, span, a.Event.Duration())
		}
		if a.Event.Kind != EventUnavailable {
			if a.Start.Before(availability.Start) || a.Finish.After(availability.Finish) {
				return fmt.Errorf("assignment %d (%s): [%s, %s) escapes availability [%s, %s)",
					i, a.Event.Kind, a.Start, a.Finish, availability.Start, availability.Finish)
			}
		}
		if !a.Start.Equal(cursor) {
			return fmt.Errorf("tiling gap before assignment %d (%s): cursor %s, start %s",
				i, a.Event.Kind, cursor, a.Start)
		}
		cursor = a.Finish
	}
	if len(all) > 0 && !cursor.Equal(availability.Finish) {
		return fmt.Errorf("tiling stops at %s before availability finish %s", cursor, availability.Finish)
	}
	return nil
}

// NoOverlap checks pairwise non-overlap of the merged assignment list.
func (wt *WorkerTimeline) NoOverlap() error {
	all := wt.AllAssignments()
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.Start.Before(prev.Finish) {
			return fmt.Errorf("overlap between %s [%s, %s) and %s [%s, %s)",
				prev.Event.Kind, prev.Start, prev.Finish, cur.Event.Kind, cur.Start, cur.Finish)
		}
	}
	return nil
}

// OperationalSolution is the per-worker operational sub-solution.
type OperationalSolution struct {
	Workers map[types.WorkerID]*WorkerTimeline `json:"workers"`
}

// NewOperationalSolution builds an empty operational solution.
func NewOperationalSolution() *OperationalSolution {
	return &OperationalSolution{Workers: make(map[types.WorkerID]*WorkerTimeline)}
}

// Clone deep-copies the solution.
func (o *OperationalSolution) Clone() *OperationalSolution {
	clone := NewOperationalSolution()
	for id, wt := range o.Workers {
		clone.Workers[id] = wt.Clone()
	}
	return clone
}
