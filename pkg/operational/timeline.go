package operational

import (
	"fmt"
	"time"

	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

// Engine is the per-worker timeline placer: it turns delegated
// activities into minute-accurate wrench blocks and fills the rest of
// the availability window so the assignments tile it exactly.
type Engine struct {
	availability types.Availability
	breakIv      types.TimeInterval
	offShift     types.TimeInterval
	toolbox      types.TimeInterval
}

// NewEngine builds the engine from a worker's shift structure.
func NewEngine(params *Parameters) *Engine {
	return &Engine{
		availability: params.Availability,
		breakIv:      params.Break,
		offShift:     params.OffShift,
		toolbox:      params.Toolbox,
	}
}

// shiftEvent pairs a recurring interval with the event kind it emits.
type shiftEvent struct {
	kind     solution.EventKind
	interval types.TimeInterval
}

// shiftEvents lists the recurring events in tie-break order:
// break < toolbox < off-shift.
func (e *Engine) shiftEvents() []shiftEvent {
	return []shiftEvent{
		{solution.EventBreak, e.breakIv},
		{solution.EventToolbox, e.toolbox},
		{solution.EventOffShift, e.offShift},
	}
}

// NextEvent returns the non-negative minimum delta from t to the start
// of a recurring event, together with that event. Ties resolve in the
// fixed order break < toolbox < off-shift.
func (e *Engine) NextEvent(t time.Time) (time.Duration, shiftEvent, error) {
	best := shiftEvent{}
	bestDelta := time.Duration(-1)
	for _, ev := range e.shiftEvents() {
		delta := ev.interval.UntilStart(t)
		if delta < 0 {
			continue
		}
		if bestDelta < 0 || delta < bestDelta {
			bestDelta = delta
			best = ev
		}
	}
	if bestDelta < 0 {
		return 0, shiftEvent{}, fmt.Errorf("no upcoming shift event from %s", t)
	}
	return bestDelta, best, nil
}

// containing returns the recurring event whose interval contains t, if
// any. Probe order matches the fill loop: break, off-shift, toolbox.
func (e *Engine) containing(t time.Time) (shiftEvent, bool) {
	ordered := []shiftEvent{
		{solution.EventBreak, e.breakIv},
		{solution.EventOffShift, e.offShift},
		{solution.EventToolbox, e.toolbox},
	}
	for _, ev := range ordered {
		if ev.interval.Contains(t) {
			return ev, true
		}
	}
	return shiftEvent{}, false
}

// AdvancePastEvent consumes any recurring event containing t, and any
// event starting exactly at the resulting moment, returning the first
// open instant. A contained interval whose end-of-day lies before t
// wraps to the next calendar day.
func (e *Engine) AdvancePastEvent(t time.Time) (time.Time, error) {
	for {
		if ev, ok := e.containing(t); ok {
			t = ev.interval.EndOn(t)
			continue
		}
		delta, ev, err := e.NextEvent(t)
		if err != nil {
			return time.Time{}, err
		}
		if delta == 0 {
			t = ev.interval.EndOn(t)
			continue
		}
		return t, nil
	}
}

// PlaceWrench emits the assignments for one activity of duration d
// starting at t: wrench blocks split around every recurring event, each
// consumed in full. t must be an open instant (see AdvancePastEvent).
func (e *Engine) PlaceWrench(woa types.WorkOrderActivity, d time.Duration, t time.Time) ([]solution.Assignment, error) {
	if d <= 0 {
		return nil, fmt.Errorf("activity %s: wrench duration %s is not positive", woa, d)
	}

	var assigned []solution.Assignment
	emit := func(event solution.Event, start, finish time.Time) error {
		a, err := solution.NewAssignment(event, start, finish)
		if err != nil {
			return fmt.Errorf("activity %s: %w", woa, err)
		}
		if n := len(assigned); n > 0 && a.Start.Before(assigned[n-1].Finish) {
			return fmt.Errorf("activity %s: emit at %s overlaps previous finish %s",
				woa, a.Start, assigned[n-1].Finish)
		}
		if a.Finish.After(e.availability.Finish) {
			return fmt.Errorf("activity %s: placement escapes availability at %s", woa, a.Finish)
		}
		assigned = append(assigned, a)
		return nil
	}

	remaining := d
	for remaining > 0 {
		delta, next, err := e.NextEvent(t)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", woa, err)
		}

		switch {
		case delta == 0:
			finish := next.interval.EndOn(t)
			if err := emit(solution.Event{Kind: next.kind, Interval: next.interval}, t, finish); err != nil {
				return nil, err
			}
			t = finish

		case delta < remaining:
			finish := t.Add(delta)
			wrench := solution.SpanEvent(solution.EventWrenchTime, t, finish)
			wrench.Activity = woa
			if err := emit(wrench, t, finish); err != nil {
				return nil, err
			}
			remaining -= delta
			t = finish

		default:
			finish := t.Add(remaining)
			wrench := solution.SpanEvent(solution.EventWrenchTime, t, finish)
			wrench.Activity = woa
			if err := emit(wrench, t, finish); err != nil {
				return nil, err
			}
			remaining = 0
		}
	}

	if len(assigned) == 0 {
		return nil, fmt.Errorf("activity %s: placement emitted nothing", woa)
	}
	return assigned, nil
}

// FirstAvailableStart finds where an activity of duration d can begin:
// the first gap between already-scheduled activities, clipped to the
// activity's upstream window, that is wide enough. Falls back to the
// window start. The sentinels guarantee the gap arithmetic is total.
func (e *Engine) FirstAvailableStart(tl *solution.WorkerTimeline, d time.Duration, windowStart, windowEnd time.Time) (time.Time, error) {
	for i := 0; i+1 < len(tl.Scheduled); i++ {
		gapStart := tl.Scheduled[i].Finish()
		if gapStart.Before(windowStart) {
			gapStart = windowStart
		}
		gapStart, err := e.AdvancePastEvent(gapStart)
		if err != nil {
			return time.Time{}, err
		}

		gapEnd := tl.Scheduled[i+1].Start()
		if windowEnd.Before(gapEnd) {
			gapEnd = windowEnd
		}

		if gapEnd.Sub(gapStart) > d {
			return gapStart, nil
		}
	}

	return e.AdvancePastEvent(windowStart)
}

// Fill walks the timeline from availability start and emits the
// break/off-shift/toolbox/non-productive events covering every instant
// not claimed by a scheduled activity, so the merged assignment list
// tiles the availability window exactly.
func (e *Engine) Fill(tl *solution.WorkerTimeline) ([]solution.Assignment, error) {
	var filler []solution.Assignment
	t := e.availability.Start

	for t.Before(e.availability.Finish) {
		kind, next := tl.ContainingOrNext(t)
		if kind == solution.ContainInside {
			t = next.Finish()
			continue
		}

		var nextStart *time.Time
		if kind == solution.ContainNext {
			s := next.Start()
			nextStart = &s
		}

		finish, event, err := e.nextFillEvent(t, nextStart)
		if err != nil {
			return nil, err
		}
		if event.IsWrenchTime() {
			return nil, fmt.Errorf("fill emitted wrench time at %s", t)
		}

		a, err := solution.NewAssignment(event, t, finish)
		if err != nil {
			return nil, fmt.Errorf("fill: %w", err)
		}
		if n := len(filler); n > 0 && a.Start.Before(filler[n-1].Finish) {
			return nil, fmt.Errorf("fill: emit at %s overlaps previous finish %s", a.Start, filler[n-1].Finish)
		}
		if nextStart != nil && a.Finish.After(*nextStart) {
			return nil, fmt.Errorf("fill: emit finishing %s runs into activity %s starting %s",
				a.Finish, next.WOA, *nextStart)
		}
		filler = append(filler, a)
		t = finish
	}
	return filler, nil
}

// nextFillEvent decides the filler event spanning from t: the containing
// recurring event consumed to its clipped end, or non-productive time up
// to the next boundary. Boundaries are: the next recurring event, the
// next scheduled activity, the end of t's calendar day when the next
// event lies on another day, and the availability finish.
func (e *Engine) nextFillEvent(t time.Time, nextStart *time.Time) (time.Time, solution.Event, error) {
	clip := func(finish time.Time) time.Time {
		if nextStart != nil && nextStart.Before(finish) {
			finish = *nextStart
		}
		if e.availability.Finish.Before(finish) {
			finish = e.availability.Finish
		}
		return finish
	}

	if ev, ok := e.containing(t); ok {
		finish := clip(ev.interval.EndOn(t))
		return finish, solution.SpanEvent(ev.kind, t, finish), nil
	}

	delta, _, err := e.NextEvent(t)
	if err != nil {
		return time.Time{}, solution.Event{}, err
	}
	finish := t.Add(delta)
	if !sameDay(t, finish) {
		finish = endOfDay(t)
	}
	finish = clip(finish)
	return finish, solution.SpanEvent(solution.EventNonProductive, t, finish), nil
}

func sameDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.YearDay() == bu.YearDay()
}

func endOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
