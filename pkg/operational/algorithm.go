package operational

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/bosunhq/bosun/pkg/alns"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/events"
	"github.com/bosunhq/bosun/pkg/metrics"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

// Options tunes the operational destroy step.
type Options struct {
	NumberOfRemovedActivities int
}

// Algorithm is one worker's operational level: the repair step is the
// timeline engine producing a fully tiled assignment list.
type Algorithm struct {
	workerID types.WorkerID
	asset    types.Asset
	source   environment.Source
	options  Options

	params        *Parameters
	engine        *Engine
	timeline      *solution.WorkerTimeline
	lastPublished *solution.WorkerTimeline
	objectiveSet  bool
}

// New builds the operational algorithm for one worker.
func New(workerID types.WorkerID, source environment.Source, options Options) (*Algorithm, error) {
	params, err := BuildParameters(source.Current(), workerID)
	if err != nil {
		return nil, err
	}
	tl := solution.NewWorkerTimeline(params.Availability)
	return &Algorithm{
		workerID:      workerID,
		asset:         params.Worker.Asset,
		source:        source,
		options:       options,
		params:        params,
		engine:        NewEngine(params),
		timeline:      tl,
		lastPublished: tl.Clone(),
	}, nil
}

// Level implements alns.Algorithm.
func (a *Algorithm) Level() string { return "operational" }

// IncorporateSystemSolution drops activities whose supervisor delegate
// turned to Drop. Sentinels are exempt; a pair missing from the
// supervisor's view means upstream has not decided yet and the local
// placement stands.
func (a *Algorithm) IncorporateSystemSolution(snap *solution.Snapshot) error {
	delegates := snap.Supervisor.DelegatesFor(a.workerID)
	var dropped []types.WorkOrderActivity
	for _, sa := range a.timeline.Scheduled {
		if sa.WOA.WorkOrderNumber.IsDummy() {
			continue
		}
		if delegate, ok := delegates[sa.WOA]; ok && delegate.IsDrop() {
			dropped = append(dropped, sa.WOA)
		}
	}
	for _, woa := range dropped {
		if err := a.timeline.Remove(woa); err != nil {
			return fmt.Errorf("dropping %s: %w", woa, err)
		}
	}
	return nil
}

// Unschedule removes a random subset of scheduled activities. The
// sentinels at both ends of the timeline are never removed.
func (a *Algorithm) Unschedule(rng *rand.Rand) error {
	if first := a.timeline.Scheduled[0]; !first.WOA.WorkOrderNumber.IsDummy() {
		return fmt.Errorf("leading sentinel missing, found %s", first.WOA)
	}
	if last := a.timeline.Scheduled[len(a.timeline.Scheduled)-1]; !last.WOA.WorkOrderNumber.IsDummy() {
		return fmt.Errorf("trailing sentinel missing, found %s", last.WOA)
	}

	var candidates []types.WorkOrderActivity
	for _, sa := range a.timeline.Scheduled {
		if !sa.WOA.WorkOrderNumber.IsDummy() {
			candidates = append(candidates, sa.WOA)
		}
	}

	removed := a.options.NumberOfRemovedActivities
	if removed > len(candidates) {
		removed = len(candidates)
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, woa := range candidates[:removed] {
		if err := a.timeline.Remove(woa); err != nil {
			return err
		}
	}
	return nil
}

// Schedule is the timeline engine run: place every delegated activity as
// contiguous-per-day wrench blocks inside its upstream window, then fill
// the rest of the availability window.
func (a *Algorithm) Schedule(snap *solution.Snapshot) error {
	for _, woa := range snap.Supervisor.DelegatedTasks(a.workerID) {
		param, ok := a.params.WorkOrders[woa]
		if !ok {
			// Legitimately removed mid-iteration; skip, not an error.
			continue
		}
		if _, already := a.timeline.Find(woa); already {
			continue
		}
		// A work order the tactical level released (or has not placed)
		// must not reach any worker's timeline. A missing entry means
		// upstream has not decided yet; the fallback window applies.
		if two, ok := snap.Tactical.WorkOrders[woa.WorkOrderNumber]; ok && two.State != solution.TacticalScheduled {
			continue
		}

		windowStart, windowEnd := a.upstreamWindow(woa, snap)
		if !windowStart.Before(windowEnd) {
			continue
		}

		start, err := a.engine.FirstAvailableStart(a.timeline, param.WrenchDuration, windowStart, windowEnd)
		if err != nil {
			return fmt.Errorf("start time for %s: %w", woa, err)
		}

		assignments, err := a.engine.PlaceWrench(woa, param.WrenchDuration, start)
		if err != nil {
			// Capacity exhausted on this timeline: the activity stays
			// unscheduled and surfaces as such to the supervisor.
			continue
		}
		block := &solution.ScheduledActivity{WOA: woa, Assignments: assignments}
		if a.overlapsScheduled(block) {
			continue
		}
		a.timeline.TryInsert(block)
	}

	filler, err := a.engine.Fill(a.timeline)
	if err != nil {
		return fmt.Errorf("fill timeline for %s: %w", a.workerID, err)
	}
	a.timeline.Filler = filler

	if err := a.timeline.NoOverlap(); err != nil {
		return fmt.Errorf("timeline for %s: %w", a.workerID, err)
	}
	return nil
}

// upstreamWindow resolves the activity's placement window: tactical day
// range first, then the strategic period, then the whole availability
// window. The result is clipped to the availability window.
func (a *Algorithm) upstreamWindow(woa types.WorkOrderActivity, snap *solution.Snapshot) (time.Time, time.Time) {
	start, end := a.params.Availability.Start, a.params.Availability.Finish

	if s, e, ok := snap.Tactical.StartAndFinish(woa); ok {
		start, end = s, e
	} else if period, ok := snap.Strategic.ScheduledPeriod(woa.WorkOrderNumber); ok && period != nil {
		start, end = period.Start, period.End
	}

	if start.Before(a.params.Availability.Start) {
		start = a.params.Availability.Start
	}
	if end.After(a.params.Availability.Finish) {
		end = a.params.Availability.Finish
	}
	return start, end
}

func (a *Algorithm) overlapsScheduled(block *solution.ScheduledActivity) bool {
	for _, sa := range a.timeline.Scheduled {
		if sa.WOA.WorkOrderNumber.IsDummy() {
			continue
		}
		if block.Start().Before(sa.Finish()) && sa.Start().Before(block.Finish()) {
			return true
		}
	}
	return false
}

// Objective scores the timeline as the wrench-time share of productive
// time, off-shift excluded. It also refreshes each activity's marginal
// fitness: the non-productive time flanking its wrench block, consumed
// by the supervisor level. Larger is better.
func (a *Algorithm) Objective(snap *solution.Snapshot) (alns.Outcome, error) {
	if err := a.timeline.ValidateTiling(a.params.Availability); err != nil {
		return alns.OutcomeWorse, fmt.Errorf("timeline for %s: %w", a.workerID, err)
	}

	var wrench, breakTime, offShift, toolbox, nonProductive time.Duration

	var prevFit, nextFit time.Duration
	var current *types.WorkOrderActivity
	beforeFirstWrench := true

	for _, assignment := range a.timeline.AllAssignments() {
		duration := assignment.Finish.Sub(assignment.Start)
		switch assignment.Event.Kind {
		case solution.EventWrenchTime:
			wrench += duration
			woa := assignment.Event.Activity
			if current == nil {
				beforeFirstWrench = false
				current = &woa
			} else if *current != woa {
				a.updateMarginalFitness(*current, prevFit+nextFit)
				prevFit = nextFit
				nextFit = 0
				current = &woa
			}
		case solution.EventBreak:
			breakTime += duration
		case solution.EventOffShift:
			offShift += duration
		case solution.EventToolbox:
			toolbox += duration
		case solution.EventNonProductive:
			nonProductive += duration
			if beforeFirstWrench {
				prevFit += duration
			} else {
				nextFit += duration
			}
		}
	}
	if current != nil {
		a.updateMarginalFitness(*current, prevFit+nextFit)
	}

	total := wrench + breakTime + offShift + toolbox + nonProductive
	if total != a.params.Availability.Duration() {
		return alns.OutcomeWorse, fmt.Errorf("timeline for %s covers %s of the %s availability window",
			a.workerID, total, a.params.Availability.Duration())
	}

	productive := wrench + breakTime + toolbox + nonProductive
	var objective uint64
	if productive > 0 {
		objective = uint64(wrench.Seconds()) * 100 / uint64(productive.Seconds())
	}

	if !a.objectiveSet || objective > a.timeline.Objective {
		a.timeline.Objective = objective
		a.objectiveSet = true
		return alns.OutcomeBetter, nil
	}
	return alns.OutcomeWorse, nil
}

func (a *Algorithm) updateMarginalFitness(woa types.WorkOrderActivity, flanking time.Duration) {
	if sa, ok := a.timeline.Find(woa); ok {
		sa.MarginalFitness = solution.MarginalFitness{
			Scheduled: true,
			Seconds:   int64(flanking.Seconds()),
		}
	}
}

// Publish swaps this worker's timeline into the shared store.
func (a *Algorithm) Publish(store *solution.Store) {
	published := a.timeline.Clone()
	store.Update(func(old *solution.Snapshot) *solution.Snapshot {
		operational := old.Operational.Clone()
		operational.Workers[a.workerID] = published.Clone()
		return &solution.Snapshot{
			Strategic:   old.Strategic,
			Tactical:    old.Tactical,
			Supervisor:  old.Supervisor,
			Operational: operational,
		}
	})
	a.lastPublished = published
	metrics.WrenchTimePercent.WithLabelValues(string(a.asset), string(a.workerID)).Set(float64(published.Objective))
}

// Rollback restores the last published timeline.
func (a *Algorithm) Rollback() {
	a.timeline = a.lastPublished.Clone()
}

// HandleStateLink rebuilds the worker's parameters when its inputs
// change.
func (a *Algorithm) HandleStateLink(link events.StateLink) error {
	switch link.Kind {
	case events.KindWorkOrders, events.KindWorkerEnvironment, events.KindTimeEnvironment:
		if link.Kind == events.KindWorkerEnvironment && link.Worker != "" && link.Worker != a.workerID {
			return nil
		}
		params, err := BuildParameters(a.source.Current(), a.workerID)
		if err != nil {
			return err
		}
		previous := a.params.Availability
		a.params = params
		a.engine = NewEngine(params)

		// A moved availability window invalidates every placement and the
		// sentinels with it; start over from an empty timeline.
		if params.Availability != previous {
			a.timeline = solution.NewWorkerTimeline(params.Availability)
			a.lastPublished = a.timeline.Clone()
			a.objectiveSet = false
			return nil
		}

		// Placements for parameters that vanished are dropped here; the
		// next repair re-fills the timeline.
		var stale []types.WorkOrderActivity
		for _, sa := range a.timeline.Scheduled {
			if sa.WOA.WorkOrderNumber.IsDummy() {
				continue
			}
			if _, ok := params.WorkOrders[sa.WOA]; !ok {
				stale = append(stale, sa.WOA)
			}
		}
		for _, woa := range stale {
			if err := a.timeline.Remove(woa); err != nil {
				return err
			}
		}
	}
	return nil
}

// StatusResponse is the operational status summary for one worker.
type StatusResponse struct {
	Worker           types.WorkerID `json:"worker"`
	WrenchPercent    uint64         `json:"wrench_percent"`
	ScheduledCount   int            `json:"scheduled_count"`
	AvailabilityFrom time.Time      `json:"availability_from"`
	AvailabilityTo   time.Time      `json:"availability_to"`
}

// HandleRequest serves synchronous requests between iterations.
func (a *Algorithm) HandleRequest(req alns.Request) alns.Response {
	switch req.Kind {
	case "status":
		scheduled := 0
		for _, sa := range a.timeline.Scheduled {
			if !sa.WOA.WorkOrderNumber.IsDummy() {
				scheduled++
			}
		}
		return alns.Response{Payload: StatusResponse{
			Worker:           a.workerID,
			WrenchPercent:    a.timeline.Objective,
			ScheduledCount:   scheduled,
			AvailabilityFrom: a.params.Availability.Start,
			AvailabilityTo:   a.params.Availability.Finish,
		}}
	default:
		return alns.Response{Err: fmt.Errorf("operational level serves no %q request", req.Kind)}
	}
}

// sortedScheduled is used by tests to inspect placements in order.
func (a *Algorithm) sortedScheduled() []*solution.ScheduledActivity {
	out := append([]*solution.ScheduledActivity(nil), a.timeline.Scheduled...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start().Before(out[j].Start()) })
	return out
}
