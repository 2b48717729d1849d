package tactical

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

// Options tunes the tactical destroy step.
type Options struct {
	NumberOfRemoved int
	Horizon         int
}

// Algorithm is the tactical level: within each strategic period it
// places every activity on specific days of the rolling horizon.
type Algorithm struct {
	asset   types.Asset
	source  environment.Source
	weights *types.WeightConfig
	options Options

	params        *Parameters
	solution      *solution.TacticalSolution
	lastPublished *solution.TacticalSolution
}

// New builds the tactical algorithm for one asset.
func New(asset types.Asset, source environment.Source, weights *types.WeightConfig, options Options) (*Algorithm, error) {
	params, err := BuildParameters(source.Current(), asset, weights, options.Horizon)
	if err != nil {
		return nil, err
	}
	sol := solution.NewTacticalSolution()
	for number := range params.WorkOrders {
		sol.WorkOrders[number] = &solution.TacticalWorkOrder{State: solution.TacticalNotScheduled}
	}
	return &Algorithm{
		asset:         asset,
		source:        source,
		weights:       weights,
		options:       options,
		params:        params,
		solution:      sol,
		lastPublished: sol.Clone(),
	}, nil
}

// Level implements alns.Algorithm.
func (a *Algorithm) Level() string { return "tactical" }

// IncorporateSystemSolution reconciles the local catalog view with the
// parameter set; work orders removed upstream leave the solution.
func (a *Algorithm) IncorporateSystemSolution(snap *solution.Snapshot) error {
	for number := range a.params.WorkOrders {
		if _, ok := a.solution.WorkOrders[number]; !ok {
			a.solution.WorkOrders[number] = &solution.TacticalWorkOrder{State: solution.TacticalNotScheduled}
		}
	}
	for number := range a.solution.WorkOrders {
		if _, ok := a.params.WorkOrders[number]; !ok {
			a.unscheduleSingle(number)
			delete(a.solution.WorkOrders, number)
		}
	}
	return nil
}

// Unschedule removes a random subset of placed work orders and backs
// their load out of the day loadings.
func (a *Algorithm) Unschedule(rng *rand.Rand) error {
	var candidates []types.WorkOrderNumber
	for number, two := range a.solution.WorkOrders {
		if two.State == solution.TacticalScheduled {
			candidates = append(candidates, number)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	removed := a.options.NumberOfRemoved
	if removed > len(candidates) {
		removed = len(candidates)
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, number := range candidates[:removed] {
		a.unscheduleSingle(number)
	}
	return nil
}

func (a *Algorithm) unscheduleSingle(number types.WorkOrderNumber) {
	two, ok := a.solution.WorkOrders[number]
	if !ok || two.State != solution.TacticalScheduled {
		if ok {
			two.State = solution.TacticalNotScheduled
			two.Activities = nil
			two.Resources = nil
		}
		return
	}
	for activity, loads := range two.Activities {
		resource := two.Resources[activity]
		for _, load := range loads {
			a.solution.AddLoading(resource, load.Day.Index, -load.Hours)
		}
	}
	two.State = solution.TacticalNotScheduled
	two.Activities = nil
	two.Resources = nil
}

// Schedule walks the unplaced work orders heaviest-first, advancing
// day-by-day through the horizon. A day without remaining capacity
// abandons the start day; exhausting the start days releases the work
// order back to strategic visibility.
func (a *Algorithm) Schedule(snap *solution.Snapshot) error {
	queue := a.unscheduledByWeight()
	for _, number := range queue {
		param, ok := a.params.WorkOrders[number]
		if !ok {
			continue
		}
		a.scheduleWorkOrder(number, param, snap)
	}
	return a.verifyLoadings()
}

func (a *Algorithm) unscheduledByWeight() []types.WorkOrderNumber {
	var queue []types.WorkOrderNumber
	for number, two := range a.solution.WorkOrders {
		if two.State == solution.TacticalNotScheduled {
			queue = append(queue, number)
		}
	}
	sort.Slice(queue, func(i, j int) bool {
		pi, pj := a.params.WorkOrders[queue[i]], a.params.WorkOrders[queue[j]]
		wi, wj := uint64(0), uint64(0)
		if pi != nil {
			wi = pi.Weight
		}
		if pj != nil {
			wj = pj.Weight
		}
		if wi != wj {
			return wi > wj
		}
		return queue[i] < queue[j]
	})
	return queue
}

// earliestFor is the placement lower bound: the strategic period start
// when one is assigned, otherwise the work order's earliest allowed
// start date. A missing upstream key means strategic has not decided
// yet; the local default applies.
func (a *Algorithm) earliestFor(number types.WorkOrderNumber, param *Parameter, snap *solution.Snapshot) time.Time {
	if period, ok := snap.Strategic.ScheduledPeriod(number); ok && period != nil {
		if period.Start.After(param.EarliestStart) {
			return period.Start
		}
	}
	return param.EarliestStart
}

func (a *Algorithm) scheduleWorkOrder(number types.WorkOrderNumber, param *Parameter, snap *solution.Snapshot) {
	earliest := a.earliestFor(number, param, snap)

	var allowedStarts []int
	for i, day := range a.params.Days {
		if !day.Date.Before(truncateToDay(earliest)) {
			allowedStarts = append(allowedStarts, i)
		}
	}

	for _, startIndex := range allowedStarts {
		placement, ok := a.tryPlacement(param, startIndex)
		if !ok {
			continue
		}
		two := a.solution.WorkOrders[number]
		two.State = solution.TacticalScheduled
		two.Activities = placement
		two.Resources = make(map[types.ActivityNumber]types.Resource, len(param.Operations))
		for activity, op := range param.Operations {
			two.Resources[activity] = op.Resource
		}
		for activity, loads := range placement {
			resource := two.Resources[activity]
			for _, load := range loads {
				a.solution.AddLoading(resource, load.Day.Index, load.Hours)
			}
		}
		return
	}

	// Released from tactical: the work order stays visible to strategic
	// only. Planned behavior, not an error.
	two := a.solution.WorkOrders[number]
	two.State = solution.TacticalStrategicOnly
	two.Activities = nil
	two.Resources = nil
}

// tryPlacement walks the activities in ascending order from the start
// day, consuming min(remaining capacity, operating time, work left) per
// day. Activities are sequential: each continues from the day its
// predecessor stopped on.
func (a *Algorithm) tryPlacement(param *Parameter, startIndex int) (map[types.ActivityNumber][]solution.DayLoad, bool) {
	placement := make(map[types.ActivityNumber][]solution.DayLoad)
	tentative := make(map[types.Resource]map[int]float64)

	dayCursor := startIndex
	for _, activity := range param.SortedActivities() {
		op := param.Operations[activity]
		remaining := op.Work

		for remaining > 0 {
			if dayCursor >= len(a.params.Days) {
				return nil, false
			}
			day := a.params.Days[dayCursor]
			capacityLeft := a.remainingCapacity(op.Resource, day.Index, tentative)
			if capacityLeft <= 0 {
				return nil, false
			}

			load := capacityLeft
			if op.OperatingTime < load {
				load = op.OperatingTime
			}
			if remaining < load {
				load = remaining
			}

			placement[activity] = append(placement[activity], solution.DayLoad{Day: day, Hours: load})
			addTentative(tentative, op.Resource, day.Index, load)
			remaining -= load

			if remaining > 0 {
				dayCursor++
			}
		}
	}
	return placement, true
}

func (a *Algorithm) remainingCapacity(resource types.Resource, dayIndex int, tentative map[types.Resource]map[int]float64) float64 {
	used := a.solution.Loading(resource, dayIndex)
	if cells, ok := tentative[resource]; ok {
		used += cells[dayIndex]
	}
	return a.params.CapacityFor(resource, dayIndex) - used
}

func addTentative(tentative map[types.Resource]map[int]float64, resource types.Resource, dayIndex int, hours float64) {
	cells, ok := tentative[resource]
	if !ok {
		cells = make(map[int]float64)
		tentative[resource] = cells
	}
	cells[dayIndex] += hours
}

// Objective sums excess hours over every (resource, day) cell plus
// weighted days-late against the strategic period start. Lower is
// better.
func (a *Algorithm) Objective(snap *solution.Snapshot) (alns.Outcome, error) {
	var objective uint64

	for resource, cells := range a.solution.Loadings {
		for index, hours := range cells {
			if over := hours - a.params.CapacityFor(resource, index); over > 0 {
				objective += uint64(over)
			}
		}
	}

	for number, two := range a.solution.WorkOrders {
		if two.State != solution.TacticalScheduled {
			continue
		}
		param, ok := a.params.WorkOrders[number]
		if !ok {
			continue
		}
		reference := a.earliestFor(number, param, snap)
		last := lastScheduledDay(two)
		if late := last.Sub(truncateToDay(reference)); late > 0 {
			objective += param.Weight * uint64(late/(24*time.Hour))
		}
	}

	if !a.solution.ObjectiveSet || objective < a.solution.Objective {
		a.solution.Objective = objective
		a.solution.ObjectiveSet = true
		return alns.OutcomeBetter, nil
	}
	return alns.OutcomeWorse, nil
}

func lastScheduledDay(two *solution.TacticalWorkOrder) time.Time {
	var last time.Time
	for _, loads := range two.Activities {
		if len(loads) == 0 {
			continue
		}
		if day := loads[len(loads)-1].Day.Date; day.After(last) {
			last = day
		}
	}
	return last
}

// verifyLoadings recomputes the loading table from the placements,
// enforcing the no-drift invariant.
func (a *Algorithm) verifyLoadings() error {
	expected := make(map[types.Resource]map[int]float64)
	for _, two := range a.solution.WorkOrders {
		if two.State != solution.TacticalScheduled {
			continue
		}
		for activity, loads := range two.Activities {
			resource := two.Resources[activity]
			for _, load := range loads {
				addTentative(expected, resource, load.Day.Index, load.Hours)
			}
		}
	}
	for resource, cells := range a.solution.Loadings {
		for index, hours := range cells {
			recomputed := 0.0
			if inner, ok := expected[resource]; ok {
				recomputed = inner[index]
			}
			if diff := hours - recomputed; diff > 1e-6 || diff < -1e-6 {
				return fmt.Errorf("tactical loading drift at (%s, day %d): loading=%.2f recomputed=%.2f",
					resource, index, hours, recomputed)
			}
		}
	}
	return nil
}

// Publish swaps the tactical sub-solution into the shared store.
func (a *Algorithm) Publish(store *solution.Store) {
	published := a.solution.Clone()
	store.Update(func(old *solution.Snapshot) *solution.Snapshot {
		return &solution.Snapshot{
			Strategic:   old.Strategic,
			Tactical:    published,
			Supervisor:  old.Supervisor,
			Operational: old.Operational,
		}
	})
	a.lastPublished = published
	metrics.TacticalObjective.WithLabelValues(string(a.asset)).Set(float64(published.Objective))
}

// Rollback restores the last published local solution.
func (a *Algorithm) Rollback() {
	a.solution = a.lastPublished.Clone()
}

// HandleStateLink rebuilds parameters whose upstream inputs changed.
func (a *Algorithm) HandleStateLink(link events.StateLink) error {
	switch link.Kind {
	case events.KindWorkOrders:
		if err := a.params.Rebuild(a.source.Current(), a.asset, link.WorkOrders, a.weights); err != nil {
			return err
		}
		for _, number := range link.WorkOrders {
			a.unscheduleSingle(number)
			if _, ok := a.params.WorkOrders[number]; !ok {
				delete(a.solution.WorkOrders, number)
			}
		}
	case events.KindTimeEnvironment:
		rebuilt, err := BuildParameters(a.source.Current(), a.asset, a.weights, a.options.Horizon)
		if err != nil {
			return err
		}
		a.params = rebuilt
	}
	return nil
}

// StatusResponse is the tactical status summary.
type StatusResponse struct {
	Objective uint64 `json:"objective"`
	Scheduled int    `json:"scheduled"`
	Released  int    `json:"released"`
	Days      int    `json:"days"`
}

// HandleRequest serves synchronous requests between iterations.
func (a *Algorithm) HandleRequest(req alns.Request) alns.Response {
	switch req.Kind {
	case "status":
		scheduled, released := 0, 0
		for _, two := range a.solution.WorkOrders {
			switch two.State {
			case solution.TacticalScheduled:
				scheduled++
			case solution.TacticalStrategicOnly:
				released++
			}
		}
		return alns.Response{Payload: StatusResponse{
			Objective: a.solution.Objective,
			Scheduled: scheduled,
			Released:  released,
			Days:      len(a.params.Days),
		}}
	default:
		return alns.Response{Err: fmt.Errorf("tactical level serves no %q request", req.Kind)}
	}
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
