package strategic

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/bosunhq/bosun/pkg/alns"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/events"
	"github.com/bosunhq/bosun/pkg/metrics"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

// excessPenalty prices one hour of capacity excess in the objective. It
// dominates any tardiness term so overflow is always preferred over an
// overloaded period.
const excessPenalty = 1_000_000

// Options tunes the strategic destroy step.
type Options struct {
	NumberOfRemoved int
	Horizon         int
}

// Algorithm is the strategic level: it assigns each work order to a
// two-week period over the strategic horizon.
type Algorithm struct {
	asset   types.Asset
	source  environment.Source
	weights *types.WeightConfig
	offsets types.MaterialOffsets
	options Options

	params        *Parameters
	solution      *solution.StrategicSolution
	lastPublished *solution.StrategicSolution
	objectiveSet  bool
}

// New builds the strategic algorithm for one asset.
func New(asset types.Asset, source environment.Source, weights *types.WeightConfig, offsets types.MaterialOffsets, options Options) (*Algorithm, error) {
	params, err := BuildParameters(source.Current(), asset, weights, offsets, options.Horizon)
	if err != nil {
		return nil, err
	}
	sol := solution.NewStrategicSolution()
	for number := range params.WorkOrders {
		sol.Assignments[number] = nil
	}
	return &Algorithm{
		asset:         asset,
		source:        source,
		weights:       weights,
		offsets:       offsets,
		options:       options,
		params:        params,
		solution:      sol,
		lastPublished: sol.Clone(),
	}, nil
}

// Level implements alns.Algorithm.
func (a *Algorithm) Level() string { return "strategic" }

// IncorporateSystemSolution is a no-op: strategic is the top level and
// takes no upstream decisions.
func (a *Algorithm) IncorporateSystemSolution(snap *solution.Snapshot) error {
	return nil
}

// Unschedule removes a random subset of scheduled, unpinned work orders
// and backs their load out of the loading table.
func (a *Algorithm) Unschedule(rng *rand.Rand) error {
	var candidates []types.WorkOrderNumber
	for number, period := range a.solution.Assignments {
		if period == nil {
			continue
		}
		if param, ok := a.params.WorkOrders[number]; ok && param.LockedIn != nil {
			continue
		}
		candidates = append(candidates, number)
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
	period := a.solution.Assignments[number]
	if period == nil {
		return
	}
	if param, ok := a.params.WorkOrders[number]; ok {
		a.solution.AddLoad(param.Load, period.ID, -1)
	}
	a.solution.Assignments[number] = nil
}

// Schedule places pinned work orders first, then every unscheduled work
// order in decreasing weight order, periods earliest-first. The overflow
// period accepts regardless of capacity.
func (a *Algorithm) Schedule(snap *solution.Snapshot) error {
	for number, param := range a.params.WorkOrders {
		if param.LockedIn == nil {
			continue
		}
		current := a.solution.Assignments[number]
		if current != nil && current.ID == param.LockedIn.ID {
			continue
		}
		a.scheduleForced(number, param)
	}

	queue := a.unscheduledByWeight()
	for _, number := range queue {
		param, ok := a.params.WorkOrders[number]
		if !ok {
			// Removed mid-iteration by a state link; skip, not an error.
			continue
		}
		if err := a.scheduleNormal(number, param); err != nil {
			return err
		}
	}
	return nil
}

// unscheduledByWeight returns unplaced work orders, heaviest first.
func (a *Algorithm) unscheduledByWeight() []types.WorkOrderNumber {
	var queue []types.WorkOrderNumber
	for number, period := range a.solution.Assignments {
		if period == nil {
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

func (a *Algorithm) scheduleForced(number types.WorkOrderNumber, param *Parameter) {
	a.unscheduleSingle(number)
	locked := *param.LockedIn
	a.solution.Assignments[number] = &locked
	a.solution.AddLoad(param.Load, locked.ID, 1)
}

func (a *Algorithm) scheduleNormal(number types.WorkOrderNumber, param *Parameter) error {
	last := a.params.LastPeriod()
	for _, period := range a.params.Periods {
		if period.ID != last.ID {
			if _, excluded := param.ExcludedPeriods[period.ID]; excluded {
				continue
			}
			if _, locked := a.params.PeriodLocks[period.ID]; locked {
				continue
			}
			if !a.fits(param, period.ID) {
				continue
			}
		}
		chosen := period
		a.solution.Assignments[number] = &chosen
		a.solution.AddLoad(param.Load, chosen.ID, 1)
		return nil
	}
	return fmt.Errorf("work order %d could not be placed: horizon is empty", number)
}

func (a *Algorithm) fits(param *Parameter, periodID int) bool {
	for resource, needed := range param.Load {
		if a.solution.Loading(resource, periodID)+needed > a.params.CapacityFor(resource, periodID) {
			return false
		}
	}
	return true
}

// Objective sums weighted lateness against the latest allowed period
// plus a large-coefficient penalty per hour of capacity excess. Lower is
// better.
func (a *Algorithm) Objective(snap *solution.Snapshot) (alns.Outcome, error) {
	if err := a.verifyLoadings(); err != nil {
		return alns.OutcomeWorse, err
	}

	var objective uint64
	for number, period := range a.solution.Assignments {
		if period == nil {
			continue
		}
		param, ok := a.params.WorkOrders[number]
		if !ok {
			continue
		}
		late := types.PeriodsBetween(param.LatestPeriod, *period)
		if late > 0 {
			objective += uint64(late) * param.Weight
		}
	}
	objective += excessPenalty * a.excessHours()

	if !a.objectiveSet || objective < a.solution.Objective {
		a.solution.Objective = objective
		a.objectiveSet = true
		return alns.OutcomeBetter, nil
	}
	return alns.OutcomeWorse, nil
}

func (a *Algorithm) excessHours() uint64 {
	var excess float64
	for resource, cells := range a.solution.Loadings {
		for id, hours := range cells {
			if over := hours - a.params.CapacityFor(resource, id); over > 0 {
				excess += over
			}
		}
	}
	return uint64(excess)
}

func (a *Algorithm) verifyLoadings() error {
	loads := make(map[types.WorkOrderNumber]map[types.Resource]float64, len(a.params.WorkOrders))
	for number, param := range a.params.WorkOrders {
		loads[number] = param.Load
	}
	return a.solution.VerifyLoadings(loads)
}

// Publish swaps the strategic sub-solution into the shared store.
func (a *Algorithm) Publish(store *solution.Store) {
	published := a.solution.Clone()
	store.Update(func(old *solution.Snapshot) *solution.Snapshot {
		return &solution.Snapshot{
			Strategic:   published,
			Tactical:    old.Tactical,
			Supervisor:  old.Supervisor,
			Operational: old.Operational,
		}
	})
	a.lastPublished = published
	metrics.StrategicObjective.WithLabelValues(string(a.asset)).Set(float64(published.Objective))
}

// Rollback restores the last published local solution after a discarded
// iteration.
func (a *Algorithm) Rollback() {
	a.solution = a.lastPublished.Clone()
}

// HandleStateLink rebuilds parameters whose upstream inputs changed.
func (a *Algorithm) HandleStateLink(link events.StateLink) error {
	switch link.Kind {
	case events.KindWorkOrders:
		if err := a.params.Rebuild(a.source.Current(), a.asset, link.WorkOrders, a.weights, a.offsets); err != nil {
			return err
		}
		for _, number := range link.WorkOrders {
			if _, ok := a.params.WorkOrders[number]; !ok {
				a.unscheduleSingle(number)
				delete(a.solution.Assignments, number)
				continue
			}
			if _, known := a.solution.Assignments[number]; !known {
				a.solution.Assignments[number] = nil
			}
		}
	case events.KindTimeEnvironment:
		rebuilt, err := BuildParameters(a.source.Current(), a.asset, a.weights, a.offsets, a.options.Horizon)
		if err != nil {
			return err
		}
		for number, param := range rebuilt.WorkOrders {
			if previous, ok := a.params.WorkOrders[number]; ok {
				param.LockedIn = previous.LockedIn
			}
		}
		rebuilt.PeriodLocks = a.params.PeriodLocks
		a.params = rebuilt
	}
	return nil
}
