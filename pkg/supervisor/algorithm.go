package supervisor

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/bosunhq/bosun/pkg/alns"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/events"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

// unscheduledFitness is the marginal-fitness cost charged for a pair the
// operational level has not placed yet, so placed work always ranks
// ahead of unplaced work.
const unscheduledFitness = int64(14 * 24 * 3600)

// Options tunes the supervisor destroy step.
type Options struct {
	NumberOfRemoved int
}

// candidate is one activity the supervisor can delegate, with its craft
// and headcount requirement.
type candidate struct {
	woa      types.WorkOrderActivity
	resource types.Resource
	workers  int
	weight   uint64
}

// Algorithm is one supervisor's level: it decides which workers are
// delegated which activities.
type Algorithm struct {
	id      types.SupervisorID
	asset   types.Asset
	source  environment.Source
	weights *types.WeightConfig
	options Options

	workers       map[types.WorkerID]*types.Worker
	delegations   map[types.WorkerID]map[types.WorkOrderActivity]solution.Delegate
	lastPublished map[types.WorkerID]map[types.WorkOrderActivity]solution.Delegate
	objective     int64
	objectiveSet  bool
}

// New builds a supervisor algorithm covering every worker of the asset.
func New(id types.SupervisorID, asset types.Asset, source environment.Source, weights *types.WeightConfig, options Options) *Algorithm {
	a := &Algorithm{
		id:          id,
		asset:       asset,
		source:      source,
		weights:     weights,
		options:     options,
		workers:     source.Current().WorkersByAsset(asset),
		delegations: make(map[types.WorkerID]map[types.WorkOrderActivity]solution.Delegate),
	}
	a.lastPublished = cloneDelegations(a.delegations)
	return a
}

// Level implements alns.Algorithm.
func (a *Algorithm) Level() string { return "supervisor" }

// IncorporateSystemSolution drops delegations whose activities left the
// tactical plan; a pairing without a day placement cannot be worked.
func (a *Algorithm) IncorporateSystemSolution(snap *solution.Snapshot) error {
	scheduled := a.tacticalActivities(snap)
	for worker, pairs := range a.delegations {
		for woa, delegate := range pairs {
			if delegate == solution.DelegateDone {
				continue
			}
			if _, ok := scheduled[woa]; !ok {
				delete(pairs, woa)
			}
		}
		if len(pairs) == 0 {
			delete(a.delegations, worker)
		}
	}
	return nil
}

// tacticalActivities collects every activity of the asset with a
// tactical day placement, keyed for membership tests.
func (a *Algorithm) tacticalActivities(snap *solution.Snapshot) map[types.WorkOrderActivity]candidate {
	env := a.source.Current()
	catalog := env.WorkOrdersByAsset(a.asset)

	candidates := make(map[types.WorkOrderActivity]candidate)
	for number, two := range snap.Tactical.WorkOrders {
		if two.State != solution.TacticalScheduled {
			continue
		}
		wo, ok := catalog[number]
		if !ok {
			continue
		}
		weight, err := wo.Weight(a.weights)
		if err != nil {
			// A work order with broken weight tables is skipped, not
			// fatal for the whole iteration.
			continue
		}
		for activity := range two.Activities {
			op, ok := wo.Operations[activity]
			if !ok {
				continue
			}
			woa := types.WorkOrderActivity{WorkOrderNumber: number, ActivityNumber: activity}
			candidates[woa] = candidate{
				woa:      woa,
				resource: op.Resource,
				workers:  op.WorkerCount,
				weight:   weight,
			}
		}
	}
	return candidates
}

// Unschedule removes a random subset of Assign and Assess pairs so the
// repair step can reconsider them. Fixed, Done and Drop pairs survive.
func (a *Algorithm) Unschedule(rng *rand.Rand) error {
	type pair struct {
		worker types.WorkerID
		woa    types.WorkOrderActivity
	}
	var candidates []pair
	for worker, pairs := range a.delegations {
		for woa, delegate := range pairs {
			if delegate == solution.DelegateAssign || delegate == solution.DelegateAssess {
				candidates = append(candidates, pair{worker, woa})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].worker != candidates[j].worker {
			return candidates[i].worker < candidates[j].worker
		}
		if candidates[i].woa.WorkOrderNumber != candidates[j].woa.WorkOrderNumber {
			return candidates[i].woa.WorkOrderNumber < candidates[j].woa.WorkOrderNumber
		}
		return candidates[i].woa.ActivityNumber < candidates[j].woa.ActivityNumber
	})

	removed := a.options.NumberOfRemoved
	if removed > len(candidates) {
		removed = len(candidates)
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, p := range candidates[:removed] {
		delete(a.delegations[p.worker], p.woa)
	}
	return nil
}

// Schedule decides a delegate for every (worker, activity) pair under
// this supervisor: craft mismatches drop, the best-fitting workers up to
// the activity's headcount are assigned, the rest assess.
func (a *Algorithm) Schedule(snap *solution.Snapshot) error {
	candidates := a.tacticalActivities(snap)

	ordered := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].weight != ordered[j].weight {
			return ordered[i].weight > ordered[j].weight
		}
		if ordered[i].woa.WorkOrderNumber != ordered[j].woa.WorkOrderNumber {
			return ordered[i].woa.WorkOrderNumber < ordered[j].woa.WorkOrderNumber
		}
		return ordered[i].woa.ActivityNumber < ordered[j].woa.ActivityNumber
	})

	for _, c := range ordered {
		a.delegateActivity(c, snap)
	}
	return nil
}

func (a *Algorithm) delegateActivity(c candidate, snap *solution.Snapshot) {
	type ranked struct {
		worker  types.WorkerID
		fitness int64
	}
	var able []ranked
	for id, worker := range a.workers {
		current := a.delegations[id][c.woa]
		if current == solution.DelegateFixed || current == solution.DelegateDone {
			continue
		}
		if !worker.CanPerform(c.resource) {
			// A stale pairing on the wrong craft is forcibly removed and
			// the drop propagates to the operational level.
			if current != "" {
				a.set(id, c.woa, solution.DelegateDrop)
			}
			continue
		}
		able = append(able, ranked{worker: id, fitness: a.marginalFitness(id, c.woa, snap)})
	}

	sort.Slice(able, func(i, j int) bool {
		if able[i].fitness != able[j].fitness {
			return able[i].fitness < able[j].fitness
		}
		return able[i].worker < able[j].worker
	})

	headcount := c.workers
	if headcount < 1 {
		headcount = 1
	}
	for i, r := range able {
		if i < headcount {
			a.set(r.worker, c.woa, solution.DelegateAssign)
		} else {
			a.set(r.worker, c.woa, solution.DelegateAssess)
		}
	}
}

// marginalFitness reads the operational level's flanking non-productive
// time for the pair, the supervisor's fitness proxy.
func (a *Algorithm) marginalFitness(worker types.WorkerID, woa types.WorkOrderActivity, snap *solution.Snapshot) int64 {
	timeline, ok := snap.Operational.Workers[worker]
	if !ok {
		return unscheduledFitness
	}
	sa, ok := timeline.Find(woa)
	if !ok || !sa.MarginalFitness.Scheduled {
		return unscheduledFitness
	}
	return sa.MarginalFitness.Seconds
}

func (a *Algorithm) set(worker types.WorkerID, woa types.WorkOrderActivity, delegate solution.Delegate) {
	pairs, ok := a.delegations[worker]
	if !ok {
		pairs = make(map[types.WorkOrderActivity]solution.Delegate)
		a.delegations[worker] = pairs
	}
	pairs[woa] = delegate
}

// Objective balances assigned coverage against the marginal-fitness cost
// of the chosen workers. Higher is better.
func (a *Algorithm) Objective(snap *solution.Snapshot) (alns.Outcome, error) {
	var score int64
	for worker, pairs := range a.delegations {
		for woa, delegate := range pairs {
			if delegate != solution.DelegateAssign && delegate != solution.DelegateFixed {
				continue
			}
			score += 1000
			score -= a.marginalFitness(worker, woa, snap) / 60
		}
	}
	if !a.objectiveSet || score > a.objective {
		a.objective = score
		a.objectiveSet = true
		return alns.OutcomeBetter, nil
	}
	return alns.OutcomeWorse, nil
}

// Publish swaps this supervisor's delegations into the shared store,
// leaving other supervisors' decisions untouched.
func (a *Algorithm) Publish(store *solution.Store) {
	published := cloneDelegations(a.delegations)
	objective := a.objective
	store.Update(func(old *solution.Snapshot) *solution.Snapshot {
		supervisor := old.Supervisor.Clone()
		supervisor.Delegations[a.id] = cloneDelegations(published)
		if objective > 0 {
			supervisor.Objective = uint64(objective)
		} else {
			supervisor.Objective = 0
		}
		return &solution.Snapshot{
			Strategic:   old.Strategic,
			Tactical:    old.Tactical,
			Supervisor:  supervisor,
			Operational: old.Operational,
		}
	})
	a.lastPublished = published
}

// Rollback restores the last published delegations.
func (a *Algorithm) Rollback() {
	a.delegations = cloneDelegations(a.lastPublished)
}

// HandleStateLink refreshes the worker pool when it changes.
func (a *Algorithm) HandleStateLink(link events.StateLink) error {
	if link.Kind == events.KindWorkerEnvironment {
		a.workers = a.source.Current().WorkersByAsset(a.asset)
		for worker := range a.delegations {
			if _, ok := a.workers[worker]; !ok {
				delete(a.delegations, worker)
			}
		}
	}
	return nil
}

// StatusResponse summarizes the supervisor's current delegations.
type StatusResponse struct {
	Supervisor types.SupervisorID `json:"supervisor"`
	Assigned   int                `json:"assigned"`
	Assessed   int                `json:"assessed"`
	Dropped    int                `json:"dropped"`
}

// HandleRequest serves synchronous requests between iterations.
func (a *Algorithm) HandleRequest(req alns.Request) alns.Response {
	switch req.Kind {
	case "status":
		resp := StatusResponse{Supervisor: a.id}
		for _, pairs := range a.delegations {
			for _, delegate := range pairs {
				switch delegate {
				case solution.DelegateAssign, solution.DelegateFixed:
					resp.Assigned++
				case solution.DelegateAssess:
					resp.Assessed++
				case solution.DelegateDrop:
					resp.Dropped++
				}
			}
		}
		return alns.Response{Payload: resp}
	default:
		return alns.Response{Err: fmt.Errorf("supervisor level serves no %q request", req.Kind)}
	}
}

func cloneDelegations(delegations map[types.WorkerID]map[types.WorkOrderActivity]solution.Delegate) map[types.WorkerID]map[types.WorkOrderActivity]solution.Delegate {
	clone := make(map[types.WorkerID]map[types.WorkOrderActivity]solution.Delegate, len(delegations))
	for worker, pairs := range delegations {
		pairsCopy := make(map[types.WorkOrderActivity]solution.Delegate, len(pairs))
		for woa, delegate := range pairs {
			pairsCopy[woa] = delegate
		}
		clone[worker] = pairsCopy
	}
	return clone
}
