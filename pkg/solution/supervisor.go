package solution

import (
	"sort"

	"github.com/bosunhq/bosun/pkg/types"
)

// Delegate is the supervisor's decision for one (worker, activity) pair.
type Delegate string

const (
	// DelegateAssess hands the activity to the worker's operational
	// actor for trial placement without commitment.
	DelegateAssess Delegate = "assess"
	// DelegateAssign commits the activity to the worker.
	DelegateAssign Delegate = "assign"
	// DelegateUnassign retracts a previous assignment but keeps the
	// pairing visible.
	DelegateUnassign Delegate = "unassign"
	// DelegateDrop forcibly removes the pairing; operational actors
	// discard the activity on their next incorporate step.
	DelegateDrop Delegate = "drop"
	// DelegateDone marks completed work; it is never rescheduled.
	DelegateDone Delegate = "done"
	// DelegateFixed pins the pairing against supervisor optimization.
	DelegateFixed Delegate = "fixed"
)

// IsDrop reports whether the delegate removes the pairing.
func (d Delegate) IsDrop() bool { return d == DelegateDrop }

// Schedulable reports whether the operational level may place the
// activity on the worker's timeline.
func (d Delegate) Schedulable() bool {
	return d == DelegateAssess || d == DelegateAssign || d == DelegateFixed
}

// SupervisorSolution records every supervisor's delegation decisions.
type SupervisorSolution struct {
	Delegations map[types.SupervisorID]map[types.WorkerID]map[types.WorkOrderActivity]Delegate `json:"delegations"`
	Objective   uint64                                                                         `json:"objective"`
}

// NewSupervisorSolution builds an empty supervisor solution.
func NewSupervisorSolution() *SupervisorSolution {
	return &SupervisorSolution{
		Delegations: make(map[types.SupervisorID]map[types.WorkerID]map[types.WorkOrderActivity]Delegate),
	}
}

// Clone deep-copies the solution.
func (s *SupervisorSolution) Clone() *SupervisorSolution {
	clone := &SupervisorSolution{
		Delegations: make(map[types.SupervisorID]map[types.WorkerID]map[types.WorkOrderActivity]Delegate, len(s.Delegations)),
		Objective:   s.Objective,
	}
	for supervisor, workers := range s.Delegations {
		workersCopy := make(map[types.WorkerID]map[types.WorkOrderActivity]Delegate, len(workers))
		for worker, pairs := range workers {
			pairsCopy := make(map[types.WorkOrderActivity]Delegate, len(pairs))
			for woa, delegate := range pairs {
				pairsCopy[woa] = delegate
			}
			workersCopy[worker] = pairsCopy
		}
		clone.Delegations[supervisor] = workersCopy
	}
	return clone
}

// Set records a delegate decision.
func (s *SupervisorSolution) Set(supervisor types.SupervisorID, worker types.WorkerID, woa types.WorkOrderActivity, delegate Delegate) {
	workers, ok := s.Delegations[supervisor]
	if !ok {
		workers = make(map[types.WorkerID]map[types.WorkOrderActivity]Delegate)
		s.Delegations[supervisor] = workers
	}
	pairs, ok := workers[worker]
	if !ok {
		pairs = make(map[types.WorkOrderActivity]Delegate)
		workers[worker] = pairs
	}
	pairs[woa] = delegate
}

// DelegatesFor merges every supervisor's decisions for one worker.
func (s *SupervisorSolution) DelegatesFor(worker types.WorkerID) map[types.WorkOrderActivity]Delegate {
	merged := make(map[types.WorkOrderActivity]Delegate)
	for _, workers := range s.Delegations {
		for woa, delegate := range workers[worker] {
			merged[woa] = delegate
		}
	}
	return merged
}

// DelegatedTasks lists the activities the worker may schedule, in a
// stable order.
func (s *SupervisorSolution) DelegatedTasks(worker types.WorkerID) []types.WorkOrderActivity {
	var tasks []types.WorkOrderActivity
	for woa, delegate := range s.DelegatesFor(worker) {
		if delegate.Schedulable() {
			tasks = append(tasks, woa)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].WorkOrderNumber != tasks[j].WorkOrderNumber {
			return tasks[i].WorkOrderNumber < tasks[j].WorkOrderNumber
		}
		return tasks[i].ActivityNumber < tasks[j].ActivityNumber
	})
	return tasks
}
