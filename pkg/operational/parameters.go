package operational

import (
	"fmt"
	"time"

	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/types"
)

// Parameter is one activity's operational input: the contiguous wrench
// time this worker owes it.
type Parameter struct {
	WOA            types.WorkOrderActivity
	WrenchDuration time.Duration
	Preparation    time.Duration
}

// Parameters is one worker's operational input set.
type Parameters struct {
	Worker       *types.Worker
	Availability types.Availability
	Break        types.TimeInterval
	OffShift     types.TimeInterval
	Toolbox      types.TimeInterval
	WorkOrders   map[types.WorkOrderActivity]*Parameter
}

// BuildParameters derives a worker's operational parameters from the
// environment.
func BuildParameters(env *environment.Environment, workerID types.WorkerID) (*Parameters, error) {
	worker, ok := env.Workers[workerID]
	if !ok {
		return nil, fmt.Errorf("worker %s not found", workerID)
	}
	if err := worker.Validate(); err != nil {
		return nil, fmt.Errorf("worker %s: %w", workerID, err)
	}

	params := &Parameters{
		Worker:       worker,
		Availability: worker.Availability,
		Break:        worker.Break,
		OffShift:     worker.OffShift,
		Toolbox:      worker.Toolbox,
		WorkOrders:   make(map[types.WorkOrderActivity]*Parameter),
	}

	for number, wo := range env.WorkOrdersByAsset(worker.Asset) {
		for activity, op := range wo.Operations {
			if !worker.CanPerform(op.Resource) {
				continue
			}
			wrench := op.WrenchDuration()
			if wrench <= 0 {
				continue
			}
			woa := types.WorkOrderActivity{WorkOrderNumber: number, ActivityNumber: activity}
			params.WorkOrders[woa] = &Parameter{
				WOA:            woa,
				WrenchDuration: wrench,
				Preparation:    time.Duration(op.PreparationTime * float64(time.Hour)),
			}
		}
	}
	return params, nil
}
