package environment

import (
	"fmt"

	"github.com/bosunhq/bosun/pkg/types"
)

// Environment is the scheduling environment: the catalog of work orders,
// the time horizon, the worker pool and the capacity tables. It is the
// source of truth for actor parameters.
//
// An Environment value is never mutated after publication. Edits go
// through Clone and the mutation helpers; the orchestrator distributes
// the resulting value to actors over state links.
type Environment struct {
	WorkOrders map[types.WorkOrderNumber]*types.WorkOrder
	Periods    []types.Period
	Days       []types.Day
	Workers    map[types.WorkerID]*types.Worker

	// StrategicCapacity is hours per (resource, period id);
	// TacticalCapacity is hours per (resource, day index).
	StrategicCapacity map[types.Resource]map[int]float64
	TacticalCapacity  map[types.Resource]map[int]float64
}

// WorkOrdersByAsset filters the catalog down to one installation.
func (e *Environment) WorkOrdersByAsset(asset types.Asset) map[types.WorkOrderNumber]*types.WorkOrder {
	filtered := make(map[types.WorkOrderNumber]*types.WorkOrder)
	for number, wo := range e.WorkOrders {
		if wo.FunctionalLocation.Asset == asset {
			filtered[number] = wo
		}
	}
	return filtered
}

// WorkersByAsset filters the worker pool down to one installation.
func (e *Environment) WorkersByAsset(asset types.Asset) map[types.WorkerID]*types.Worker {
	filtered := make(map[types.WorkerID]*types.Worker)
	for id, w := range e.Workers {
		if w.Asset == asset {
			filtered[id] = w
		}
	}
	return filtered
}

// Assets lists the installations present in the catalog.
func (e *Environment) Assets() []types.Asset {
	seen := make(map[types.Asset]struct{})
	var assets []types.Asset
	for _, wo := range e.WorkOrders {
		asset := wo.FunctionalLocation.Asset
		if _, ok := seen[asset]; !ok && asset != types.AssetUnknown {
			seen[asset] = struct{}{}
			assets = append(assets, asset)
		}
	}
	for _, w := range e.Workers {
		if _, ok := seen[w.Asset]; !ok && w.Asset != types.AssetUnknown {
			seen[w.Asset] = struct{}{}
			assets = append(assets, w.Asset)
		}
	}
	return assets
}

// GetWorkOrder looks a work order up by number.
func (e *Environment) GetWorkOrder(number types.WorkOrderNumber) (*types.WorkOrder, error) {
	wo, ok := e.WorkOrders[number]
	if !ok {
		return nil, fmt.Errorf("work order %d not found", number)
	}
	return wo, nil
}

// Clone deep-copies the environment so a change set can be applied
// without touching the published value.
func (e *Environment) Clone() *Environment {
	clone := &Environment{
		WorkOrders:        make(map[types.WorkOrderNumber]*types.WorkOrder, len(e.WorkOrders)),
		Periods:           append([]types.Period(nil), e.Periods...),
		Days:              append([]types.Day(nil), e.Days...),
		Workers:           make(map[types.WorkerID]*types.Worker, len(e.Workers)),
		StrategicCapacity: cloneCapacity(e.StrategicCapacity),
		TacticalCapacity:  cloneCapacity(e.TacticalCapacity),
	}
	for number, wo := range e.WorkOrders {
		copied := *wo
		copied.Operations = make(map[types.ActivityNumber]*types.Operation, len(wo.Operations))
		for activity, op := range wo.Operations {
			opCopy := *op
			copied.Operations[activity] = &opCopy
		}
		clone.WorkOrders[number] = &copied
	}
	for id, w := range e.Workers {
		copied := *w
		copied.Resources = append([]types.Resource(nil), w.Resources...)
		clone.Workers[id] = &copied
	}
	return clone
}

// WithWorkOrder returns a new environment with the work order upserted.
func (e *Environment) WithWorkOrder(wo *types.WorkOrder) (*Environment, error) {
	if err := wo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid work order: %w", err)
	}
	clone := e.Clone()
	clone.WorkOrders[wo.Number] = wo
	return clone, nil
}

// WithWorker returns a new environment with the worker upserted.
func (e *Environment) WithWorker(w *types.Worker) (*Environment, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid worker: %w", err)
	}
	clone := e.Clone()
	clone.Workers[w.ID] = w
	return clone, nil
}

// WithoutWorker returns a new environment with the worker removed.
func (e *Environment) WithoutWorker(id types.WorkerID) *Environment {
	clone := e.Clone()
	delete(clone.Workers, id)
	return clone
}

func cloneCapacity(capacity map[types.Resource]map[int]float64) map[types.Resource]map[int]float64 {
	clone := make(map[types.Resource]map[int]float64, len(capacity))
	for resource, cells := range capacity {
		inner := make(map[int]float64, len(cells))
		for key, hours := range cells {
			inner[key] = hours
		}
		clone[resource] = inner
	}
	return clone
}
