package tactical

import (
	"fmt"
	"time"

	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/types"
)

// OperationParameter is one activity's tactical placement input.
type OperationParameter struct {
	Activity      types.ActivityNumber
	Resource      types.Resource
	Work          float64
	OperatingTime float64
}

// Parameter is one work order's tactical placement input.
type Parameter struct {
	Number        types.WorkOrderNumber
	Weight        uint64
	EarliestStart time.Time
	Operations    map[types.ActivityNumber]*OperationParameter
}

// SortedActivities returns the activity numbers in ascending order; the
// placement walks them sequentially.
func (p *Parameter) SortedActivities() []types.ActivityNumber {
	activities := make([]types.ActivityNumber, 0, len(p.Operations))
	for a := range p.Operations {
		activities = append(activities, a)
	}
	for i := 1; i < len(activities); i++ {
		for j := i; j > 0 && activities[j] < activities[j-1]; j-- {
			activities[j], activities[j-1] = activities[j-1], activities[j]
		}
	}
	return activities
}

// Parameters is the tactical level's view of one asset.
type Parameters struct {
	WorkOrders map[types.WorkOrderNumber]*Parameter
	Days       []types.Day
	Capacity   map[types.Resource]map[int]float64
}

// BuildParameters derives tactical parameters from the environment.
func BuildParameters(env *environment.Environment, asset types.Asset, weights *types.WeightConfig, horizon int) (*Parameters, error) {
	if horizon > len(env.Days) {
		horizon = len(env.Days)
	}
	params := &Parameters{
		WorkOrders: make(map[types.WorkOrderNumber]*Parameter),
		Days:       env.Days[:horizon],
		Capacity:   env.TacticalCapacity,
	}
	for number, wo := range env.WorkOrdersByAsset(asset) {
		p, err := buildParameter(wo, weights)
		if err != nil {
			return nil, fmt.Errorf("tactical parameter for work order %d: %w", number, err)
		}
		params.WorkOrders[number] = p
	}
	return params, nil
}

// Rebuild refreshes the parameters of the given work orders.
func (p *Parameters) Rebuild(env *environment.Environment, asset types.Asset, numbers []types.WorkOrderNumber, weights *types.WeightConfig) error {
	catalog := env.WorkOrdersByAsset(asset)
	for _, number := range numbers {
		wo, ok := catalog[number]
		if !ok {
			delete(p.WorkOrders, number)
			continue
		}
		rebuilt, err := buildParameter(wo, weights)
		if err != nil {
			return fmt.Errorf("tactical parameter for work order %d: %w", number, err)
		}
		p.WorkOrders[number] = rebuilt
	}
	return nil
}

func buildParameter(wo *types.WorkOrder, weights *types.WeightConfig) (*Parameter, error) {
	weight, err := wo.Weight(weights)
	if err != nil {
		return nil, err
	}
	operations := make(map[types.ActivityNumber]*OperationParameter, len(wo.Operations))
	for activity, op := range wo.Operations {
		operations[activity] = &OperationParameter{
			Activity:      activity,
			Resource:      op.Resource,
			Work:          op.Work,
			OperatingTime: op.OperatingTime,
		}
	}
	return &Parameter{
		Number:        wo.Number,
		Weight:        weight,
		EarliestStart: wo.EarliestStart,
		Operations:    operations,
	}, nil
}

// CapacityFor returns the capacity of a (resource, day) cell.
func (p *Parameters) CapacityFor(resource types.Resource, dayIndex int) float64 {
	cells, ok := p.Capacity[resource]
	if !ok {
		return 0
	}
	return cells[dayIndex]
}
