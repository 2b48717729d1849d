package strategic

import (
	"fmt"

	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/types"
)

// Parameter is everything the strategic level needs to place one work
// order: its weight, load vector, derived exclusions and any manual
// intervention.
type Parameter struct {
	Number          types.WorkOrderNumber
	Weight          uint64
	Load            map[types.Resource]float64
	ExcludedPeriods map[int]struct{}
	LatestPeriod    types.Period
	LockedIn        *types.Period
}

// Parameters is the strategic level's view of one asset's catalog plus
// the capacity tables for the strategic horizon.
type Parameters struct {
	WorkOrders  map[types.WorkOrderNumber]*Parameter
	Periods     []types.Period
	Capacity    map[types.Resource]map[int]float64
	PeriodLocks map[int]struct{}
}

// BuildParameters derives strategic parameters for an asset from the
// environment and the injected weight configuration.
func BuildParameters(env *environment.Environment, asset types.Asset, weights *types.WeightConfig, offsets types.MaterialOffsets, horizon int) (*Parameters, error) {
	if horizon > len(env.Periods) {
		horizon = len(env.Periods)
	}
	periods := env.Periods[:horizon]

	params := &Parameters{
		WorkOrders:  make(map[types.WorkOrderNumber]*Parameter),
		Periods:     periods,
		Capacity:    env.StrategicCapacity,
		PeriodLocks: make(map[int]struct{}),
	}

	for number, wo := range env.WorkOrdersByAsset(asset) {
		p, err := buildParameter(wo, periods, weights, offsets)
		if err != nil {
			return nil, fmt.Errorf("strategic parameter for work order %d: %w", number, err)
		}
		params.WorkOrders[number] = p
	}
	return params, nil
}

// Rebuild refreshes the parameters of the given work orders after a
// state link, preserving manual locks. Work orders that left the catalog
// are removed.
func (p *Parameters) Rebuild(env *environment.Environment, asset types.Asset, numbers []types.WorkOrderNumber, weights *types.WeightConfig, offsets types.MaterialOffsets) error {
	catalog := env.WorkOrdersByAsset(asset)
	for _, number := range numbers {
		wo, ok := catalog[number]
		if !ok {
			delete(p.WorkOrders, number)
			continue
		}
		rebuilt, err := buildParameter(wo, p.Periods, weights, offsets)
		if err != nil {
			return fmt.Errorf("strategic parameter for work order %d: %w", number, err)
		}
		if previous, ok := p.WorkOrders[number]; ok {
			rebuilt.LockedIn = previous.LockedIn
			for id := range previous.ExcludedPeriods {
				rebuilt.ExcludedPeriods[id] = struct{}{}
			}
		}
		p.WorkOrders[number] = rebuilt
	}
	return nil
}

func buildParameter(wo *types.WorkOrder, periods []types.Period, weights *types.WeightConfig, offsets types.MaterialOffsets) (*Parameter, error) {
	weight, err := wo.Weight(weights)
	if err != nil {
		return nil, err
	}
	load, err := wo.Load()
	if err != nil {
		return nil, err
	}
	return &Parameter{
		Number:          wo.Number,
		Weight:          weight,
		Load:            load,
		ExcludedPeriods: wo.ExcludedPeriods(periods, offsets),
		LatestPeriod:    wo.LatestAllowedFinishPeriod(periods),
	}, nil
}

// CapacityFor returns the capacity of a (resource, period) cell.
func (p *Parameters) CapacityFor(resource types.Resource, periodID int) float64 {
	cells, ok := p.Capacity[resource]
	if !ok {
		return 0
	}
	return cells[periodID]
}

// LastPeriod is the overflow period: the end of the strategic horizon.
func (p *Parameters) LastPeriod() types.Period {
	return p.Periods[len(p.Periods)-1]
}
