package solution

import (
	"fmt"
	"math"

	"github.com/bosunhq/bosun/pkg/types"
)

// StrategicSolution maps each work order to its chosen two-week period
// and tracks the resulting per-resource-per-period loading. A nil period
// means the work order is known to the strategic level but unplaced.
type StrategicSolution struct {
	Assignments map[types.WorkOrderNumber]*types.Period `json:"assignments"`
	Loadings    map[types.Resource]map[int]float64      `json:"loadings"`
	Objective   uint64                                  `json:"objective"`
}

// NewStrategicSolution builds an empty strategic solution.
func NewStrategicSolution() *StrategicSolution {
	return &StrategicSolution{
		Assignments: make(map[types.WorkOrderNumber]*types.Period),
		Loadings:    make(map[types.Resource]map[int]float64),
	}
}

// Clone deep-copies the solution.
func (s *StrategicSolution) Clone() *StrategicSolution {
	clone := &StrategicSolution{
		Assignments: make(map[types.WorkOrderNumber]*types.Period, len(s.Assignments)),
		Loadings:    make(map[types.Resource]map[int]float64, len(s.Loadings)),
		Objective:   s.Objective,
	}
	for number, period := range s.Assignments {
		if period == nil {
			clone.Assignments[number] = nil
			continue
		}
		copied := *period
		clone.Assignments[number] = &copied
	}
	for resource, cells := range s.Loadings {
		inner := make(map[int]float64, len(cells))
		for id, hours := range cells {
			inner[id] = hours
		}
		clone.Loadings[resource] = inner
	}
	return clone
}

// ScheduledPeriod returns the chosen period for a work order. The second
// return distinguishes "unplaced" (nil, true) from "unknown upstream"
// (nil, false).
func (s *StrategicSolution) ScheduledPeriod(number types.WorkOrderNumber) (*types.Period, bool) {
	period, ok := s.Assignments[number]
	return period, ok
}

// Loading returns the hours assigned against a (resource, period) cell.
func (s *StrategicSolution) Loading(resource types.Resource, periodID int) float64 {
	cells, ok := s.Loadings[resource]
	if !ok {
		return 0
	}
	return cells[periodID]
}

// AddLoad applies a work order's load vector to a period, sign selects
// add or remove.
func (s *StrategicSolution) AddLoad(load map[types.Resource]float64, periodID int, sign float64) {
	for resource, hours := range load {
		cells, ok := s.Loadings[resource]
		if !ok {
			cells = make(map[int]float64)
			s.Loadings[resource] = cells
		}
		cells[periodID] += sign * hours
	}
}

// VerifyLoadings recomputes the loading table from the assignments and
// compares, enforcing the no-drift invariant between assignments and
// loadings.
func (s *StrategicSolution) VerifyLoadings(loads map[types.WorkOrderNumber]map[types.Resource]float64) error {
	expected := make(map[types.Resource]map[int]float64)
	for number, period := range s.Assignments {
		if period == nil {
			continue
		}
		for resource, hours := range loads[number] {
			cells, ok := expected[resource]
			if !ok {
				cells = make(map[int]float64)
				expected[resource] = cells
			}
			cells[period.ID] += hours
		}
	}
	for resource, cells := range s.Loadings {
		for id, hours := range cells {
			if math.Abs(hours-expected[resource][id]) > 1e-6 {
				return fmt.Errorf("strategic loading drift at (%s, period %d): loading=%.2f recomputed=%.2f",
					resource, id, hours, expected[resource][id])
			}
		}
	}
	for resource, cells := range expected {
		for id, hours := range cells {
			if math.Abs(hours-s.Loading(resource, id)) > 1e-6 {
				return fmt.Errorf("strategic loading drift at (%s, period %d): loading=%.2f recomputed=%.2f",
					resource, id, s.Loading(resource, id), hours)
			}
		}
	}
	return nil
}
