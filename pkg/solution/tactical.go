package solution

import (
	"time"

	"github.com/bosunhq/bosun/pkg/types"
)

// TacticalState says where a work order currently lives from the
// tactical level's point of view.
type TacticalState string

const (
	// TacticalNotScheduled means the tactical level has not placed the
	// work order yet.
	TacticalNotScheduled TacticalState = "not-scheduled"
	// TacticalStrategicOnly means the work order was released back to
	// strategic visibility: it did not fit the tactical horizon.
	TacticalStrategicOnly TacticalState = "strategic-only"
	// TacticalScheduled means every activity has a day placement.
	TacticalScheduled TacticalState = "scheduled"
)

// DayLoad is the hours an activity consumes on one day.
type DayLoad struct {
	Day   types.Day `json:"day"`
	Hours float64   `json:"hours"`
}

// TacticalWorkOrder is one work order's tactical placement.
type TacticalWorkOrder struct {
	State      TacticalState                        `json:"state"`
	Activities map[types.ActivityNumber][]DayLoad   `json:"activities"`
	Resources  map[types.ActivityNumber]types.Resource `json:"resources"`
}

// TacticalSolution maps work orders to day placements and tracks
// per-resource-per-day loading.
type TacticalSolution struct {
	WorkOrders map[types.WorkOrderNumber]*TacticalWorkOrder `json:"work_orders"`
	Loadings   map[types.Resource]map[int]float64           `json:"loadings"`
	Objective  uint64                                       `json:"objective"`
	// ObjectiveSet distinguishes the initial empty solution from a
	// scored one, so the first scored candidate always publishes.
	ObjectiveSet bool `json:"objective_set"`
}

// NewTacticalSolution builds an empty tactical solution.
func NewTacticalSolution() *TacticalSolution {
	return &TacticalSolution{
		WorkOrders: make(map[types.WorkOrderNumber]*TacticalWorkOrder),
		Loadings:   make(map[types.Resource]map[int]float64),
	}
}

// Clone deep-copies the solution.
func (t *TacticalSolution) Clone() *TacticalSolution {
	clone := &TacticalSolution{
		WorkOrders:   make(map[types.WorkOrderNumber]*TacticalWorkOrder, len(t.WorkOrders)),
		Loadings:     make(map[types.Resource]map[int]float64, len(t.Loadings)),
		Objective:    t.Objective,
		ObjectiveSet: t.ObjectiveSet,
	}
	for number, two := range t.WorkOrders {
		copied := &TacticalWorkOrder{
			State:      two.State,
			Activities: make(map[types.ActivityNumber][]DayLoad, len(two.Activities)),
			Resources:  make(map[types.ActivityNumber]types.Resource, len(two.Resources)),
		}
		for activity, loads := range two.Activities {
			copied.Activities[activity] = append([]DayLoad(nil), loads...)
		}
		for activity, resource := range two.Resources {
			copied.Resources[activity] = resource
		}
		clone.WorkOrders[number] = copied
	}
	for resource, cells := range t.Loadings {
		inner := make(map[int]float64, len(cells))
		for index, hours := range cells {
			inner[index] = hours
		}
		clone.Loadings[resource] = inner
	}
	return clone
}

// Loading returns the hours loaded on a (resource, day) cell.
func (t *TacticalSolution) Loading(resource types.Resource, dayIndex int) float64 {
	cells, ok := t.Loadings[resource]
	if !ok {
		return 0
	}
	return cells[dayIndex]
}

// AddLoading applies hours to a (resource, day) cell.
func (t *TacticalSolution) AddLoading(resource types.Resource, dayIndex int, hours float64) {
	cells, ok := t.Loadings[resource]
	if !ok {
		cells = make(map[int]float64)
		t.Loadings[resource] = cells
	}
	cells[dayIndex] += hours
}

// StartAndFinish returns the day window of an activity's placement. The
// finish is exclusive: midnight after the last loaded day.
func (t *TacticalSolution) StartAndFinish(woa types.WorkOrderActivity) (time.Time, time.Time, bool) {
	two, ok := t.WorkOrders[woa.WorkOrderNumber]
	if !ok || two.State != TacticalScheduled {
		return time.Time{}, time.Time{}, false
	}
	loads, ok := two.Activities[woa.ActivityNumber]
	if !ok || len(loads) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start := loads[0].Day.Date
	finish := loads[len(loads)-1].Day.Date.Add(24 * time.Hour)
	return start, finish, true
}

// DayRangeContains reports whether the activity's placement covers the
// calendar date of t.
func (t *TacticalSolution) DayRangeContains(woa types.WorkOrderActivity, moment time.Time) bool {
	start, finish, ok := t.StartAndFinish(woa)
	if !ok {
		return false
	}
	return !moment.Before(start) && moment.Before(finish)
}
