package environment

import (
	"fmt"
	"time"

	"github.com/bosunhq/bosun/pkg/types"
)

// Builder assembles a scheduling environment. It is the ingest interface:
// whatever reads spreadsheets or databases upstream must end up calling
// this, the core never reads files directly.
type Builder struct {
	env  *Environment
	errs []error
}

// NewBuilder starts an empty environment.
func NewBuilder() *Builder {
	return &Builder{
		env: &Environment{
			WorkOrders:        make(map[types.WorkOrderNumber]*types.WorkOrder),
			Workers:           make(map[types.WorkerID]*types.Worker),
			StrategicCapacity: make(map[types.Resource]map[int]float64),
			TacticalCapacity:  make(map[types.Resource]map[int]float64),
		},
	}
}

// Periods publishes n two-week periods starting at start.
func (b *Builder) Periods(n int, start time.Time) *Builder {
	b.env.Periods = types.NewPeriods(n, start)
	return b
}

// Days publishes n tactical days aligned to start.
func (b *Builder) Days(n int, start time.Time) *Builder {
	b.env.Days = types.NewDays(n, start)
	return b
}

// WorkOrder adds a work order to the catalog.
func (b *Builder) WorkOrder(wo *types.WorkOrder) *Builder {
	if err := wo.Validate(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.env.WorkOrders[wo.Number] = wo
	return b
}

// Worker adds a worker to the pool.
func (b *Builder) Worker(w *types.Worker) *Builder {
	if err := w.Validate(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.env.Workers[w.ID] = w
	return b
}

// StrategicCapacity sets the hours available for a resource in every
// published period.
func (b *Builder) StrategicCapacity(resource types.Resource, hoursPerPeriod float64) *Builder {
	cells := make(map[int]float64, len(b.env.Periods))
	for _, p := range b.env.Periods {
		cells[p.ID] = hoursPerPeriod
	}
	b.env.StrategicCapacity[resource] = cells
	return b
}

// TacticalCapacity sets the hours available for a resource on every
// published day.
func (b *Builder) TacticalCapacity(resource types.Resource, hoursPerDay float64) *Builder {
	cells := make(map[int]float64, len(b.env.Days))
	for _, d := range b.env.Days {
		cells[d.Index] = hoursPerDay
	}
	b.env.TacticalCapacity[resource] = cells
	return b
}

// Build finalizes the environment.
func (b *Builder) Build() (*Environment, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("environment build failed: %w", b.errs[0])
	}
	if len(b.env.Periods) == 0 {
		return nil, fmt.Errorf("environment build failed: no periods published")
	}
	if len(b.env.Days) == 0 {
		return nil, fmt.Errorf("environment build failed: no days published")
	}
	return b.env, nil
}
