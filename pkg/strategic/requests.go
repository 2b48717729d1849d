package strategic

import (
	"fmt"

	"github.com/bosunhq/bosun/pkg/alns"
	"github.com/bosunhq/bosun/pkg/types"
)

// Request kinds served by the strategic actor.
const (
	RequestStatus     = "status"
	RequestSchedule   = "schedule"
	RequestExclude    = "exclude"
	RequestPeriodLock = "period-lock"
)

// ScheduleRequest pins a work order to a period.
type ScheduleRequest struct {
	WorkOrderNumber types.WorkOrderNumber `json:"work_order_number" validate:"required"`
	PeriodID        int                   `json:"period_id" validate:"min=0"`
}

// ExcludeRequest forbids a period for a work order.
type ExcludeRequest struct {
	WorkOrderNumber types.WorkOrderNumber `json:"work_order_number" validate:"required"`
	PeriodID        int                   `json:"period_id" validate:"min=0"`
}

// PeriodLockRequest toggles a global period lock.
type PeriodLockRequest struct {
	PeriodID int  `json:"period_id" validate:"min=0"`
	Locked   bool `json:"locked"`
}

// StatusResponse is the strategic status summary.
type StatusResponse struct {
	Objective  uint64 `json:"objective"`
	WorkOrders int    `json:"work_orders"`
	Periods    int    `json:"periods"`
}

// HandleRequest serves synchronous requests between iterations. Manual
// interventions reset the incumbent so the next iteration republishes
// unconditionally.
func (a *Algorithm) HandleRequest(req alns.Request) alns.Response {
	switch req.Kind {
	case RequestStatus:
		scheduled := 0
		for _, period := range a.solution.Assignments {
			if period != nil {
				scheduled++
			}
		}
		return alns.Response{Payload: StatusResponse{
			Objective:  a.solution.Objective,
			WorkOrders: scheduled,
			Periods:    len(a.params.Periods),
		}}

	case RequestSchedule:
		payload, ok := req.Payload.(ScheduleRequest)
		if !ok {
			return alns.Response{Err: fmt.Errorf("schedule request: unexpected payload %T", req.Payload)}
		}
		return alns.Response{Err: a.pin(payload)}

	case RequestExclude:
		payload, ok := req.Payload.(ExcludeRequest)
		if !ok {
			return alns.Response{Err: fmt.Errorf("exclude request: unexpected payload %T", req.Payload)}
		}
		return alns.Response{Err: a.exclude(payload)}

	case RequestPeriodLock:
		payload, ok := req.Payload.(PeriodLockRequest)
		if !ok {
			return alns.Response{Err: fmt.Errorf("period lock request: unexpected payload %T", req.Payload)}
		}
		if payload.Locked {
			a.params.PeriodLocks[payload.PeriodID] = struct{}{}
		} else {
			delete(a.params.PeriodLocks, payload.PeriodID)
		}
		a.objectiveSet = false
		return alns.Response{}

	default:
		return alns.Response{Err: fmt.Errorf("strategic level serves no %q request", req.Kind)}
	}
}

func (a *Algorithm) pin(req ScheduleRequest) error {
	param, ok := a.params.WorkOrders[req.WorkOrderNumber]
	if !ok {
		return fmt.Errorf("work order %d not found", req.WorkOrderNumber)
	}
	period, err := a.periodByID(req.PeriodID)
	if err != nil {
		return err
	}
	param.LockedIn = &period
	a.scheduleForced(req.WorkOrderNumber, param)
	a.objectiveSet = false
	return nil
}

func (a *Algorithm) exclude(req ExcludeRequest) error {
	param, ok := a.params.WorkOrders[req.WorkOrderNumber]
	if !ok {
		return fmt.Errorf("work order %d not found", req.WorkOrderNumber)
	}
	if _, err := a.periodByID(req.PeriodID); err != nil {
		return err
	}
	param.ExcludedPeriods[req.PeriodID] = struct{}{}

	// An exclusion that collides with a pin wins: the pin is dropped and
	// the work order pushed to the overflow period.
	if param.LockedIn != nil && param.LockedIn.ID == req.PeriodID {
		param.LockedIn = nil
		a.unscheduleSingle(req.WorkOrderNumber)
		last := a.params.LastPeriod()
		a.solution.Assignments[req.WorkOrderNumber] = &last
		a.solution.AddLoad(param.Load, last.ID, 1)
	} else if current := a.solution.Assignments[req.WorkOrderNumber]; current != nil && current.ID == req.PeriodID {
		a.unscheduleSingle(req.WorkOrderNumber)
	}
	a.objectiveSet = false
	return nil
}

func (a *Algorithm) periodByID(id int) (types.Period, error) {
	for _, p := range a.params.Periods {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Period{}, fmt.Errorf("period %d outside the strategic horizon", id)
}
