package orchestrator

import (
	"context"
	"fmt"

	"github.com/bosunhq/bosun/pkg/alns"
	"github.com/bosunhq/bosun/pkg/events"
	"github.com/bosunhq/bosun/pkg/metrics"
	"github.com/bosunhq/bosun/pkg/operational"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/strategic"
	"github.com/bosunhq/bosun/pkg/supervisor"
	"github.com/bosunhq/bosun/pkg/tactical"
	"github.com/bosunhq/bosun/pkg/types"
)

// StrategicStatus queries the asset's strategic actor.
func (o *Orchestrator) StrategicStatus(ctx context.Context, asset types.Asset) (strategic.StatusResponse, error) {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return strategic.StatusResponse{}, err
	}
	resp, err := set.Strategic.Submit(ctx, strategic.RequestStatus, nil, o.cfg.API.RequestTimeout)
	if err != nil {
		return strategic.StatusResponse{}, err
	}
	if resp.Err != nil {
		return strategic.StatusResponse{}, resp.Err
	}
	status, ok := resp.Payload.(strategic.StatusResponse)
	if !ok {
		return strategic.StatusResponse{}, fmt.Errorf("unexpected strategic status payload %T", resp.Payload)
	}
	return status, nil
}

// TacticalStatus queries the asset's tactical actor.
func (o *Orchestrator) TacticalStatus(ctx context.Context, asset types.Asset) (tactical.StatusResponse, error) {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return tactical.StatusResponse{}, err
	}
	resp, err := set.Tactical.Submit(ctx, "status", nil, o.cfg.API.RequestTimeout)
	if err != nil {
		return tactical.StatusResponse{}, err
	}
	if resp.Err != nil {
		return tactical.StatusResponse{}, resp.Err
	}
	status, ok := resp.Payload.(tactical.StatusResponse)
	if !ok {
		return tactical.StatusResponse{}, fmt.Errorf("unexpected tactical status payload %T", resp.Payload)
	}
	return status, nil
}

// SupervisorStatuses queries every supervisor of the asset.
func (o *Orchestrator) SupervisorStatuses(ctx context.Context, asset types.Asset) ([]supervisor.StatusResponse, error) {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return nil, err
	}
	var statuses []supervisor.StatusResponse
	for _, actor := range set.Supervisors {
		resp, err := actor.Submit(ctx, "status", nil, o.cfg.API.RequestTimeout)
		if err != nil {
			return nil, err
		}
		if resp.Err != nil {
			return nil, resp.Err
		}
		if status, ok := resp.Payload.(supervisor.StatusResponse); ok {
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// OperationalStatuses queries every worker's operational actor, yielding
// the wrench-time percentage per worker.
func (o *Orchestrator) OperationalStatuses(ctx context.Context, asset types.Asset) ([]operational.StatusResponse, error) {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return nil, err
	}
	var statuses []operational.StatusResponse
	for _, actor := range set.Operationals {
		resp, err := actor.Submit(ctx, "status", nil, o.cfg.API.RequestTimeout)
		if err != nil {
			return nil, err
		}
		if resp.Err != nil {
			return nil, resp.Err
		}
		if status, ok := resp.Payload.(operational.StatusResponse); ok {
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// PinWorkOrder pins a work order to a period on the asset's strategic
// actor.
func (o *Orchestrator) PinWorkOrder(ctx context.Context, asset types.Asset, req strategic.ScheduleRequest) error {
	return o.strategicCommand(ctx, asset, strategic.RequestSchedule, req)
}

// ExcludePeriod forbids a period for a work order.
func (o *Orchestrator) ExcludePeriod(ctx context.Context, asset types.Asset, req strategic.ExcludeRequest) error {
	return o.strategicCommand(ctx, asset, strategic.RequestExclude, req)
}

// LockPeriod toggles a global period lock.
func (o *Orchestrator) LockPeriod(ctx context.Context, asset types.Asset, req strategic.PeriodLockRequest) error {
	return o.strategicCommand(ctx, asset, strategic.RequestPeriodLock, req)
}

func (o *Orchestrator) strategicCommand(ctx context.Context, asset types.Asset, kind string, payload any) error {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return err
	}
	resp, err := set.Strategic.Submit(ctx, kind, payload, o.cfg.API.RequestTimeout)
	if err != nil {
		return err
	}
	return resp.Err
}

// UserStatusToggle flips a user status bit on a work order.
type UserStatusToggle struct {
	SCH  *bool `json:"sch,omitempty"`
	AWSC *bool `json:"awsc,omitempty"`
	SECE *bool `json:"sece,omitempty"`
}

// ToggleUserStatus applies a user-status toggle to the catalog and fans
// the change out to the asset's actors as a state link.
func (o *Orchestrator) ToggleUserStatus(number types.WorkOrderNumber, toggle UserStatusToggle) error {
	env := o.source.Current()
	wo, err := env.GetWorkOrder(number)
	if err != nil {
		return err
	}

	updated := *wo
	if toggle.SCH != nil {
		updated.UserStatus.SCH = *toggle.SCH
	}
	if toggle.AWSC != nil {
		updated.UserStatus.AWSC = *toggle.AWSC
	}
	if toggle.SECE != nil {
		updated.UserStatus.SECE = *toggle.SECE
	}

	next, err := env.WithWorkOrder(&updated)
	if err != nil {
		return err
	}
	o.source.Replace(next)

	o.broker.Publish(events.StateLink{
		Kind:       events.KindWorkOrders,
		Asset:      updated.FunctionalLocation.Asset,
		WorkOrders: []types.WorkOrderNumber{number},
	})
	return nil
}

// UpsertWorkOrder replaces or adds a work order and notifies the
// asset's actors.
func (o *Orchestrator) UpsertWorkOrder(wo *types.WorkOrder) error {
	next, err := o.source.Current().WithWorkOrder(wo)
	if err != nil {
		return err
	}
	o.source.Replace(next)
	metrics.WorkOrdersTotal.WithLabelValues(string(wo.FunctionalLocation.Asset)).
		Set(float64(len(next.WorkOrdersByAsset(wo.FunctionalLocation.Asset))))

	o.broker.Publish(events.StateLink{
		Kind:       events.KindWorkOrders,
		Asset:      wo.FunctionalLocation.Asset,
		WorkOrders: []types.WorkOrderNumber{wo.Number},
	})
	return nil
}

// CreateSupervisor spawns an additional supervisor actor for the asset.
func (o *Orchestrator) CreateSupervisor(asset types.Asset, id types.SupervisorID) error {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return err
	}

	alg := supervisor.New(id, asset, o.source, &o.cfg.Weights, supervisor.Options{
		NumberOfRemoved: o.cfg.Scheduler.SupervisorRemoved,
	})
	actor := alns.NewActor(string(id), asset, alg, set.Store, o.broker.Subscribe(asset), o.nextSeed())

	o.mu.Lock()
	if _, exists := set.Supervisors[id]; exists {
		o.mu.Unlock()
		return fmt.Errorf("supervisor %s already exists", id)
	}
	set.Supervisors[id] = actor
	o.mu.Unlock()

	o.spawn(set, actor)
	o.logger.Info().Str("asset", string(asset)).Str("supervisor", string(id)).Msg("Supervisor created")
	return nil
}

// DeleteSupervisor removes a supervisor actor and its delegations.
func (o *Orchestrator) DeleteSupervisor(asset types.Asset, id types.SupervisorID) error {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return err
	}

	o.mu.Lock()
	_, exists := set.Supervisors[id]
	delete(set.Supervisors, id)
	o.mu.Unlock()
	if !exists {
		return fmt.Errorf("supervisor %s not found", id)
	}
	o.retire(set, string(id))

	// Retire the published delegations so operational actors drop the
	// pairings on their next incorporate step.
	set.Store.Update(func(old *solution.Snapshot) *solution.Snapshot {
		sup := old.Supervisor.Clone()
		delete(sup.Delegations, id)
		return &solution.Snapshot{
			Strategic:   old.Strategic,
			Tactical:    old.Tactical,
			Supervisor:  sup,
			Operational: old.Operational,
		}
	})
	o.logger.Info().Str("asset", string(asset)).Str("supervisor", string(id)).Msg("Supervisor deleted")
	return nil
}

// CreateOperational adds a worker to the pool and spawns its actor.
func (o *Orchestrator) CreateOperational(worker *types.Worker) error {
	set, err := o.ActorSetFor(worker.Asset)
	if err != nil {
		return err
	}

	next, err := o.source.Current().WithWorker(worker)
	if err != nil {
		return err
	}
	o.source.Replace(next)
	metrics.WorkersTotal.WithLabelValues(string(worker.Asset)).
		Set(float64(len(next.WorkersByAsset(worker.Asset))))

	alg, err := operational.New(worker.ID, o.source, operational.Options{
		NumberOfRemovedActivities: o.cfg.Scheduler.OperationalRemoved,
	})
	if err != nil {
		return err
	}

	o.mu.Lock()
	if _, exists := set.Operationals[worker.ID]; exists {
		o.mu.Unlock()
		return fmt.Errorf("operational %s already exists", worker.ID)
	}
	actor := alns.NewActor(string(worker.ID), worker.Asset, alg, set.Store, o.broker.Subscribe(worker.Asset), o.nextSeed())
	set.Operationals[worker.ID] = actor
	o.mu.Unlock()

	o.spawn(set, actor)
	o.broker.Publish(events.StateLink{
		Kind:   events.KindWorkerEnvironment,
		Asset:  worker.Asset,
		Worker: worker.ID,
	})
	o.logger.Info().Str("worker", string(worker.ID)).Msg("Operational created")
	return nil
}

// DeleteOperational removes a worker and retires its timeline.
func (o *Orchestrator) DeleteOperational(asset types.Asset, workerID types.WorkerID) error {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return err
	}

	o.mu.Lock()
	_, exists := set.Operationals[workerID]
	delete(set.Operationals, workerID)
	o.mu.Unlock()
	if !exists {
		return fmt.Errorf("operational %s not found", workerID)
	}
	o.retire(set, string(workerID))

	next := o.source.Current().WithoutWorker(workerID)
	o.source.Replace(next)
	metrics.WorkersTotal.WithLabelValues(string(asset)).
		Set(float64(len(next.WorkersByAsset(asset))))

	set.Store.Update(func(old *solution.Snapshot) *solution.Snapshot {
		operationalSol := old.Operational.Clone()
		delete(operationalSol.Workers, workerID)
		return &solution.Snapshot{
			Strategic:   old.Strategic,
			Tactical:    old.Tactical,
			Supervisor:  old.Supervisor,
			Operational: operationalSol,
		}
	})

	o.broker.Publish(events.StateLink{
		Kind:   events.KindWorkerEnvironment,
		Asset:  asset,
		Worker: workerID,
	})
	o.logger.Info().Str("worker", string(workerID)).Msg("Operational deleted")
	return nil
}

// Export returns the asset's current shared solution tuple.
func (o *Orchestrator) Export(asset types.Asset) (*solution.Snapshot, error) {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return nil, err
	}
	return set.Store.Load(), nil
}
