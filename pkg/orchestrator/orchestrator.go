package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bosunhq/bosun/pkg/alns"
	"github.com/bosunhq/bosun/pkg/config"
	"github.com/bosunhq/bosun/pkg/environment"
	"github.com/bosunhq/bosun/pkg/events"
	"github.com/bosunhq/bosun/pkg/log"
	"github.com/bosunhq/bosun/pkg/metrics"
	"github.com/bosunhq/bosun/pkg/operational"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/storage"
	"github.com/bosunhq/bosun/pkg/strategic"
	"github.com/bosunhq/bosun/pkg/supervisor"
	"github.com/bosunhq/bosun/pkg/tactical"
	"github.com/bosunhq/bosun/pkg/types"
)

// ActorSet is one asset's actor ensemble sharing a single solution
// store. Actors of different assets share nothing.
type ActorSet struct {
	Asset types.Asset
	Store *solution.Store

	Strategic    *alns.Actor
	Tactical     *alns.Actor
	Supervisors  map[types.SupervisorID]*alns.Actor
	Operationals map[types.WorkerID]*alns.Actor

	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	cancels map[string]context.CancelFunc
}

// Orchestrator owns the per-asset actor sets, propagates external
// mutations as state links, and answers query requests. Actors never
// hold a reference back to the orchestrator; all coordination flows
// through the broker and the shared stores.
type Orchestrator struct {
	cfg     *config.Config
	source  *environment.AtomicSource
	broker  *events.Broker
	persist storage.Store
	logger  zerolog.Logger

	mu     sync.Mutex
	assets map[types.Asset]*ActorSet
	seed   atomic.Int64
}

// New builds an orchestrator over an ingested environment. persist may
// be nil to run without durable snapshots.
func New(cfg *config.Config, env *environment.Environment, persist storage.Store) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		source:  environment.NewAtomicSource(env),
		broker:  events.NewBroker(),
		persist: persist,
		logger:  log.WithComponent("orchestrator"),
		assets:  make(map[types.Asset]*ActorSet),
	}
	o.seed.Store(time.Now().UnixNano())
	return o
}

// Environment exposes the current environment snapshot.
func (o *Orchestrator) Environment() *environment.Environment {
	return o.source.Current()
}

// Start spawns actor sets for every asset in the catalog and runs until
// the context is cancelled.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.broker.Start()

	env := o.source.Current()
	for _, asset := range env.Assets() {
		if err := o.startAsset(ctx, asset); err != nil {
			return fmt.Errorf("starting asset %s: %w", asset, err)
		}
	}

	if o.persist != nil && o.cfg.Scheduler.PersistInterval > 0 {
		go o.persistLoop(ctx)
	}
	return nil
}

// Stop tears every actor set down and stops the broker.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	sets := make([]*ActorSet, 0, len(o.assets))
	for _, set := range o.assets {
		sets = append(sets, set)
	}
	o.mu.Unlock()

	for _, set := range sets {
		set.cancel()
		_ = set.group.Wait()
	}
	o.broker.Stop()
}

// Assets lists the running assets.
func (o *Orchestrator) Assets() []types.Asset {
	o.mu.Lock()
	defer o.mu.Unlock()
	assets := make([]types.Asset, 0, len(o.assets))
	for asset := range o.assets {
		assets = append(assets, asset)
	}
	return assets
}

// ActorSetFor returns the asset's actor set.
func (o *Orchestrator) ActorSetFor(asset types.Asset) (*ActorSet, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	set, ok := o.assets[asset]
	if !ok {
		return nil, fmt.Errorf("asset %s is not running", asset)
	}
	return set, nil
}

func (o *Orchestrator) nextSeed() int64 {
	return o.seed.Add(1)
}

func (o *Orchestrator) startAsset(ctx context.Context, asset types.Asset) error {
	env := o.source.Current()

	store := solution.NewStore(o.initialSnapshot(asset))

	assetCtx, cancel := context.WithCancel(ctx)
	group, assetCtx := errgroup.WithContext(assetCtx)

	set := &ActorSet{
		Asset:        asset,
		Store:        store,
		Supervisors:  make(map[types.SupervisorID]*alns.Actor),
		Operationals: make(map[types.WorkerID]*alns.Actor),
		ctx:          assetCtx,
		cancel:       cancel,
		cancels:      make(map[string]context.CancelFunc),
	}
	set.group = group

	strategicAlg, err := strategic.New(asset, o.source, &o.cfg.Weights, o.cfg.Scheduler.MaterialOffsets, strategic.Options{
		NumberOfRemoved: o.cfg.Scheduler.StrategicRemoved,
		Horizon:         o.cfg.Scheduler.StrategicPeriods,
	})
	if err != nil {
		cancel()
		return err
	}
	set.Strategic = alns.NewActor(fmt.Sprintf("strategic-%s", asset), asset, strategicAlg, store, o.broker.Subscribe(asset), o.nextSeed())

	tacticalAlg, err := tactical.New(asset, o.source, &o.cfg.Weights, tactical.Options{
		NumberOfRemoved: o.cfg.Scheduler.TacticalRemoved,
		Horizon:         o.cfg.Scheduler.TacticalDays,
	})
	if err != nil {
		cancel()
		return err
	}
	set.Tactical = alns.NewActor(fmt.Sprintf("tactical-%s", asset), asset, tacticalAlg, store, o.broker.Subscribe(asset), o.nextSeed())

	supervisorID := types.SupervisorID(fmt.Sprintf("SUP-%s-1", asset))
	supervisorAlg := supervisor.New(supervisorID, asset, o.source, &o.cfg.Weights, supervisor.Options{
		NumberOfRemoved: o.cfg.Scheduler.SupervisorRemoved,
	})
	set.Supervisors[supervisorID] = alns.NewActor(string(supervisorID), asset, supervisorAlg, store, o.broker.Subscribe(asset), o.nextSeed())

	for workerID := range env.WorkersByAsset(asset) {
		operationalAlg, err := operational.New(workerID, o.source, operational.Options{
			NumberOfRemovedActivities: o.cfg.Scheduler.OperationalRemoved,
		})
		if err != nil {
			cancel()
			return err
		}
		set.Operationals[workerID] = alns.NewActor(string(workerID), asset, operationalAlg, store, o.broker.Subscribe(asset), o.nextSeed())
	}

	o.mu.Lock()
	o.assets[asset] = set
	o.mu.Unlock()

	o.spawn(set, set.Strategic)
	o.spawn(set, set.Tactical)
	for _, actor := range set.Supervisors {
		o.spawn(set, actor)
	}
	for _, actor := range set.Operationals {
		o.spawn(set, actor)
	}

	go o.watch(set)

	metrics.AssetUnhealthy.WithLabelValues(string(asset)).Set(0)
	metrics.WorkOrdersTotal.WithLabelValues(string(asset)).Set(float64(len(env.WorkOrdersByAsset(asset))))
	metrics.WorkersTotal.WithLabelValues(string(asset)).Set(float64(len(env.WorkersByAsset(asset))))
	o.logger.Info().Str("asset", string(asset)).Int("operationals", len(set.Operationals)).Msg("Asset actor set started")
	return nil
}

// initialSnapshot seeds an asset's store from the persisted state when
// one exists, otherwise empty.
func (o *Orchestrator) initialSnapshot(asset types.Asset) *solution.Snapshot {
	if o.persist != nil {
		if snap, err := o.persist.LoadSnapshot(asset); err == nil {
			o.logger.Info().Str("asset", string(asset)).Msg("Restored persisted snapshot")
			return snap
		}
	}
	return solution.NewSnapshot()
}

// spawn runs one actor inside the asset's error group with panic
// containment: a panicking actor escalates as a fatal asset error. Each
// actor gets its own cancel so it can be retired individually.
func (o *Orchestrator) spawn(set *ActorSet, actor *alns.Actor) {
	actorCtx, cancel := context.WithCancel(set.ctx)

	o.mu.Lock()
	set.cancels[actor.Name] = cancel
	o.mu.Unlock()

	set.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("actor %s panicked: %v", actor.Name, r)
			}
		}()
		return actor.Run(actorCtx)
	})
}

// retire cancels one actor without touching the rest of the asset.
func (o *Orchestrator) retire(set *ActorSet, name string) {
	o.mu.Lock()
	cancel, ok := set.cancels[name]
	delete(set.cancels, name)
	o.mu.Unlock()
	if ok {
		cancel()
	}
}

// watch escalates a fatal actor exit: the asset's remaining actors are
// torn down and the asset flips to unhealthy.
func (o *Orchestrator) watch(set *ActorSet) {
	if err := set.group.Wait(); err != nil {
		o.logger.Error().Err(err).Str("asset", string(set.Asset)).Msg("Actor set failed, tearing asset down")
		set.cancel()
		metrics.AssetUnhealthy.WithLabelValues(string(set.Asset)).Set(1)
	}
}

// Healthy reports whether the asset's actor set is still running.
func (o *Orchestrator) Healthy(asset types.Asset) bool {
	set, err := o.ActorSetFor(asset)
	if err != nil {
		return false
	}
	select {
	case <-set.ctx.Done():
		return false
	default:
		return true
	}
}

func (o *Orchestrator) persistLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.Scheduler.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.persistAll()
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) persistAll() {
	o.mu.Lock()
	sets := make([]*ActorSet, 0, len(o.assets))
	for _, set := range o.assets {
		sets = append(sets, set)
	}
	o.mu.Unlock()

	for _, set := range sets {
		timer := metrics.NewTimer()
		if err := o.persist.SaveSnapshot(set.Asset, set.Store.Load()); err != nil {
			o.logger.Error().Err(err).Str("asset", string(set.Asset)).Msg("Failed to persist snapshot")
			continue
		}
		timer.ObserveDuration(metrics.SnapshotPersistDuration)
	}
}
