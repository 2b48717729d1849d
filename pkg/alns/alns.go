package alns

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bosunhq/bosun/pkg/events"
	"github.com/bosunhq/bosun/pkg/log"
	"github.com/bosunhq/bosun/pkg/metrics"
	"github.com/bosunhq/bosun/pkg/solution"
	"github.com/bosunhq/bosun/pkg/types"
)

// Outcome reports whether a repaired candidate beat the incumbent.
type Outcome int

const (
	OutcomeWorse Outcome = iota
	OutcomeBetter
)

// Algorithm is the capability set the ALNS worker loop is polymorphic
// over. Each of the four levels supplies one implementation owning its
// own parameters and local solution.
type Algorithm interface {
	// Level names the scheduling level for logs and metrics.
	Level() string

	// IncorporateSystemSolution reconciles the local solution with
	// upstream decisions in the loaded snapshot.
	IncorporateSystemSolution(snap *solution.Snapshot) error

	// Unschedule removes a random subset of scheduled units.
	Unschedule(rng *rand.Rand) error

	// Schedule re-places everything removable using the level's
	// placement policy. The snapshot is the one captured before
	// Unschedule; repair and score see consistent upstream state.
	Schedule(snap *solution.Snapshot) error

	// Objective scores the candidate against the incumbent.
	Objective(snap *solution.Snapshot) (Outcome, error)

	// Publish swaps the improved local solution into the shared store,
	// preserving the other three sub-solutions.
	Publish(store *solution.Store)

	// Rollback restores the local solution after a discarded iteration.
	Rollback()
}

// RequestServer is implemented by algorithms that answer synchronous
// requests between iterations.
type RequestServer interface {
	HandleRequest(req Request) Response
}

// StateLinkHandler is implemented by algorithms that rebuild parameters
// on upstream input changes.
type StateLinkHandler interface {
	HandleStateLink(link events.StateLink) error
}

// Request is a synchronous message served between ALNS iterations.
type Request struct {
	Kind    string
	Payload any
	Reply   chan Response
}

// Response is the actor's answer to a request.
type Response struct {
	Payload any
	Err     error
}

// Actor runs one level's ALNS loop on its own goroutine. All actor state
// is exclusively owned; the only cross-actor mutable state is the shared
// solution store.
type Actor struct {
	ID    string
	Name  string
	Asset types.Asset

	algorithm Algorithm
	store     *solution.Store
	mailbox   chan Request
	links     events.Subscriber
	rng       *rand.Rand
	logger    zerolog.Logger
}

// NewActor wires an algorithm into an actor. seed makes the destroy step
// deterministic for tests; pass a clock-derived seed in production.
func NewActor(name string, asset types.Asset, algorithm Algorithm, store *solution.Store, links events.Subscriber, seed int64) *Actor {
	id := uuid.New().String()
	return &Actor{
		ID:        id,
		Name:      name,
		Asset:     asset,
		algorithm: algorithm,
		store:     store,
		mailbox:   make(chan Request, 16),
		links:     links,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    log.WithActor(algorithm.Level(), name),
	}
}

// Run executes the ALNS loop until the context is cancelled. The loop
// suspends only between iterations: draining the mailbox and state
// links, or inside the store's compare-and-swap retry.
func (a *Actor) Run(ctx context.Context) error {
	a.logger.Info().Str("asset", string(a.Asset)).Msg("Actor started")
	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Actor stopped")
			return nil
		default:
		}

		a.drainMessages()

		timer := metrics.NewTimer()
		if err := a.Iterate(); err != nil {
			metrics.IterationsDiscarded.WithLabelValues(string(a.Asset), a.algorithm.Level()).Inc()
			a.logger.Warn().Err(err).Msg("Iteration discarded")
			a.algorithm.Rollback()
		}
		timer.ObserveDuration(metrics.IterationDuration.WithLabelValues(a.algorithm.Level()))
		metrics.IterationsTotal.WithLabelValues(string(a.Asset), a.algorithm.Level()).Inc()
	}
}

// Iterate performs one destroy-repair-score cycle against a stable
// snapshot, publishing only improvements.
func (a *Actor) Iterate() error {
	snap := a.store.Load()

	if err := a.algorithm.IncorporateSystemSolution(snap); err != nil {
		return fmt.Errorf("incorporate system solution: %w", err)
	}
	if err := a.algorithm.Unschedule(a.rng); err != nil {
		return fmt.Errorf("unschedule: %w", err)
	}
	if err := a.algorithm.Schedule(snap); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	outcome, err := a.algorithm.Objective(snap)
	if err != nil {
		return fmt.Errorf("calculate objective value: %w", err)
	}
	if outcome == OutcomeBetter {
		a.algorithm.Publish(a.store)
		metrics.SnapshotsPublished.WithLabelValues(string(a.Asset), a.algorithm.Level()).Inc()
	}
	return nil
}

// Submit sends a request and waits for the reply within the deadline.
// Called from request-handling threads, never from the actor itself.
func (a *Actor) Submit(ctx context.Context, kind string, payload any, timeout time.Duration) (Response, error) {
	req := Request{Kind: kind, Payload: payload, Reply: make(chan Response, 1)}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case a.mailbox <- req:
	case <-timer.C:
		return Response{}, fmt.Errorf("actor %s: mailbox full, request %q timed out", a.Name, kind)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-req.Reply:
		return resp, nil
	case <-timer.C:
		return Response{}, fmt.Errorf("actor %s: request %q timed out awaiting reply", a.Name, kind)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// drainMessages serves pending requests and state links. Runs between
// iterations only, so request handlers always observe a quiescent local
// solution.
func (a *Actor) drainMessages() {
	for {
		select {
		case req := <-a.mailbox:
			a.serve(req)
		case link, ok := <-a.links:
			if !ok {
				return
			}
			a.handleStateLink(link)
		default:
			return
		}
	}
}

func (a *Actor) serve(req Request) {
	server, ok := a.algorithm.(RequestServer)
	if !ok {
		req.Reply <- Response{Err: fmt.Errorf("level %s serves no requests", a.algorithm.Level())}
		return
	}
	req.Reply <- server.HandleRequest(req)
}

func (a *Actor) handleStateLink(link events.StateLink) {
	handler, ok := a.algorithm.(StateLinkHandler)
	if !ok {
		return
	}
	if err := handler.HandleStateLink(link); err != nil {
		a.logger.Error().Err(err).Str("state_link", string(link.Kind)).Msg("Failed to apply state link")
	}
}
