package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bosunhq/bosun/pkg/types"
)

// Kind discriminates state-link notifications. A state link tells an
// actor that one of its upstream inputs changed and its parameters must
// be rebuilt before the next iteration.
type Kind string

const (
	// KindWorkOrders carries the numbers of changed work orders.
	KindWorkOrders Kind = "work-orders"
	// KindWorkerEnvironment signals a worker was added, removed or
	// edited.
	KindWorkerEnvironment Kind = "worker-environment"
	// KindTimeEnvironment signals the period or day horizon moved.
	KindTimeEnvironment Kind = "time-environment"
)

// StateLink is one upstream-change notification fanned out to every
// actor of the touched asset.
type StateLink struct {
	ID         string
	Kind       Kind
	Asset      types.Asset
	Timestamp  time.Time
	WorkOrders []types.WorkOrderNumber
	Worker     types.WorkerID
}

// Subscriber is a channel that receives state links.
type Subscriber chan StateLink

// Broker fans state links out to subscribed actors.
type Broker struct {
	subscribers map[Subscriber]types.Asset
	mu          sync.RWMutex
	linkCh      chan StateLink
	stopCh      chan struct{}
}

// NewBroker creates a new state-link broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]types.Asset),
		linkCh:      make(chan StateLink, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a subscriber scoped to one asset.
func (b *Broker) Subscribe(asset types.Asset) Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = asset
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish fans a state link out to the touched asset's subscribers.
func (b *Broker) Publish(link StateLink) {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.Timestamp.IsZero() {
		link.Timestamp = time.Now()
	}

	select {
	case b.linkCh <- link:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case link := <-b.linkCh:
			b.broadcast(link)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(link StateLink) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, asset := range b.subscribers {
		if asset != link.Asset {
			continue
		}
		select {
		case sub <- link:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
