package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosunhq/bosun/pkg/types"
)

func TestBrokerFansOutPerAsset(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	dfSub := broker.Subscribe(types.AssetDF)
	hbSub := broker.Subscribe(types.AssetHB)

	broker.Publish(StateLink{
		Kind:       KindWorkOrders,
		Asset:      types.AssetDF,
		WorkOrders: []types.WorkOrderNumber{2400471691},
	})

	select {
	case link := <-dfSub:
		assert.Equal(t, KindWorkOrders, link.Kind)
		assert.Equal(t, []types.WorkOrderNumber{2400471691}, link.WorkOrders)
		assert.NotEmpty(t, link.ID)
		assert.False(t, link.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("DF subscriber did not receive the state link")
	}

	// The other asset's subscriber sees nothing.
	select {
	case link := <-hbSub:
		t.Fatalf("HB subscriber received %v", link)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe(types.AssetDF)
	require.Equal(t, 1, broker.SubscriberCount())

	broker.Unsubscribe(sub)
	assert.Equal(t, 0, broker.SubscriberCount())

	// The channel is closed on unsubscribe.
	_, open := <-sub
	assert.False(t, open)
}

func TestBrokerSkipsFullSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe(types.AssetDF)

	// Flood well past the per-subscriber buffer; the broker must not
	// block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			broker.Publish(StateLink{Kind: KindTimeEnvironment, Asset: types.AssetDF})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broker blocked on a full subscriber")
	}
	assert.NotEmpty(t, sub)
}
