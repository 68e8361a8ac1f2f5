package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBus_EmitDispatchesToSubscribers(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeReferralCredited, func(ctx context.Context, e Event) {
		received <- e
	})

	bus.Emit(context.Background(), ReferralCreditedEvent{
		ReferrerID:       1,
		ReferredID:       2,
		ReferredUsername: "newcomer",
		Bonus:            10,
	})

	event := waitForEvent(t, received)
	credited, ok := event.(ReferralCreditedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1), credited.ReferrerID)
	assert.Equal(t, int64(2), credited.ReferredID)
	assert.Equal(t, int64(10), credited.Bonus)
}

func TestBus_EmitIgnoresOtherEventTypes(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeRewardRedeemed, func(ctx context.Context, e Event) {
		received <- e
	})

	bus.Emit(context.Background(), UserJoinedEvent{UserID: 1, Username: "someone"})

	select {
	case <-received:
		t.Fatal("handler received an event it never subscribed to")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_HandlerPanicDoesNotStopDispatch(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeUserJoined, func(ctx context.Context, e Event) {
		panic("handler failure")
	})
	bus.Subscribe(EventTypeUserJoined, func(ctx context.Context, e Event) {
		received <- e
	})

	bus.Emit(context.Background(), UserJoinedEvent{UserID: 1, Username: "someone"})

	waitForEvent(t, received)
}

func TestTransactionalBus_FlushDeliversPendingEvents(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 2)
	bus.Subscribe(EventTypeReferralCredited, func(ctx context.Context, e Event) {
		received <- e
	})

	txBus := NewTransactionalBus(bus)
	txBus.Publish(ReferralCreditedEvent{ReferrerID: 1, ReferredID: 2, Bonus: 10})
	txBus.Publish(ReferralCreditedEvent{ReferrerID: 1, ReferredID: 3, Bonus: 10})

	// Nothing reaches subscribers before the flush
	select {
	case <-received:
		t.Fatal("event delivered before Flush")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, txBus.Flush(context.Background()))

	first := waitForEvent(t, received).(ReferralCreditedEvent)
	second := waitForEvent(t, received).(ReferralCreditedEvent)
	assert.ElementsMatch(t, []int64{2, 3}, []int64{first.ReferredID, second.ReferredID})

	// A second flush has nothing left to deliver
	require.NoError(t, txBus.Flush(context.Background()))
	select {
	case <-received:
		t.Fatal("event delivered twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTransactionalBus_DiscardDropsPendingEvents(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)
	bus.Subscribe(EventTypeRewardRedeemed, func(ctx context.Context, e Event) {
		received <- e
	})

	txBus := NewTransactionalBus(bus)
	txBus.Publish(RewardRedeemedEvent{UserID: 1, ItemID: 7, PointsSpent: 50})
	txBus.Discard()

	require.NoError(t, txBus.Flush(context.Background()))
	select {
	case <-received:
		t.Fatal("discarded event was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}
