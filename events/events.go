package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeReferralCredited EventType = "referral_credited"
	EventTypeUserJoined       EventType = "user_joined"
	EventTypeRewardRedeemed   EventType = "reward_redeemed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ReferralCreditedEvent is published when a referrer is paid the referral
// bonus. It is the engine's notification-sink contract: subscribers use it to
// message the referrer.
type ReferralCreditedEvent struct {
	ReferrerID       int64
	ReferredID       int64
	ReferredUsername string
	Bonus            int64
}

func (e ReferralCreditedEvent) Type() EventType {
	return EventTypeReferralCredited
}

// UserJoinedEvent is published when a user's membership flips to true
type UserJoinedEvent struct {
	UserID   int64
	Username string
}

func (e UserJoinedEvent) Type() EventType {
	return EventTypeUserJoined
}

// RewardRedeemedEvent is published after a successful redemption
type RewardRedeemedEvent struct {
	UserID      int64
	ItemID      int64
	PointsSpent int64
	NewBalance  int64
}

func (e RewardRedeemedEvent) Type() EventType {
	return EventTypeRewardRedeemed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// A transactional event bus for holding pending events coupled to the Unit of
// Work. Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus")

	// Use background context for event emission: events are processed
	// independently of the transaction lifecycle
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
