// Package event provides the publish/subscribe primitives used by the chat core.
package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/opencode-ai/chatcore/internal/logging"
)

// Topic is the watermill topic every session event is mirrored onto.
const Topic = "chat.events"

// EventType represents the type of event.
type EventType string

const (
	RequestAdded         EventType = "request.added"
	RequestRemoved       EventType = "request.removed"
	BranchChanged        EventType = "branch.changed"
	ResponseUpdated      EventType = "response.updated"
	ResponseCompleted    EventType = "response.completed"
	ChangeSetUpdated     EventType = "changeset.updated"
	ContextChanged       EventType = "context.changed"
	ToolCallConfirmation EventType = "toolcall.confirmation"
	SessionDisposed      EventType = "session.disposed"
)

// Event represents an event to be published.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionID"`
	Data      any       `json:"data,omitempty"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus fans session-level events out to direct subscribers and mirrors them,
// JSON encoded, onto a watermill gochannel so out-of-process style consumers
// can tail a session with ordinary watermill subscriptions.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[EventType][]subscriberEntry),
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(eventType, id)
	}
}

// SubscribeAll registers a subscriber for all events.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribeGlobal(id)
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i:i], b.global[i+1:]...)
			break
		}
	}
}

// PublishSync sends an event to all subscribers synchronously, then mirrors
// it onto the watermill topic.
func (b *Bus) PublishSync(ev Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}

	subs := make([]Subscriber, 0, len(b.subscribers[ev.Type])+len(b.global))
	for _, entry := range b.subscribers[ev.Type] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub(ev)
	}

	b.mirror(ev)
}

func (b *Bus) mirror(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log := logging.Component("event")
		log.Debug().Err(err).Str("type", string(ev.Type)).Msg("event not mirrored")
		return
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set("type", string(ev.Type))
	msg.Metadata.Set("session", ev.SessionID)

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		log := logging.Component("event")
		log.Debug().Err(err).Str("type", string(ev.Type)).Msg("event mirror publish failed")
	}
}

// Messages subscribes to the watermill mirror of this bus. Consumers must Ack
// each message. The channel closes when ctx is done or the bus is closed.
func (b *Bus) Messages(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Decode unmarshals a mirrored watermill message back into an Event. Data is
// left as the generic JSON value.
func Decode(msg *message.Message) (Event, error) {
	var ev Event
	err := json.Unmarshal(msg.Payload, &ev)
	return ev, err
}

// Close closes the bus and all its subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[EventType][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}
