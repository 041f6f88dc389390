// Package feed carries change events from the store to live subscribers.
// Each committed write publishes one tagged event; subscribers hold a
// cancellable subscription scoped to a single trip.
package feed

import (
	"log/slog"
	"sync"
)

// EventType tags a change event.
type EventType string

const (
	Inserted EventType = "inserted"
	Updated  EventType = "updated"
	Deleted  EventType = "deleted"
)

// Entity names used in events.
const (
	EntityScheduleItem = "schedule_item"
	EntityBroadcast    = "broadcast"
)

// Event is one change notification. Record carries the full record for
// Inserted and Updated; Deleted events carry only the ID.
type Event struct {
	Type   EventType `json:"type"`
	Entity string    `json:"entity"`
	TripID string    `json:"trip_id"`
	ID     string    `json:"id"`
	Record any       `json:"record,omitempty"`
}

// Hub fans events out to subscriptions. Publishing never blocks: a
// subscriber that falls behind its buffer loses events, which the merge
// side tolerates (a later Refresh reconverges).
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*Subscription)}
}

// Publish delivers ev to every subscription matching its trip and entity.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.tripID != ev.TripID {
			continue
		}
		if sub.entity != "" && sub.entity != ev.Entity {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("feed subscriber lagging, event dropped",
				"trip_id", ev.TripID, "entity", ev.Entity, "event", ev.Type)
		}
	}
}

// Subscribe registers a subscription for one trip. An empty entity
// subscribes to all entities. The buffer bounds how far a slow consumer
// may lag before events are dropped.
func (h *Hub) Subscribe(tripID, entity string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{
		hub:    h,
		id:     h.nextID,
		tripID: tripID,
		entity: entity,
		ch:     make(chan Event, buffer),
	}
	h.subs[sub.id] = sub
	return sub
}

// Subscription is a cancellable stream of events for one trip.
type Subscription struct {
	hub    *Hub
	id     int
	tripID string
	entity string
	ch     chan Event
	once   sync.Once
}

// Events returns the receive channel. It is closed by Cancel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Cancel unsubscribes synchronously: no further events are delivered once
// it returns, and the event channel is closed.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}
