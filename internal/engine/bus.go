package engine

import (
	"log/slog"
	"slices"
	"sync"
)

// NotificationKind names something other parts of the app may want to react
// to after a mutation.
type NotificationKind string

const (
	// NotifyRelationshipsChanged fires when at least one edge was added or
	// removed.
	NotifyRelationshipsChanged NotificationKind = "relationships_changed"
	// NotifyOccurrencesRefresh fires when cached near-term occurrence
	// listings are stale.
	NotifyOccurrencesRefresh NotificationKind = "occurrences_refresh"
	NotifyGoalSaved          NotificationKind = "goal_saved"
	NotifyGoalDeleted        NotificationKind = "goal_deleted"
	NotifyGoalCompleted      NotificationKind = "goal_completed"
)

// Notification is one published message.
type Notification struct {
	Seq     int64            `json:"seq"`
	Kind    NotificationKind `json:"kind"`
	GoalID  int64            `json:"goal_id,omitempty"`
	Session string           `json:"session,omitempty"`
}

// Handler receives notifications.
type Handler func(Notification)

// Bus delivers notifications to subscribers synchronously, in publish order.
//
// Handlers run on the publisher's goroutine and must not publish re-entrantly.
type Bus struct {
	clock *Clock

	mu     sync.Mutex
	nextID int
	subs   map[int]Handler
	order  []int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{clock: NewClock(), subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; !ok {
			return
		}
		delete(b.subs, id)
		b.order = slices.DeleteFunc(b.order, func(x int) bool { return x == id })
	}
}

// Publish stamps and delivers a notification.
func (b *Bus) Publish(kind NotificationKind, goalID int64, session string) Notification {
	n := Notification{Seq: b.clock.Next(), Kind: kind, GoalID: goalID, Session: session}

	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, id := range b.order {
		if h, ok := b.subs[id]; ok {
			handlers = append(handlers, h)
		}
	}
	b.mu.Unlock()

	slog.Debug("notify", "kind", string(kind), "goal_id", goalID, "seq", n.Seq)
	for _, h := range handlers {
		h(n)
	}
	return n
}
