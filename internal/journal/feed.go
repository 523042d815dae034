// Package journal owns the trade journal: persistence, screenshot storage
// and the live feed that pushes journal changes to open portal pages.
package journal

import (
	"log"
	"sync"

	"github.com/ChartMentor-io/chartmentor/internal/models"
)

// EventKind describes what happened to a trade
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is one journal change pushed to subscribers
type Event struct {
	Kind    EventKind     `json:"kind"`
	UserID  string        `json:"user_id"`
	TradeID string        `json:"trade_id"`
	Trade   *models.Trade `json:"trade,omitempty"`
}

const subscriberBuffer = 16

// Feed fans journal events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event and catches up on its
// next page load. Events are applied in arrival order; for concurrent
// updates to the same trade the last write wins.
type Feed struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered channel of events. Callers must Unsubscribe
// when done or the channel leaks.
func (f *Feed) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes the channel
func (f *Feed) Unsubscribe(ch chan Event) {
	f.mu.Lock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
	f.mu.Unlock()
}

// Publish delivers the event to every subscriber that has buffer room
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[FEED] Dropping %s event for slow subscriber", ev.Kind)
		}
	}
}

// SubscriberCount reports how many channels are attached
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
