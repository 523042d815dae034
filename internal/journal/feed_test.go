package journal

import (
	"testing"
	"time"

	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedDeliversToAllSubscribers(t *testing.T) {
	f := NewFeed()
	a := f.Subscribe()
	b := f.Subscribe()
	defer f.Unsubscribe(a)
	defer f.Unsubscribe(b)

	f.Publish(Event{Kind: EventCreated, UserID: "u1", TradeID: "t1"})

	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventCreated, ev.Kind)
			assert.Equal(t, "t1", ev.TradeID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestFeedPreservesArrivalOrder(t *testing.T) {
	f := NewFeed()
	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	f.Publish(Event{Kind: EventCreated, TradeID: "t1"})
	f.Publish(Event{Kind: EventUpdated, TradeID: "t1", Trade: &models.Trade{ID: "t1", Notes: "first"}})
	f.Publish(Event{Kind: EventUpdated, TradeID: "t1", Trade: &models.Trade{ID: "t1", Notes: "second"}})

	// Applying in arrival order leaves the last write in place
	var latest *models.Trade
	for i := 0; i < 3; i++ {
		ev := <-ch
		if ev.Trade != nil {
			latest = ev.Trade
		}
	}
	require.NotNil(t, latest)
	assert.Equal(t, "second", latest.Notes)
}

func TestFeedPublishNeverBlocks(t *testing.T) {
	f := NewFeed()
	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			f.Publish(Event{Kind: EventCreated, TradeID: "t"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Overflow was dropped, buffer holds at most its capacity
	assert.LessOrEqual(t, len(ch), subscriberBuffer)
}

func TestFeedUnsubscribeClosesChannel(t *testing.T) {
	f := NewFeed()
	ch := f.Subscribe()
	assert.Equal(t, 1, f.SubscriberCount())

	f.Unsubscribe(ch)
	assert.Equal(t, 0, f.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe is a no-op
	f.Unsubscribe(ch)
}

func TestFeedPublishAfterUnsubscribe(t *testing.T) {
	f := NewFeed()
	ch := f.Subscribe()
	f.Unsubscribe(ch)

	// Must not panic on the closed channel
	f.Publish(Event{Kind: EventDeleted, TradeID: "t9"})
}
