package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case e := <-sub:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBrokerBroadcast(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	first := b.Subscribe()
	second := b.Subscribe()
	assert.Equal(t, 2, b.SubscriberCount())

	b.Publish(&Event{Type: EventIssueCreated, IssueID: "i1"})

	for _, sub := range []Subscriber{first, second} {
		e := receive(t, sub)
		assert.Equal(t, EventIssueCreated, e.Type)
		assert.Equal(t, "i1", e.IssueID)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestBrokerKeepsExplicitIDAndTimestamp(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b.Publish(&Event{ID: "fixed", Type: EventIssueBoosted, Timestamp: at})

	e := receive(t, sub)
	assert.Equal(t, "fixed", e.ID)
	assert.True(t, at.Equal(e.Timestamp))
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open, "channel should be closed")

	// Second unsubscribe is a no-op
	b.Unsubscribe(sub)
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	slow := b.SubscribeBuffered(1)
	fast := b.SubscribeBuffered(10)

	for i := 0; i < 3; i++ {
		b.Publish(&Event{Type: EventIssueUpvoted})
	}
	for i := 0; i < 3; i++ {
		receive(t, fast)
	}

	require.Eventually(t, func() bool { return b.Dropped() == 2 }, time.Second, 10*time.Millisecond)
	assert.Len(t, slow, 1)
}

func TestBrokerStopIsIdempotent(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()
	b.Stop()

	// Publishing after stop must not block forever once the buffer is full
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(&Event{Type: EventIssueCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}
