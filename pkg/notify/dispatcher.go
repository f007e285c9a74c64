package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/metrics"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Broker is the subset of the event broker the dispatcher needs
type Broker interface {
	Subscribe() events.Subscriber
	Unsubscribe(sub events.Subscriber)
}

// Dispatcher turns published events into inbox notifications
type Dispatcher struct {
	store  storage.Store
	broker Broker
	sub    events.Subscriber
	logger zerolog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher; call Start to begin consuming events
func NewDispatcher(store storage.Store, broker Broker) *Dispatcher {
	return &Dispatcher{
		store:  store,
		broker: broker,
		logger: log.WithComponent("notify"),
		now:    time.Now,
	}
}

// Start subscribes to the broker and handles events in the background
func (d *Dispatcher) Start() {
	d.sub = d.broker.Subscribe()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for event := range d.sub {
			d.Handle(event)
		}
	}()
	d.logger.Info().Msg("Notification dispatcher started")
}

// Stop unsubscribes and waits for in-flight events to be written
func (d *Dispatcher) Stop() {
	if d.sub == nil {
		return
	}
	d.broker.Unsubscribe(d.sub)
	d.wg.Wait()
	d.sub = nil
	d.logger.Info().Msg("Notification dispatcher stopped")
}

// Handle writes the notifications for one event
func (d *Dispatcher) Handle(event *events.Event) {
	for _, n := range d.plan(event) {
		n.ID = uuid.New().String()
		n.IssueID = event.IssueID
		n.CreatedAt = d.now().UTC()
		if err := d.store.CreateNotification(n); err != nil {
			d.logger.Error().Err(err).
				Str("event_type", string(event.Type)).
				Str("user_id", n.UserID).
				Msg("Failed to store notification")
			continue
		}
		metrics.NotificationsCreated.WithLabelValues(string(n.Kind)).Inc()
	}
}

// plan decides who hears about an event. The actor is not notified of
// their own action, except for boosts and payments which they paid for.
func (d *Dispatcher) plan(e *events.Event) []*types.Notification {
	meta := e.Metadata
	title := meta["title"]
	notifyActor := e.Type == events.EventIssueBoosted || e.Type == events.EventPaymentSucceeded

	var out []*types.Notification
	add := func(userID string, kind types.NotificationKind, heading, body string) {
		if userID == "" || (userID == e.ActorID && !notifyActor) {
			return
		}
		for _, n := range out {
			if n.UserID == userID {
				return
			}
		}
		out = append(out, &types.Notification{UserID: userID, Kind: kind, Title: heading, Body: body})
	}

	switch e.Type {
	case events.EventIssueAssigned:
		add(meta["assignee_id"], types.NotificationIssueAssigned,
			"New issue assigned", fmt.Sprintf("You have been assigned %q", title))
		add(meta["reporter_id"], types.NotificationIssueAssigned,
			"Staff assigned", fmt.Sprintf("A staff member is now handling %q", title))

	case events.EventIssueStatusChanged:
		add(meta["reporter_id"], types.NotificationIssueStatus,
			"Issue status updated", fmt.Sprintf("%q is now %s: %s", title, meta["to"], e.Message))

	case events.EventIssueRejected:
		add(meta["reporter_id"], types.NotificationIssueRejected,
			"Issue rejected", fmt.Sprintf("%q was rejected: %s", title, e.Message))

	case events.EventIssueBoosted:
		add(meta["reporter_id"], types.NotificationIssueBoosted,
			"Issue boosted", fmt.Sprintf("%q now has high priority", title))
		add(meta["assignee_id"], types.NotificationIssueBoosted,
			"Assigned issue boosted", fmt.Sprintf("%q now has high priority", title))

	case events.EventIssueMessage:
		body := fmt.Sprintf("New message on %q", title)
		add(meta["reporter_id"], types.NotificationIssueMessage, "New message", body)
		add(meta["assignee_id"], types.NotificationIssueMessage, "New message", body)

	case events.EventPaymentSucceeded:
		heading := "Payment received"
		body := "Your payment was successful"
		switch types.PaymentKind(meta["kind"]) {
		case types.PaymentKindPremium:
			body = "Premium unlocked: you can now report unlimited issues"
		case types.PaymentKindBoost:
			body = fmt.Sprintf("Boost payment received for %q", title)
		}
		add(meta["user_id"], types.NotificationPayment, heading, body)
	}
	return out
}
