/*
Package events provides an in-memory event broker for CityFix.

Services publish an Event whenever an issue, payment or account changes in a
way somebody should hear about. Subscribers receive every event on their own
buffered channel; the notification dispatcher is the main consumer and turns
events into inbox entries.

# Delivery

	Publisher → event channel (buffer: 100)
	     ↓
	broadcast loop
	     ↓
	subscriber channels (buffer: 50 by default)

Publish only blocks when the broker's own buffer is full. A subscriber whose
channel is full misses the event; Dropped reports how often that happened.

# Event Types

	issue.created, issue.updated, issue.deleted
	issue.assigned, issue.status_changed, issue.rejected
	issue.boosted, issue.upvoted, issue.message
	payment.succeeded
	user.blocked

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			fmt.Println(event.Type, event.IssueID)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: issue.ID,
		ActorID: admin.ID,
		Metadata: map[string]string{"assignee_id": staff.ID},
	})
*/
package events
