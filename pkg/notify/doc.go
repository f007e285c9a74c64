/*
Package notify delivers in-app notifications.

The Dispatcher subscribes to the event broker and writes one Notification
per interested user:

	issue.assigned        assignee, reporter
	issue.status_changed  reporter
	issue.rejected        reporter
	issue.boosted         reporter, assignee
	issue.message         reporter, assignee (minus the sender)
	payment.succeeded     payer

Service is the read side used by the HTTP layer: list, unread count, mark
read and delete, always scoped to the calling user.
*/
package notify
