/*
Package messages stores contact-form messages for admins and the
per-issue conversation between a reporter, the assigned staff member and
admins.

# Contact Messages

Contact accepts anonymous submissions (name, email, subject, body) or, for
signed-in users, fills the name and email from the account. Admins list,
mark read and delete them. Contact and thread messages share one bucket;
the contact operations never touch a message that belongs to an issue.

# Issue Threads

Only participants may read or post:

	admin                any issue
	reporter             own issues
	staff                issues assigned to them

Blocked accounts can still read but not post. Each post publishes
EventIssueMessage with the reporter and assignee ids in its metadata, which
the notify dispatcher turns into notifications for the other participants.

Bodies are trimmed and limited to 5000 characters. Validation failures wrap
errdefs.ErrInvalidArgument, participation failures ErrPermissionDenied.

	svc := messages.NewService(store, broker)
	_, err := svc.Post(citizen, issue.ID, "Any update?")
	thread, err := svc.Thread(staff, issue.ID) // oldest first
*/
package messages
