/*
Package types defines the core data structures used throughout CityFix.

This package contains the domain model shared by every other package:
accounts, civic issues and their lifecycle history, notifications, messages
and payments. The types carry JSON tags and are stored as JSON documents by
the storage package and returned as-is by the HTTP API.

# Core Types

Accounts:
  - User: citizen, staff or admin account
  - Role: citizen, staff, admin

Issues:
  - Issue: a civic problem with status, priority, boost and upvotes
  - IssueStatus: pending, in-progress, working, resolved, closed, rejected
  - Priority: normal or high (boosted issues are high)
  - TimelineEntry: one recorded change in an issue's history

Inbox:
  - Notification: a per-user inbox entry produced from issue and payment events
  - Message: a contact-form message to admins, or a post in an issue thread

Billing:
  - Payment: a checkout session for premium access or an issue boost
  - PaymentKind: premium, boost
  - PaymentStatus: pending, paid, failed

# Usage

Creating an issue:

	issue := &types.Issue{
		ID:         uuid.New().String(),
		Title:      "Broken streetlight",
		Category:   "lighting",
		Location:   "5th Avenue",
		Status:     types.IssueStatusPending,
		Priority:   types.PriorityNormal,
		ReporterID: user.ID,
		CreatedAt:  time.Now(),
	}

Checking status:

	if issue.Status.Terminal() {
		// closed or rejected, nothing else may happen
	}

Passwords never leave the API: handlers return User.Public() copies.
*/
package types
