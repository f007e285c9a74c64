/*
Package issues implements the CityFix issue lifecycle: reporting, editing,
upvoting, assignment, status transitions, boosting and the public listing.

# Lifecycle

Every issue starts as pending. Transitions are checked against a fixed
table of edges and the roles allowed to take them:

	pending ──────────► in-progress ──► working ──┐
	   │   staff, admin      │   staff            │ staff
	   │                     └──────────► resolved ◄┘
	   │ admin                   staff        │
	   ▼                                      │ staff, admin
	rejected                                  ▼
	                                        closed

Staff may only move issues assigned to them, and work cannot start on an
unassigned issue. Rejected and closed are terminal. Each accepted change
appends a TimelineEntry and publishes an event.

Errors carry containerd errdefs classes so callers can map them without
knowing every sentinel:

	ErrInvalidTransition, ErrNotEditable   FailedPrecondition
	ErrForbidden, ErrBlocked               PermissionDenied
	ErrQuotaExceeded                       ResourceExhausted
	ErrAlreadyUpvoted                      AlreadyExists
	bad status, sort or input              InvalidArgument

# Listing

List returns boosted issues ahead of regular ones while keeping page
numbers stable. Both partitions are counted and cut inside one store read
(storage.QueryPartitions), with PlanPage working out which window of each
partition falls on the requested page:

	sequence:  [ b0 b1 b2 | r0 r1 r2 r3 r4 ... ]
	page 1 (limit 4):  b0 b1 b2 r0
	page 2 (limit 4):  r1 r2 r3 r4

Boosted issues are ordered by boost time, most recent first. Regular issues
follow the requested sort (newest, oldest or upvotes).

# Quota

Free citizens may report Config.FreeIssueLimit issues. The check and the
counter increment run in one store transaction; deleting an issue gives
the slot back.

# Usage

	svc := issues.NewService(store, broker, issues.Config{FreeIssueLimit: 3})

	issue, err := svc.Report(citizen, issues.ReportInput{
		Title:       "Broken streetlight",
		Description: "Dark since Monday",
		Category:    "lighting",
		Location:    "5th and Main",
	})

	_, err = svc.Assign(admin, issue.ID, staff.ID)
	_, err = svc.Transition(staff, issue.ID, types.IssueStatusInProgress, "")

	page, err := svc.List(issues.ListQuery{Search: "light", Page: 1})
*/
package issues
