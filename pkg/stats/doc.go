/*
Package stats computes the admin, staff and citizen dashboard summaries.

Every summary is derived on request from the store; nothing is cached or
kept in counters. ByStatus always carries every lifecycle status, so
clients can render a fixed set of tiles without checking for missing keys:

	{"pending":2,"in-progress":1,"working":0,"resolved":1,"closed":0,"rejected":1}

Revenue only counts payments in the paid state, in minor currency units.

# Usage

	svc := stats.NewService(store)

	admin, err := svc.Admin()          // site-wide issues, accounts, revenue
	mine, err := svc.Staff(staff.ID)   // issues assigned to one staff member
	me, err := svc.Citizen(citizen.ID) // own reports, upvotes received, spend
*/
package stats
