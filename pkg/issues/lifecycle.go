package issues

import (
	"fmt"

	"github.com/cuemby/cityfix/pkg/types"
)

// transitions maps each status to the statuses reachable from it and the
// roles allowed to take that edge. Staff additionally have to be the
// issue's assignee.
var transitions = map[types.IssueStatus]map[types.IssueStatus][]types.Role{
	types.IssueStatusPending: {
		types.IssueStatusInProgress: {types.RoleStaff, types.RoleAdmin},
		types.IssueStatusRejected:   {types.RoleAdmin},
	},
	types.IssueStatusInProgress: {
		types.IssueStatusWorking:  {types.RoleStaff},
		types.IssueStatusResolved: {types.RoleStaff},
	},
	types.IssueStatusWorking: {
		types.IssueStatusResolved: {types.RoleStaff},
	},
	types.IssueStatusResolved: {
		types.IssueStatusClosed: {types.RoleStaff, types.RoleAdmin},
	},
}

// CheckTransition reports whether actor may move issue to the target status
func CheckTransition(issue *types.Issue, to types.IssueStatus, actor *types.User) error {
	if !to.Valid() {
		return invalidArgument("unknown status %q", to)
	}
	if issue.Status == to {
		return invalidArgument("issue is already %s", to)
	}

	roles, ok := transitions[issue.Status][to]
	if !ok {
		return fmt.Errorf("%s → %s: %w", issue.Status, to, ErrInvalidTransition)
	}
	if !hasRole(roles, actor.Role) {
		return fmt.Errorf("%s cannot move an issue from %s to %s: %w", actor.Role, issue.Status, to, ErrForbidden)
	}
	if actor.Role == types.RoleStaff && issue.AssigneeID != actor.ID {
		return fmt.Errorf("issue is not assigned to you: %w", ErrForbidden)
	}
	if to == types.IssueStatusInProgress && issue.AssigneeID == "" {
		return ErrUnassigned
	}
	return nil
}

// NextStatuses lists the statuses actor may move issue to, in lifecycle order
func NextStatuses(issue *types.Issue, actor *types.User) []types.IssueStatus {
	next := []types.IssueStatus{}
	if actor == nil {
		return next
	}
	for _, to := range types.IssueStatuses {
		if _, ok := transitions[issue.Status][to]; !ok {
			continue
		}
		if CheckTransition(issue, to, actor) == nil {
			next = append(next, to)
		}
	}
	return next
}

// CanAssign reports whether staff may be (re)assigned in the issue's status
func CanAssign(issue *types.Issue) bool {
	return issue.Status == types.IssueStatusPending
}

func hasRole(roles []types.Role, role types.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func defaultTransitionMessage(to types.IssueStatus) string {
	switch to {
	case types.IssueStatusInProgress:
		return "Work on the issue has started"
	case types.IssueStatusWorking:
		return "Staff is working on the issue"
	case types.IssueStatusResolved:
		return "Issue marked as resolved"
	case types.IssueStatusClosed:
		return "Issue closed"
	case types.IssueStatusRejected:
		return "Issue rejected"
	}
	return fmt.Sprintf("Status changed to %s", to)
}
