package issues

import (
	"testing"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = &types.User{ID: "admin-1", Role: types.RoleAdmin}
	staff   = &types.User{ID: "staff-1", Role: types.RoleStaff}
	other   = &types.User{ID: "staff-2", Role: types.RoleStaff}
	citizen = &types.User{ID: "citizen-1", Role: types.RoleCitizen}
)

func assigned(status types.IssueStatus) *types.Issue {
	return &types.Issue{ID: "i", Status: status, ReporterID: citizen.ID, AssigneeID: staff.ID}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		issue   *types.Issue
		to      types.IssueStatus
		actor   *types.User
		wantErr error
	}{
		{"staff starts assigned issue", assigned(types.IssueStatusPending), types.IssueStatusInProgress, staff, nil},
		{"admin starts assigned issue", assigned(types.IssueStatusPending), types.IssueStatusInProgress, admin, nil},
		{"admin rejects pending", assigned(types.IssueStatusPending), types.IssueStatusRejected, admin, nil},
		{"staff marks working", assigned(types.IssueStatusInProgress), types.IssueStatusWorking, staff, nil},
		{"staff resolves from in-progress", assigned(types.IssueStatusInProgress), types.IssueStatusResolved, staff, nil},
		{"staff resolves from working", assigned(types.IssueStatusWorking), types.IssueStatusResolved, staff, nil},
		{"staff closes resolved", assigned(types.IssueStatusResolved), types.IssueStatusClosed, staff, nil},
		{"admin closes resolved", assigned(types.IssueStatusResolved), types.IssueStatusClosed, admin, nil},

		{"staff cannot reject", assigned(types.IssueStatusPending), types.IssueStatusRejected, staff, ErrForbidden},
		{"admin cannot mark working", assigned(types.IssueStatusInProgress), types.IssueStatusWorking, admin, ErrForbidden},
		{"citizen cannot start", assigned(types.IssueStatusPending), types.IssueStatusInProgress, citizen, ErrForbidden},
		{"other staff cannot start", assigned(types.IssueStatusPending), types.IssueStatusInProgress, other, ErrForbidden},
		{"pending cannot jump to resolved", assigned(types.IssueStatusPending), types.IssueStatusResolved, admin, ErrInvalidTransition},
		{"closed is terminal", assigned(types.IssueStatusClosed), types.IssueStatusPending, admin, ErrInvalidTransition},
		{"rejected is terminal", assigned(types.IssueStatusRejected), types.IssueStatusInProgress, admin, ErrInvalidTransition},
		{"no going back", assigned(types.IssueStatusWorking), types.IssueStatusInProgress, staff, ErrInvalidTransition},
		{"start needs assignee", &types.Issue{Status: types.IssueStatusPending}, types.IssueStatusInProgress, admin, ErrUnassigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.issue, tt.to, tt.actor)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckTransitionInvalidArguments(t *testing.T) {
	err := CheckTransition(assigned(types.IssueStatusPending), "archived", admin)
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))

	err = CheckTransition(assigned(types.IssueStatusWorking), types.IssueStatusWorking, staff)
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, s := range types.IssueStatuses {
		_, hasEdges := transitions[s]
		assert.Equal(t, !s.Terminal(), hasEdges, "status %s", s)
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t,
		[]types.IssueStatus{types.IssueStatusInProgress, types.IssueStatusRejected},
		NextStatuses(assigned(types.IssueStatusPending), admin))
	assert.Equal(t,
		[]types.IssueStatus{types.IssueStatusInProgress},
		NextStatuses(assigned(types.IssueStatusPending), staff))
	assert.Equal(t,
		[]types.IssueStatus{types.IssueStatusWorking, types.IssueStatusResolved},
		NextStatuses(assigned(types.IssueStatusInProgress), staff))
	assert.Empty(t, NextStatuses(assigned(types.IssueStatusInProgress), other))
	assert.Empty(t, NextStatuses(assigned(types.IssueStatusPending), citizen))
	assert.Empty(t, NextStatuses(assigned(types.IssueStatusClosed), admin))
	assert.Empty(t, NextStatuses(assigned(types.IssueStatusPending), nil))
}
