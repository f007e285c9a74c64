package stats

import (
	"testing"
	"time"

	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	users := []*types.User{
		{ID: "c1", Email: "c1@example.com", Role: types.RoleCitizen, Premium: true},
		{ID: "c2", Email: "c2@example.com", Role: types.RoleCitizen},
		{ID: "s1", Email: "s1@example.com", Role: types.RoleStaff},
		{ID: "a1", Email: "a1@example.com", Role: types.RoleAdmin},
	}
	for _, u := range users {
		require.NoError(t, store.CreateUser(u))
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issues := []*types.Issue{
		{ID: "i1", ReporterID: "c1", Status: types.IssueStatusPending, UpvoteCount: 2},
		{ID: "i2", ReporterID: "c1", Status: types.IssueStatusInProgress, AssigneeID: "s1", Boosted: true},
		{ID: "i3", ReporterID: "c1", Status: types.IssueStatusResolved, AssigneeID: "s1", UpvoteCount: 1},
		{ID: "i4", ReporterID: "c2", Status: types.IssueStatusRejected},
	}
	for n, i := range issues {
		i.CreatedAt = base.Add(time.Duration(n) * time.Hour)
		require.NoError(t, store.CreateIssue(i))
	}

	payments := []*types.Payment{
		{ID: "p1", UserID: "c1", Kind: types.PaymentKindPremium, Amount: 1000, Status: types.PaymentStatusPaid, SessionID: "cs_1"},
		{ID: "p2", UserID: "c1", Kind: types.PaymentKindBoost, IssueID: "i2", Amount: 100, Status: types.PaymentStatusPaid, SessionID: "cs_2"},
		{ID: "p3", UserID: "c2", Kind: types.PaymentKindPremium, Amount: 1000, Status: types.PaymentStatusPending, SessionID: "cs_3"},
	}
	for _, p := range payments {
		require.NoError(t, store.CreatePayment(p))
	}
	return NewService(store)
}

func TestAdmin(t *testing.T) {
	s, err := seed(t).Admin()
	require.NoError(t, err)

	assert.Equal(t, 4, s.TotalIssues)
	assert.Equal(t, 1, s.Boosted)
	assert.Equal(t, 2, s.Citizens)
	assert.Equal(t, 1, s.Staff)
	assert.Equal(t, int64(1100), s.Revenue)
	assert.Equal(t, 2, s.PaidPayments)

	assert.Len(t, s.Issues, len(types.IssueStatuses))
	assert.Equal(t, 1, s.Issues[types.IssueStatusPending])
	assert.Equal(t, 1, s.Issues[types.IssueStatusRejected])
	assert.Equal(t, 0, s.Issues[types.IssueStatusClosed])
}

func TestStaff(t *testing.T) {
	svc := seed(t)

	s, err := svc.Staff("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalAssigned)
	assert.Equal(t, 1, s.Assigned[types.IssueStatusInProgress])
	assert.Equal(t, 1, s.Assigned[types.IssueStatusResolved])

	empty, err := svc.Staff("nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalAssigned)
	assert.Len(t, empty.Assigned, len(types.IssueStatuses))
}

func TestCitizen(t *testing.T) {
	svc := seed(t)

	c, err := svc.Citizen("c1")
	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalIssues)
	assert.Equal(t, 3, c.Upvotes)
	assert.Equal(t, int64(1100), c.TotalPaid)
	assert.True(t, c.Premium)

	c2, err := svc.Citizen("c2")
	require.NoError(t, err)
	assert.Zero(t, c2.TotalPaid, "pending payments do not count")
	assert.Equal(t, 1, c2.Issues[types.IssueStatusRejected])

	_, err = svc.Citizen("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
