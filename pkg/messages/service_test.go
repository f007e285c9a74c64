package messages

import (
	"strings"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder []*events.Event

func (r *recorder) Publish(e *events.Event) { *r = append(*r, e) }

var (
	reporter = &types.User{ID: "c1", Name: "Ann", Email: "ann@example.com", Role: types.RoleCitizen}
	stranger = &types.User{ID: "c2", Name: "Bob", Role: types.RoleCitizen}
	assignee = &types.User{ID: "s1", Name: "Sam", Role: types.RoleStaff}
	otherOne = &types.User{ID: "s2", Name: "Sid", Role: types.RoleStaff}
	admin    = &types.User{ID: "a1", Name: "Root", Role: types.RoleAdmin}
)

func newTestService(t *testing.T) (*Service, *storage.BoltStore, *recorder) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateIssue(&types.Issue{
		ID:         "i1",
		Title:      "Pothole",
		Status:     types.IssueStatusInProgress,
		ReporterID: reporter.ID,
		AssigneeID: assignee.ID,
	}))

	rec := &recorder{}
	svc := NewService(store, rec)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return time.Date(2026, 2, 1, 0, tick, 0, 0, time.UTC)
	}
	return svc, store, rec
}

func TestContact(t *testing.T) {
	svc, _, _ := newTestService(t)

	anon, err := svc.Contact(nil, ContactInput{Name: "Visitor", Email: "V@Example.com", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "v@example.com", anon.Email)
	assert.Empty(t, anon.SenderID)

	signed, err := svc.Contact(reporter, ContactInput{Subject: "Question", Body: "How long?"})
	require.NoError(t, err)
	assert.Equal(t, reporter.ID, signed.SenderID)
	assert.Equal(t, "Ann", signed.Name)
	assert.Equal(t, "ann@example.com", signed.Email)

	bad := []ContactInput{
		{Email: "a@b.co", Subject: "s", Body: "b"},
		{Name: "n", Subject: "s", Body: "b"},
		{Name: "n", Email: "a@b.co", Body: "b"},
		{Name: "n", Email: "nope", Subject: "s", Body: "b"},
		{Name: "n", Email: "a@b.co", Subject: "s"},
		{Name: "n", Email: "a@b.co", Subject: "s", Body: strings.Repeat("x", maxBodyLength+1)},
	}
	for _, in := range bad {
		_, err := svc.Contact(nil, in)
		assert.True(t, errdefs.IsInvalidArgument(err), "%+v: %v", in, err)
	}

	list, err := svc.ListContact()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, signed.ID, list[0].ID, "newest first")

	read, err := svc.MarkContactRead(anon.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	require.NoError(t, svc.DeleteContact(anon.ID))
	list, err = svc.ListContact()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestThread(t *testing.T) {
	svc, _, rec := newTestService(t)

	first, err := svc.Post(reporter, "i1", "Any update?")
	require.NoError(t, err)
	_, err = svc.Post(assignee, "i1", "Crew is on the way")
	require.NoError(t, err)
	_, err = svc.Post(admin, "i1", "Escalated")
	require.NoError(t, err)

	for _, u := range []*types.User{stranger, otherOne} {
		_, err = svc.Post(u, "i1", "hello")
		assert.ErrorIs(t, err, ErrNotParticipant)
		_, err = svc.Thread(u, "i1")
		assert.ErrorIs(t, err, ErrNotParticipant)
	}

	thread, err := svc.Thread(reporter, "i1")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, first.ID, thread[0].ID, "oldest first")
	assert.Equal(t, "Sam", thread[1].Name)

	require.Len(t, *rec, 3)
	e := (*rec)[1]
	assert.Equal(t, events.EventIssueMessage, e.Type)
	assert.Equal(t, assignee.ID, e.ActorID)
	assert.Equal(t, reporter.ID, e.Metadata["reporter_id"])

	_, err = svc.Post(reporter, "i1", "   ")
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = svc.Post(reporter, "missing", "hi")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	blocked := *reporter
	blocked.Blocked = true
	_, err = svc.Post(&blocked, "i1", "hi")
	assert.ErrorIs(t, err, ErrBlocked)

	// Thread messages are not contact messages
	_, err = svc.MarkContactRead(first.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteContact(first.ID), storage.ErrNotFound)
}
