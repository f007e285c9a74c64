package users

import (
	"strings"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/auth"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recorder []*events.Event

func (r *recorder) Publish(e *events.Event) { *r = append(*r, e) }

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	rec := &recorder{}
	return NewService(store, auth.NewHasher(bcrypt.MinCost), tokens, rec), rec
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Register(AccountInput{Name: "Ann", Email: " Ann@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, types.RoleCitizen, session.User.Role)
	assert.Equal(t, "ann@example.com", session.User.Email)
	assert.Empty(t, session.User.PasswordHash)
	assert.NotEmpty(t, session.Token.AccessToken)

	_, err = svc.Register(AccountInput{Name: "Ann 2", Email: "ANN@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.True(t, errdefs.IsAlreadyExists(err))

	login, err := svc.Login("ann@EXAMPLE.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login("ann@example.com", "wrong-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login("nobody@example.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		in   AccountInput
	}{
		{"missing name", AccountInput{Email: "a@b.co", Password: "secret1"}},
		{"bad email", AccountInput{Name: "A", Email: "not-an-email", Password: "secret1"}},
		{"display-name email", AccountInput{Name: "A", Email: "A <a@b.co>", Password: "secret1"}},
		{"short password", AccountInput{Name: "A", Email: "a@b.co", Password: "123"}},
		{"password over bcrypt limit", AccountInput{Name: "A", Email: "a@b.co", Password: strings.Repeat("x", 73)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.in)
			assert.True(t, errdefs.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	session, err := svc.Register(AccountInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	name := "Ann Lee"
	phone := " 555-0100 "
	user, err := svc.UpdateProfile(session.User.ID, ProfileInput{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", user.Name)
	assert.Equal(t, "555-0100", user.Phone)

	blank := ""
	_, err = svc.UpdateProfile(session.User.ID, ProfileInput{Name: &blank})
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestStaffManagement(t *testing.T) {
	svc, _ := newTestService(t)

	staff, err := svc.CreateStaff(AccountInput{Name: "Sam", Email: "sam@city.gov", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, types.RoleStaff, staff.Role)

	citizen, err := svc.Register(AccountInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	list, err := svc.ListStaff()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].PasswordHash)

	email := "samuel@city.gov"
	pass := "newpass1"
	updated, err := svc.UpdateStaff(staff.ID, StaffInput{Email: &email, Password: &pass})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	_, err = svc.Login(email, pass)
	assert.NoError(t, err)

	taken := "ann@example.com"
	_, err = svc.UpdateStaff(staff.ID, StaffInput{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.UpdateStaff(citizen.User.ID, StaffInput{})
	assert.ErrorIs(t, err, ErrNotStaff)
	assert.ErrorIs(t, svc.DeleteStaff(citizen.User.ID), ErrNotStaff)

	require.NoError(t, svc.DeleteStaff(staff.ID))
	_, err = svc.Get(staff.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetBlocked(t *testing.T) {
	svc, rec := newTestService(t)
	admin, err := svc.CreateAdmin(AccountInput{Name: "Root", Email: "root@city.gov", Password: "secret1"})
	require.NoError(t, err)
	citizen, err := svc.Register(AccountInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	user, err := svc.SetBlocked(admin, citizen.User.ID, true)
	require.NoError(t, err)
	assert.True(t, user.Blocked)
	require.Len(t, *rec, 1)
	assert.Equal(t, events.EventUserBlocked, (*rec)[0].Type)
	assert.Equal(t, citizen.User.ID, (*rec)[0].Metadata["user_id"])

	// Blocked citizens can still log in
	_, err = svc.Login("ann@example.com", "secret1")
	assert.NoError(t, err)

	user, err = svc.SetBlocked(admin, citizen.User.ID, false)
	require.NoError(t, err)
	assert.False(t, user.Blocked)
	assert.Len(t, *rec, 1, "unblocking publishes nothing")

	_, err = svc.SetBlocked(admin, admin.ID, true)
	assert.ErrorIs(t, err, ErrNotCitizen)

	citizens, err := svc.ListCitizens()
	require.NoError(t, err)
	assert.Len(t, citizens, 1)
}

func TestApply(t *testing.T) {
	svc, _ := newTestService(t)

	user, created, err := svc.Apply(types.RoleStaff, AccountInput{Name: "Sam", Email: "sam@city.gov", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Apply(types.RoleStaff, AccountInput{Name: "Samuel", Email: "SAM@city.gov", Password: "ignored"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Samuel", again.Name)

	// Password is untouched on update
	_, err = svc.Login("sam@city.gov", "secret1")
	assert.NoError(t, err)

	_, _, err = svc.Apply(types.RoleAdmin, AccountInput{Name: "Sam", Email: "sam@city.gov", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, _, err = svc.Apply(types.RoleCitizen, AccountInput{Name: "C", Email: "c@city.gov", Password: "secret1"})
	assert.True(t, errdefs.IsInvalidArgument(err))
}
