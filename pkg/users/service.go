package users

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/auth"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrEmailTaken is returned when an email is already registered
	ErrEmailTaken = fmt.Errorf("email already registered: %w", errdefs.ErrAlreadyExists)

	// ErrNotStaff is returned when a staff operation targets another kind of account
	ErrNotStaff = fmt.Errorf("user is not a staff member: %w", errdefs.ErrNotFound)

	// ErrNotCitizen is returned when a citizen operation targets another kind of account
	ErrNotCitizen = fmt.Errorf("user is not a citizen: %w", errdefs.ErrFailedPrecondition)
)

// Publisher receives account events
type Publisher interface {
	Publish(event *events.Event)
}

// Service manages accounts and logins
type Service struct {
	store  storage.Store
	hasher *auth.Hasher
	tokens *auth.TokenManager
	events Publisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a user service
func NewService(store storage.Store, hasher *auth.Hasher, tokens *auth.TokenManager, publisher Publisher) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		events: publisher,
		logger: log.WithComponent("users"),
		now:    time.Now,
	}
}

// AccountInput holds the fields used to create an account
type AccountInput struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
	PhotoURL string `json:"photoUrl" yaml:"photoUrl"`
	Phone    string `json:"phone" yaml:"phone"`
}

// ProfileInput holds editable profile fields; nil fields are left alone
type ProfileInput struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photoUrl"`
	Phone    *string `json:"phone"`
}

// StaffInput holds editable staff fields; nil fields are left alone
type StaffInput struct {
	ProfileInput
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Session is the result of a successful login or registration
type Session struct {
	User  *types.User `json:"user"`
	Token *auth.Token `json:"token"`
}

// Register creates a citizen account and logs it in
func (s *Service) Register(in AccountInput) (*Session, error) {
	user, err := s.create(in, types.RoleCitizen)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user.Public(), Token: token}, nil
}

// Login checks credentials and issues a token. Blocked accounts can still
// log in; writes are refused elsewhere.
func (s *Service) Login(email, password string) (*Session, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		s.logger.Debug().Str("user_id", user.ID).Msg("Login rejected")
		return nil, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user.Public(), Token: token}, nil
}

// Get returns an account without credentials
func (s *Service) Get(id string) (*types.User, error) {
	user, err := s.store.GetUser(id)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// UpdateProfile edits the caller's own profile
func (s *Service) UpdateProfile(id string, in ProfileInput) (*types.User, error) {
	user, err := s.store.UpdateUser(id, func(u *types.User) error {
		if err := in.apply(u); err != nil {
			return err
		}
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// CreateStaff creates a staff account
func (s *Service) CreateStaff(in AccountInput) (*types.User, error) {
	user, err := s.create(in, types.RoleStaff)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// CreateAdmin creates an admin account; it is used for bootstrapping
func (s *Service) CreateAdmin(in AccountInput) (*types.User, error) {
	user, err := s.create(in, types.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// Apply creates the account described by in, or refreshes the profile of
// an existing account with the same email and role. Passwords of existing
// accounts are never changed.
func (s *Service) Apply(role types.Role, in AccountInput) (*types.User, bool, error) {
	if role != types.RoleStaff && role != types.RoleAdmin {
		return nil, false, fmt.Errorf("cannot apply accounts with role %q: %w", role, errdefs.ErrInvalidArgument)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.store.GetUserByEmail(email)
	if errdefs.IsNotFound(err) {
		user, err := s.create(in, role)
		if err != nil {
			return nil, false, err
		}
		return user.Public(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if existing.Role != role {
		return nil, false, fmt.Errorf("%s is registered as %s: %w", email, existing.Role, ErrEmailTaken)
	}

	name, photo, phone := in.Name, in.PhotoURL, in.Phone
	profile := ProfileInput{Name: &name}
	if photo != "" {
		profile.PhotoURL = &photo
	}
	if phone != "" {
		profile.Phone = &phone
	}
	user, err := s.UpdateProfile(existing.ID, profile)
	if err != nil {
		return nil, false, err
	}
	return user, false, nil
}

// ListStaff returns all staff accounts
func (s *Service) ListStaff() ([]*types.User, error) {
	return s.list(types.RoleStaff)
}

// ListCitizens returns all citizen accounts
func (s *Service) ListCitizens() ([]*types.User, error) {
	return s.list(types.RoleCitizen)
}

// UpdateStaff edits a staff account
func (s *Service) UpdateStaff(id string, in StaffInput) (*types.User, error) {
	var hash string
	if in.Password != nil {
		h, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	var email string
	if in.Email != nil {
		e, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		email = e
	}

	user, err := s.store.UpdateUser(id, func(u *types.User) error {
		if u.Role != types.RoleStaff {
			return ErrNotStaff
		}
		if err := in.apply(u); err != nil {
			return err
		}
		if email != "" {
			u.Email = email
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, translateConflict(err)
	}
	return user.Public(), nil
}

// DeleteStaff removes a staff account. Issues keep their historical assignee.
func (s *Service) DeleteStaff(id string) error {
	user, err := s.store.GetUser(id)
	if err != nil {
		return err
	}
	if user.Role != types.RoleStaff {
		return ErrNotStaff
	}
	if err := s.store.DeleteUser(id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("Staff account deleted")
	return nil
}

// SetBlocked blocks or unblocks a citizen
func (s *Service) SetBlocked(actor *types.User, id string, blocked bool) (*types.User, error) {
	user, err := s.store.UpdateUser(id, func(u *types.User) error {
		if u.Role != types.RoleCitizen {
			return ErrNotCitizen
		}
		u.Blocked = blocked
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	state := "unblocked"
	if blocked {
		state = "blocked"
	}
	s.logger.Info().Str("user_id", id).Str("actor_id", actor.ID).Msgf("Citizen %s", state)

	if blocked {
		s.events.Publish(&events.Event{
			Type:     events.EventUserBlocked,
			Message:  "Account blocked",
			ActorID:  actor.ID,
			Metadata: map[string]string{"user_id": id},
		})
	}
	return user.Public(), nil
}

func (s *Service) create(in AccountInput, role types.Role) (*types.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", errdefs.ErrInvalidArgument)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &types.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		PhotoURL:     strings.TrimSpace(in.PhotoURL),
		Phone:        strings.TrimSpace(in.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, translateConflict(err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", string(role)).
		Msg("Account created")
	return user, nil
}

func (s *Service) list(role types.Role) ([]*types.User, error) {
	users, err := s.store.ListUsers(role)
	if err != nil {
		return nil, err
	}
	out := make([]*types.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, nil
}

func (in ProfileInput) apply(u *types.User) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("name must not be empty: %w", errdefs.ErrInvalidArgument)
		}
		u.Name = name
	}
	if in.PhotoURL != nil {
		u.PhotoURL = strings.TrimSpace(*in.PhotoURL)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email %q: %w", email, errdefs.ErrInvalidArgument)
	}
	return email, nil
}

func translateConflict(err error) error {
	if errors.Is(err, storage.ErrConflict) {
		return ErrEmailTaken
	}
	return err
}
