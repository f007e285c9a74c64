package messages

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyLength = 5000

var (
	// ErrNotParticipant is returned when a user reads or posts on a thread
	// that is not theirs
	ErrNotParticipant = fmt.Errorf("not a participant of this issue: %w", errdefs.ErrPermissionDenied)

	// ErrBlocked is returned when a blocked account tries to post
	ErrBlocked = fmt.Errorf("account is blocked: %w", errdefs.ErrPermissionDenied)
)

// Publisher receives thread events
type Publisher interface {
	Publish(event *events.Event)
}

// Service handles contact messages and issue threads
type Service struct {
	store  storage.Store
	events Publisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a message service
func NewService(store storage.Store, publisher Publisher) *Service {
	return &Service{
		store:  store,
		events: publisher,
		logger: log.WithComponent("messages"),
		now:    time.Now,
	}
}

// ContactInput is a contact form submission
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

// Contact stores a message for the admins. sender may be nil for
// anonymous visitors; for signed-in users their account fills the gaps.
func (s *Service) Contact(sender *types.User, in ContactInput) (*types.Message, error) {
	m := &types.Message{
		ID:      uuid.New().String(),
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: strings.TrimSpace(in.Subject),
		Body:    strings.TrimSpace(in.Body),
	}
	if sender != nil {
		m.SenderID = sender.ID
		if m.Name == "" {
			m.Name = sender.Name
		}
		if m.Email == "" {
			m.Email = sender.Email
		}
	}

	switch {
	case m.Name == "":
		return nil, invalid("name is required")
	case m.Email == "":
		return nil, invalid("email is required")
	case m.Subject == "":
		return nil, invalid("subject is required")
	}
	if addr, err := mail.ParseAddress(m.Email); err != nil || addr.Address != m.Email {
		return nil, invalid("invalid email %q", m.Email)
	}
	if err := checkBody(m.Body); err != nil {
		return nil, err
	}

	m.CreatedAt = s.now().UTC()
	if err := s.store.CreateMessage(m); err != nil {
		return nil, err
	}
	s.logger.Info().Str("message_id", m.ID).Msg("Contact message received")
	return m, nil
}

// ListContact returns all contact messages, newest first
func (s *Service) ListContact() ([]*types.Message, error) {
	return s.store.ListContactMessages()
}

// MarkContactRead flags a contact message as read
func (s *Service) MarkContactRead(id string) (*types.Message, error) {
	return s.store.UpdateMessage(id, func(m *types.Message) error {
		if m.IssueID != "" {
			return fmt.Errorf("message %s: %w", id, storage.ErrNotFound)
		}
		m.Read = true
		return nil
	})
}

// DeleteContact removes a contact message
func (s *Service) DeleteContact(id string) error {
	m, err := s.store.GetMessage(id)
	if err != nil {
		return err
	}
	if m.IssueID != "" {
		return fmt.Errorf("message %s: %w", id, storage.ErrNotFound)
	}
	return s.store.DeleteMessage(id)
}

// Post adds a message to an issue thread
func (s *Service) Post(actor *types.User, issueID, body string) (*types.Message, error) {
	if actor.Blocked {
		return nil, ErrBlocked
	}
	issue, err := s.participantIssue(actor, issueID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if err := checkBody(body); err != nil {
		return nil, err
	}

	m := &types.Message{
		ID:        uuid.New().String(),
		IssueID:   issue.ID,
		SenderID:  actor.ID,
		Name:      actor.Name,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateMessage(m); err != nil {
		return nil, err
	}

	s.events.Publish(&events.Event{
		Type:    events.EventIssueMessage,
		Message: body,
		IssueID: issue.ID,
		ActorID: actor.ID,
		Metadata: map[string]string{
			"reporter_id": issue.ReporterID,
			"assignee_id": issue.AssigneeID,
			"title":       issue.Title,
			"message_id":  m.ID,
		},
	})
	return m, nil
}

// Thread returns an issue's messages, oldest first
func (s *Service) Thread(actor *types.User, issueID string) ([]*types.Message, error) {
	if _, err := s.participantIssue(actor, issueID); err != nil {
		return nil, err
	}
	return s.store.ListIssueMessages(issueID)
}

func (s *Service) participantIssue(actor *types.User, issueID string) (*types.Issue, error) {
	issue, err := s.store.GetIssue(issueID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role == types.RoleAdmin:
	case actor.ID == issue.ReporterID:
	case actor.Role == types.RoleStaff && actor.ID == issue.AssigneeID:
	default:
		return nil, ErrNotParticipant
	}
	return issue, nil
}

func checkBody(body string) error {
	if body == "" {
		return invalid("message must not be empty")
	}
	if len(body) > maxBodyLength {
		return invalid("message is longer than %d characters", maxBodyLength)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errdefs.ErrInvalidArgument)
}
