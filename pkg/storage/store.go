package storage

import (
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/types"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errdefs.ErrNotFound

	// ErrConflict is returned when a write would break a uniqueness rule
	ErrConflict = errdefs.ErrAlreadyExists

	// ErrEmailRequired is returned when a user document has no email to index
	ErrEmailRequired = fmt.Errorf("user email is required: %w", errdefs.ErrInvalidArgument)
)

// Store defines the interface for CityFix document storage
// This is implemented by BoltDB-backed storage
type Store interface {
	// Users
	CreateUser(user *types.User) error
	GetUser(id string) (*types.User, error)
	GetUserByEmail(email string) (*types.User, error)
	ListUsers(role types.Role) ([]*types.User, error)
	UpdateUser(id string, fn func(*types.User) error) (*types.User, error)
	DeleteUser(id string) error

	// Issues
	CreateIssue(issue *types.Issue) error
	GetIssue(id string) (*types.Issue, error)
	QueryIssues(q IssueQuery) ([]*types.Issue, error)
	CountIssues(f IssueFilter) (int, error)
	QueryPartitions(q PartitionQuery) (*PartitionResult, error)
	UpdateIssue(id string, fn func(*types.Issue) error) (*types.Issue, error)
	DeleteIssue(id string) error

	// Notifications
	CreateNotification(n *types.Notification) error
	GetNotification(id string) (*types.Notification, error)
	ListNotifications(userID string) ([]*types.Notification, error)
	UpdateNotification(id string, fn func(*types.Notification) error) (*types.Notification, error)
	MarkAllNotificationsRead(userID string) (int, error)
	DeleteNotification(id string) error

	// Messages
	CreateMessage(m *types.Message) error
	GetMessage(id string) (*types.Message, error)
	ListContactMessages() ([]*types.Message, error)
	ListIssueMessages(issueID string) ([]*types.Message, error)
	UpdateMessage(id string, fn func(*types.Message) error) (*types.Message, error)
	DeleteMessage(id string) error

	// Payments
	CreatePayment(p *types.Payment) error
	GetPayment(id string) (*types.Payment, error)
	GetPaymentBySession(sessionID string) (*types.Payment, error)
	ListPayments(f PaymentFilter) ([]*types.Payment, error)
	UpdatePayment(id string, fn func(*types.Payment) error) (*types.Payment, error)

	// Utility
	Ping() error
	Reindex() (int, error)
	Backup(w io.Writer) (int64, error)
	Close() error
}

// PaymentFilter narrows ListPayments; empty fields match everything
type PaymentFilter struct {
	UserID string
	Kind   types.PaymentKind
	Status types.PaymentStatus
}

// Match reports whether p passes the filter
func (f PaymentFilter) Match(p *types.Payment) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.Kind != "" && p.Kind != f.Kind {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}
