package types

import (
	"time"
)

// Role identifies what an account is allowed to do
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User is a citizen, staff member or admin account
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         Role      `json:"role"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Premium      bool      `json:"premium"`
	Blocked      bool      `json:"blocked"`
	IssueCount   int       `json:"issueCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy of the user without credentials
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

// IssueStatus is a position in the issue lifecycle
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "pending"
	IssueStatusInProgress IssueStatus = "in-progress"
	IssueStatusWorking    IssueStatus = "working"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
	IssueStatusRejected   IssueStatus = "rejected"
)

// IssueStatuses lists every lifecycle status in display order
var IssueStatuses = []IssueStatus{
	IssueStatusPending,
	IssueStatusInProgress,
	IssueStatusWorking,
	IssueStatusResolved,
	IssueStatusClosed,
	IssueStatusRejected,
}

// Valid reports whether s is a known status
func (s IssueStatus) Valid() bool {
	for _, known := range IssueStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s IssueStatus) Terminal() bool {
	return s == IssueStatusClosed || s == IssueStatusRejected
}

// Priority orders issues for staff attention
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Issue is a civic problem reported by a citizen
type Issue struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Status      IssueStatus     `json:"status"`
	Priority    Priority        `json:"priority"`
	Boosted     bool            `json:"boosted"`
	BoostedAt   *time.Time      `json:"boostedAt,omitempty"`
	ReporterID  string          `json:"reporterId"`
	AssigneeID  string          `json:"assigneeId,omitempty"`
	Upvoters    []string        `json:"upvoters,omitempty"`
	UpvoteCount int             `json:"upvoteCount"`
	Timeline    []TimelineEntry `json:"timeline"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// HasUpvoted reports whether userID already upvoted the issue
func (i *Issue) HasUpvoted(userID string) bool {
	for _, id := range i.Upvoters {
		if id == userID {
			return true
		}
	}
	return false
}

// TimelineEntry records one change in an issue's history
type TimelineEntry struct {
	Status    IssueStatus `json:"status"`
	Message   string      `json:"message"`
	ActorID   string      `json:"actorId"`
	ActorRole Role        `json:"actorRole"`
	At        time.Time   `json:"at"`
}

// NotificationKind classifies a notification
type NotificationKind string

const (
	NotificationIssueAssigned NotificationKind = "issue.assigned"
	NotificationIssueStatus   NotificationKind = "issue.status"
	NotificationIssueRejected NotificationKind = "issue.rejected"
	NotificationIssueBoosted  NotificationKind = "issue.boosted"
	NotificationIssueMessage  NotificationKind = "issue.message"
	NotificationPayment       NotificationKind = "payment"
)

// Notification is a message delivered to one user's inbox
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	IssueID   string           `json:"issueId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Message is either a contact-form message to admins (IssueID empty)
// or a post in an issue thread
type Message struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId,omitempty"`
	SenderID  string    `json:"senderId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaymentKind is what a payment buys
type PaymentKind string

const (
	PaymentKindPremium PaymentKind = "premium"
	PaymentKindBoost   PaymentKind = "boost"
)

// PaymentStatus tracks a checkout from creation to settlement
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment is one checkout session and its outcome
type Payment struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Kind      PaymentKind   `json:"kind"`
	IssueID   string        `json:"issueId,omitempty"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Status    PaymentStatus `json:"status"`
	SessionID string        `json:"sessionId"`
	CreatedAt time.Time     `json:"createdAt"`
	PaidAt    *time.Time    `json:"paidAt,omitempty"`
}
