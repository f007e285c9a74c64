package stats

import (
	"fmt"

	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
)

// ByStatus counts issues per lifecycle status; every status is present
type ByStatus map[types.IssueStatus]int

// Admin is the dashboard summary for administrators
type Admin struct {
	Issues       ByStatus `json:"issues"`
	TotalIssues  int      `json:"totalIssues"`
	Boosted      int      `json:"boosted"`
	Citizens     int      `json:"citizens"`
	Staff        int      `json:"staff"`
	Revenue      int64    `json:"revenue"`
	PaidPayments int      `json:"paidPayments"`
}

// Staff summarises the issues assigned to one staff member
type Staff struct {
	Assigned      ByStatus `json:"assigned"`
	TotalAssigned int      `json:"totalAssigned"`
}

// Citizen summarises one citizen's reports and spending
type Citizen struct {
	Issues      ByStatus `json:"issues"`
	TotalIssues int      `json:"totalIssues"`
	Upvotes     int      `json:"upvotes"`
	TotalPaid   int64    `json:"totalPaid"`
	Premium     bool     `json:"premium"`
}

// Service computes dashboard counts from the store
type Service struct {
	store storage.Store
}

// NewService creates a stats service
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Admin returns the site-wide summary
func (s *Service) Admin() (*Admin, error) {
	issues, err := s.store.QueryIssues(storage.IssueQuery{})
	if err != nil {
		return nil, fmt.Errorf("failed to load issues: %w", err)
	}
	out := &Admin{Issues: countByStatus(issues), TotalIssues: len(issues)}
	for _, i := range issues {
		if i.Boosted {
			out.Boosted++
		}
	}

	users, err := s.store.ListUsers("")
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		switch u.Role {
		case types.RoleCitizen:
			out.Citizens++
		case types.RoleStaff:
			out.Staff++
		}
	}

	out.Revenue, out.PaidPayments, err = s.paid("")
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Staff returns counts for issues assigned to staffID
func (s *Service) Staff(staffID string) (*Staff, error) {
	issues, err := s.store.QueryIssues(storage.IssueQuery{
		Filter: storage.IssueFilter{AssigneeID: staffID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned issues: %w", err)
	}
	return &Staff{Assigned: countByStatus(issues), TotalAssigned: len(issues)}, nil
}

// Citizen returns counts for issues reported by userID and what they paid
func (s *Service) Citizen(userID string) (*Citizen, error) {
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	issues, err := s.store.QueryIssues(storage.IssueQuery{
		Filter: storage.IssueFilter{ReporterID: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load reported issues: %w", err)
	}

	out := &Citizen{
		Issues:      countByStatus(issues),
		TotalIssues: len(issues),
		Premium:     user.Premium,
	}
	for _, i := range issues {
		out.Upvotes += i.UpvoteCount
	}
	out.TotalPaid, _, err = s.paid(userID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) paid(userID string) (int64, int, error) {
	payments, err := s.store.ListPayments(storage.PaymentFilter{
		UserID: userID,
		Status: types.PaymentStatusPaid,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load payments: %w", err)
	}
	var total int64
	for _, p := range payments {
		total += p.Amount
	}
	return total, len(payments), nil
}

func countByStatus(issues []*types.Issue) ByStatus {
	out := make(ByStatus, len(types.IssueStatuses))
	for _, st := range types.IssueStatuses {
		out[st] = 0
	}
	for _, i := range issues {
		out[i.Status]++
	}
	return out
}
