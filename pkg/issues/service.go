package issues

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultFreeIssueLimit is how many issues a non-premium citizen may report
const DefaultFreeIssueLimit = 3

// Publisher receives the events emitted by issue operations
type Publisher interface {
	Publish(event *events.Event)
}

// Config holds issue service settings
type Config struct {
	// FreeIssueLimit of 0 disables the quota
	FreeIssueLimit int
}

// Service implements the issue lifecycle on top of a Store
type Service struct {
	store  storage.Store
	events Publisher
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates an issue service
func NewService(store storage.Store, publisher Publisher, cfg Config) *Service {
	return &Service{
		store:  store,
		events: publisher,
		cfg:    cfg,
		logger: log.WithComponent("issues"),
		now:    time.Now,
	}
}

// ReportInput holds the fields a citizen supplies when reporting an issue
type ReportInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	ImageURL    string `json:"imageUrl"`
}

func (in *ReportInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = normalizeCategory(in.Category)
	in.Location = strings.TrimSpace(in.Location)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if in.Location == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return invalidArgument("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// UpdateInput holds the editable issue fields; nil fields are left alone
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
	ImageURL    *string `json:"imageUrl"`
}

func (in UpdateInput) apply(issue *types.Issue) error {
	set := func(dst *string, src *string, name string, required bool) error {
		if src == nil {
			return nil
		}
		v := strings.TrimSpace(*src)
		if required && v == "" {
			return invalidArgument("%s must not be empty", name)
		}
		*dst = v
		return nil
	}
	if err := set(&issue.Title, in.Title, "title", true); err != nil {
		return err
	}
	if err := set(&issue.Description, in.Description, "description", true); err != nil {
		return err
	}
	if err := set(&issue.Location, in.Location, "location", true); err != nil {
		return err
	}
	if err := set(&issue.ImageURL, in.ImageURL, "imageUrl", false); err != nil {
		return err
	}
	if in.Category != nil {
		c := normalizeCategory(*in.Category)
		if c == "" {
			return invalidArgument("category must not be empty")
		}
		issue.Category = c
	}
	return nil
}

// Report files a new pending issue for a citizen and charges it to their quota
func (s *Service) Report(actor *types.User, in ReportInput) (*types.Issue, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if actor.Role != types.RoleCitizen {
		return nil, fmt.Errorf("only citizens report issues: %w", ErrForbidden)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	// Check and charge the quota in one transaction so concurrent reports
	// cannot both pass the limit
	_, err := s.store.UpdateUser(actor.ID, func(u *types.User) error {
		if u.Blocked {
			return ErrBlocked
		}
		if !u.Premium && s.cfg.FreeIssueLimit > 0 && u.IssueCount >= s.cfg.FreeIssueLimit {
			return ErrQuotaExceeded
		}
		u.IssueCount++
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	issue := &types.Issue{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		ImageURL:    in.ImageURL,
		Status:      types.IssueStatusPending,
		Priority:    types.PriorityNormal,
		ReporterID:  actor.ID,
		Timeline: []types.TimelineEntry{{
			Status:    types.IssueStatusPending,
			Message:   "Issue reported",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			At:        now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateIssue(issue); err != nil {
		s.releaseQuota(actor.ID)
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	s.logger.Info().
		Str("issue_id", issue.ID).
		Str("user_id", actor.ID).
		Str("category", issue.Category).
		Msg("Issue reported")

	s.publish(events.EventIssueCreated, issue, actor, "Issue reported", nil)
	return issue, nil
}

// Update edits a pending issue; only its reporter may do this
func (s *Service) Update(actor *types.User, id string, in UpdateInput) (*types.Issue, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	issue, err := s.store.UpdateIssue(id, func(issue *types.Issue) error {
		if issue.ReporterID != actor.ID {
			return fmt.Errorf("not the reporter of this issue: %w", ErrForbidden)
		}
		if issue.Status != types.IssueStatusPending {
			return ErrNotEditable
		}
		if err := in.apply(issue); err != nil {
			return err
		}
		issue.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.EventIssueUpdated, issue, actor, "Issue updated", nil)
	return issue, nil
}

// Delete removes an issue. Admins may delete anything, reporters only
// their own pending issues.
func (s *Service) Delete(actor *types.User, id string) error {
	if err := requireActive(actor); err != nil {
		return err
	}

	issue, err := s.store.GetIssue(id)
	if err != nil {
		return err
	}

	if actor.Role != types.RoleAdmin {
		if issue.ReporterID != actor.ID {
			return fmt.Errorf("not the reporter of this issue: %w", ErrForbidden)
		}
		if issue.Status != types.IssueStatusPending {
			return ErrNotEditable
		}
	}

	if err := s.store.DeleteIssue(id); err != nil {
		return err
	}
	s.releaseQuota(issue.ReporterID)

	s.logger.Info().
		Str("issue_id", id).
		Str("actor_id", actor.ID).
		Msg("Issue deleted")

	s.publish(events.EventIssueDeleted, issue, actor, "Issue deleted", nil)
	return nil
}

// Get returns a single issue
func (s *Service) Get(id string) (*types.Issue, error) {
	return s.store.GetIssue(id)
}

// ListByReporter returns a citizen's issues, newest first
func (s *Service) ListByReporter(userID string, status types.IssueStatus) ([]*types.Issue, error) {
	if status != "" && !status.Valid() {
		return nil, invalidArgument("unknown status %q", status)
	}
	return s.store.QueryIssues(storage.IssueQuery{
		Filter: storage.IssueFilter{ReporterID: userID, Status: status},
		Sort:   storage.SortNewest,
	})
}

// ListByAssignee returns the issues assigned to a staff member, boosted first
func (s *Service) ListByAssignee(staffID string, status types.IssueStatus) ([]*types.Issue, error) {
	if status != "" && !status.Valid() {
		return nil, invalidArgument("unknown status %q", status)
	}
	boosted := true
	regular := false

	first, err := s.store.QueryIssues(storage.IssueQuery{
		Filter: storage.IssueFilter{AssigneeID: staffID, Status: status, Boosted: &boosted},
		Sort:   storage.SortBoostedRecent,
	})
	if err != nil {
		return nil, err
	}
	rest, err := s.store.QueryIssues(storage.IssueQuery{
		Filter: storage.IssueFilter{AssigneeID: staffID, Status: status, Boosted: &regular},
		Sort:   storage.SortNewest,
	})
	if err != nil {
		return nil, err
	}
	return append(first, rest...), nil
}

// LatestResolved returns the n most recent resolved issues
func (s *Service) LatestResolved(n int) ([]*types.Issue, error) {
	if n < 1 {
		n = 6
	}
	if n > MaxPageLimit {
		n = MaxPageLimit
	}
	return s.store.QueryIssues(storage.IssueQuery{
		Filter: storage.IssueFilter{Status: types.IssueStatusResolved},
		Sort:   storage.SortNewest,
		Limit:  n,
	})
}

// Upvote records one upvote by actor on somebody else's issue
func (s *Service) Upvote(actor *types.User, id string) (*types.Issue, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	issue, err := s.store.UpdateIssue(id, func(issue *types.Issue) error {
		if issue.ReporterID == actor.ID {
			return ErrOwnIssue
		}
		if issue.HasUpvoted(actor.ID) {
			return ErrAlreadyUpvoted
		}
		issue.Upvoters = append(issue.Upvoters, actor.ID)
		issue.UpvoteCount = len(issue.Upvoters)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.EventIssueUpvoted, issue, actor, "Issue upvoted", nil)
	return issue, nil
}

// Assign gives a pending issue to a staff member. Reassignment is allowed
// until work starts.
func (s *Service) Assign(actor *types.User, id, staffID string) (*types.Issue, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	if actor.Role != types.RoleAdmin {
		return nil, fmt.Errorf("only admins assign issues: %w", ErrForbidden)
	}

	staff, err := s.store.GetUser(staffID)
	if err != nil {
		return nil, err
	}
	if staff.Role != types.RoleStaff {
		return nil, invalidArgument("user %s is not a staff member", staffID)
	}

	var previous string
	issue, err := s.store.UpdateIssue(id, func(issue *types.Issue) error {
		if !CanAssign(issue) {
			return ErrNotAssignable
		}
		previous = issue.AssigneeID
		if previous == staff.ID {
			return invalidArgument("issue is already assigned to %s", staff.Name)
		}
		now := s.now().UTC()
		issue.AssigneeID = staff.ID
		issue.Timeline = append(issue.Timeline, types.TimelineEntry{
			Status:    issue.Status,
			Message:   fmt.Sprintf("Issue assigned to %s", staff.Name),
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			At:        now,
		})
		issue.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("issue_id", issue.ID).
		Str("assignee_id", staff.ID).
		Str("previous_assignee_id", previous).
		Msg("Issue assigned")

	meta := map[string]string{"assignee_id": staff.ID}
	if previous != "" {
		meta["previous_assignee_id"] = previous
	}
	s.publish(events.EventIssueAssigned, issue, actor, fmt.Sprintf("Issue assigned to %s", staff.Name), meta)
	return issue, nil
}

// Transition moves an issue along the lifecycle. An empty message is
// replaced by a default one for the target status.
func (s *Service) Transition(actor *types.User, id string, to types.IssueStatus, message string) (*types.Issue, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	if message == "" {
		message = defaultTransitionMessage(to)
	}

	var from types.IssueStatus
	issue, err := s.store.UpdateIssue(id, func(issue *types.Issue) error {
		if err := CheckTransition(issue, to, actor); err != nil {
			return err
		}
		from = issue.Status
		now := s.now().UTC()
		issue.Status = to
		issue.Timeline = append(issue.Timeline, types.TimelineEntry{
			Status:    to,
			Message:   message,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			At:        now,
		})
		issue.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("issue_id", issue.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor_id", actor.ID).
		Msg("Issue status changed")

	eventType := events.EventIssueStatusChanged
	if to == types.IssueStatusRejected {
		eventType = events.EventIssueRejected
	}
	s.publish(eventType, issue, actor, message, map[string]string{
		"from": string(from),
		"to":   string(to),
	})
	return issue, nil
}

// Transitions lists the statuses actor may move the issue to next
func (s *Service) Transitions(actor *types.User, id string) ([]types.IssueStatus, error) {
	issue, err := s.store.GetIssue(id)
	if err != nil {
		return nil, err
	}
	return NextStatuses(issue, actor), nil
}

// Boost marks an issue as boosted with high priority. It reports whether
// the issue changed; boosting a boosted issue is a no-op.
func (s *Service) Boost(id, actorID string) (*types.Issue, bool, error) {
	changed := false
	issue, err := s.store.UpdateIssue(id, func(issue *types.Issue) error {
		if issue.Boosted {
			return nil
		}
		now := s.now().UTC()
		issue.Boosted = true
		issue.BoostedAt = &now
		issue.Priority = types.PriorityHigh
		issue.Timeline = append(issue.Timeline, types.TimelineEntry{
			Status:    issue.Status,
			Message:   "Issue boosted to high priority",
			ActorID:   actorID,
			ActorRole: types.RoleCitizen,
			At:        now,
		})
		issue.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return issue, false, nil
	}

	s.logger.Info().
		Str("issue_id", issue.ID).
		Str("user_id", actorID).
		Msg("Issue boosted")

	s.events.Publish(&events.Event{
		Type:    events.EventIssueBoosted,
		Message: "Issue boosted to high priority",
		IssueID: issue.ID,
		ActorID: actorID,
		Metadata: map[string]string{
			"reporter_id": issue.ReporterID,
			"assignee_id": issue.AssigneeID,
			"title":       issue.Title,
		},
	})
	return issue, true, nil
}

// releaseQuota gives back one issue slot; failures are logged only
func (s *Service) releaseQuota(userID string) {
	_, err := s.store.UpdateUser(userID, func(u *types.User) error {
		if u.IssueCount > 0 {
			u.IssueCount--
		}
		return nil
	})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to release issue quota")
	}
}

func (s *Service) publish(t events.EventType, issue *types.Issue, actor *types.User, message string, extra map[string]string) {
	meta := map[string]string{
		"reporter_id": issue.ReporterID,
		"assignee_id": issue.AssigneeID,
		"title":       issue.Title,
		"status":      string(issue.Status),
	}
	for k, v := range extra {
		meta[k] = v
	}
	s.events.Publish(&events.Event{
		Type:     t,
		Message:  message,
		IssueID:  issue.ID,
		ActorID:  actor.ID,
		Metadata: meta,
	})
}

func requireActive(actor *types.User) error {
	if actor == nil {
		return fmt.Errorf("no authenticated user: %w", ErrForbidden)
	}
	if actor.Blocked {
		return ErrBlocked
	}
	return nil
}
