package issues

import (
	"strings"

	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
)

const (
	// DefaultPageLimit is used when a list request has no usable limit
	DefaultPageLimit = 10

	// MaxPageLimit caps the page size of a list request
	MaxPageLimit = 50
)

// ListQuery describes one page of the public issue listing
type ListQuery struct {
	Search   string
	Status   types.IssueStatus
	Priority types.Priority
	Category string
	Sort     storage.IssueSort
	Page     int
	Limit    int
}

// ListResult is one page of the listing plus the numbers needed to page it
type ListResult struct {
	Issues       []*types.Issue `json:"issues"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	Total        int            `json:"total"`
	TotalPages   int            `json:"totalPages"`
	BoostedTotal int            `json:"boostedTotal"`
}

// Normalize clamps paging values and validates filters in place
func (q *ListQuery) Normalize() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}

	if q.Sort == "" {
		q.Sort = storage.SortNewest
	}
	switch q.Sort {
	case storage.SortNewest, storage.SortOldest, storage.SortUpvotes:
	default:
		return invalidArgument("unknown sort %q", q.Sort)
	}

	if q.Status != "" && !q.Status.Valid() {
		return invalidArgument("unknown status %q", q.Status)
	}
	switch q.Priority {
	case "", types.PriorityNormal, types.PriorityHigh:
	default:
		return invalidArgument("unknown priority %q", q.Priority)
	}

	q.Search = strings.TrimSpace(q.Search)
	q.Category = normalizeCategory(q.Category)
	return nil
}

func (q ListQuery) filter(boosted bool) storage.IssueFilter {
	return storage.IssueFilter{
		Search:   q.Search,
		Status:   q.Status,
		Priority: q.Priority,
		Category: q.Category,
		Boosted:  &boosted,
	}
}

// PagePlan says which slice of the boosted and regular partitions make up
// one page of the combined sequence
type PagePlan struct {
	BoostedOffset int
	BoostedLimit  int
	RegularOffset int
	RegularLimit  int
	Total         int
	TotalPages    int
}

// PlanPage computes the windows for page over boostedTotal boosted issues
// followed by regularTotal regular issues. page and limit must already be
// clamped to positive values.
func PlanPage(boostedTotal, regularTotal, page, limit int) PagePlan {
	plan := PagePlan{Total: boostedTotal + regularTotal}
	if plan.Total > 0 {
		plan.TotalPages = (plan.Total + limit - 1) / limit
	}

	start := (page - 1) * limit
	end := start + limit

	if start < boostedTotal {
		plan.BoostedOffset = start
		plan.BoostedLimit = min(end, boostedTotal) - start
	}

	plan.RegularOffset = max(start-boostedTotal, 0)
	if n := min(end-boostedTotal, regularTotal) - plan.RegularOffset; n > 0 {
		plan.RegularLimit = n
	}
	return plan
}

// List returns one page of issues with boosted issues surfaced first
func (s *Service) List(q ListQuery) (*ListResult, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	var plan PagePlan
	parts, err := s.store.QueryPartitions(storage.PartitionQuery{
		First:      q.filter(true),
		FirstSort:  storage.SortBoostedRecent,
		Second:     q.filter(false),
		SecondSort: q.Sort,
		Plan: func(boostedTotal, regularTotal int) (storage.Window, storage.Window) {
			plan = PlanPage(boostedTotal, regularTotal, q.Page, q.Limit)
			return storage.Window{Offset: plan.BoostedOffset, Limit: plan.BoostedLimit},
				storage.Window{Offset: plan.RegularOffset, Limit: plan.RegularLimit}
		},
	})
	if err != nil {
		return nil, err
	}

	page := make([]*types.Issue, 0, len(parts.First)+len(parts.Second))
	page = append(page, parts.First...)
	page = append(page, parts.Second...)

	return &ListResult{
		Issues:       page,
		Page:         q.Page,
		Limit:        q.Limit,
		Total:        plan.Total,
		TotalPages:   plan.TotalPages,
		BoostedTotal: parts.FirstTotal,
	}, nil
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
