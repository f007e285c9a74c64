package storage

import (
	"sort"
	"strings"

	"github.com/cuemby/cityfix/pkg/types"
)

// IssueSort selects the ordering of QueryIssues results
type IssueSort string

const (
	SortNewest  IssueSort = "newest"
	SortOldest  IssueSort = "oldest"
	SortUpvotes IssueSort = "upvotes"

	// SortBoostedRecent orders by boost time, most recent first
	SortBoostedRecent IssueSort = "boosted"
)

// Valid reports whether s is a known sort
func (s IssueSort) Valid() bool {
	switch s {
	case SortNewest, SortOldest, SortUpvotes, SortBoostedRecent:
		return true
	}
	return false
}

// IssueFilter narrows issue queries; zero values match everything
type IssueFilter struct {
	// Search is matched case-insensitively against title, category and location
	Search     string
	Status     types.IssueStatus
	Priority   types.Priority
	Category   string
	ReporterID string
	AssigneeID string
	Boosted    *bool
}

// IssueQuery is a filtered, sorted window over the issues bucket
type IssueQuery struct {
	Filter IssueFilter
	Sort   IssueSort
	Offset int
	// Limit of 0 returns every match after Offset
	Limit int
}

// Window is an offset/limit cut over one partition. A Limit of 0 or less
// takes nothing.
type Window struct {
	Offset int
	Limit  int
}

// PartitionQuery reads two filtered partitions of the issues bucket from one
// read transaction. Plan receives the match count of each partition and
// returns the window to take from each.
type PartitionQuery struct {
	First      IssueFilter
	FirstSort  IssueSort
	Second     IssueFilter
	SecondSort IssueSort
	Plan       func(firstTotal, secondTotal int) (Window, Window)
}

// PartitionResult holds both windows and the counts they were planned from
type PartitionResult struct {
	First       []*types.Issue
	Second      []*types.Issue
	FirstTotal  int
	SecondTotal int
}

// Match reports whether issue passes the filter
func (f IssueFilter) Match(issue *types.Issue) bool {
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.Priority != "" && issue.Priority != f.Priority {
		return false
	}
	if f.Category != "" && !strings.EqualFold(issue.Category, f.Category) {
		return false
	}
	if f.ReporterID != "" && issue.ReporterID != f.ReporterID {
		return false
	}
	if f.AssigneeID != "" && issue.AssigneeID != f.AssigneeID {
		return false
	}
	if f.Boosted != nil && issue.Boosted != *f.Boosted {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(strings.TrimSpace(f.Search))
		if !strings.Contains(strings.ToLower(issue.Title), needle) &&
			!strings.Contains(strings.ToLower(issue.Category), needle) &&
			!strings.Contains(strings.ToLower(issue.Location), needle) {
			return false
		}
	}
	return true
}

// sortIssues orders issues in place; ties fall back to newest first, then ID
func sortIssues(issues []*types.Issue, by IssueSort) {
	newer := func(a, b *types.Issue) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}

	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		switch by {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		case SortUpvotes:
			if a.UpvoteCount != b.UpvoteCount {
				return a.UpvoteCount > b.UpvoteCount
			}
			return newer(a, b)
		case SortBoostedRecent:
			at, bt := a.BoostedAt, b.BoostedAt
			switch {
			case at != nil && bt != nil && !at.Equal(*bt):
				return at.After(*bt)
			case at != nil && bt == nil:
				return true
			case at == nil && bt != nil:
				return false
			}
			return newer(a, b)
		default:
			return newer(a, b)
		}
	})
}

func (w Window) apply(issues []*types.Issue) []*types.Issue {
	if w.Limit <= 0 {
		return []*types.Issue{}
	}
	return window(issues, w.Offset, w.Limit)
}

// window applies offset and limit to an already sorted slice
func window(issues []*types.Issue, offset, limit int) []*types.Issue {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(issues) {
		return []*types.Issue{}
	}
	end := len(issues)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return issues[offset:end]
}
