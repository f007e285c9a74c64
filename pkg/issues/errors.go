package issues

import (
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrForbidden is returned when the actor's role may not perform the action
	ErrForbidden = fmt.Errorf("forbidden: %w", errdefs.ErrPermissionDenied)

	// ErrBlocked is returned for any write by a blocked account
	ErrBlocked = fmt.Errorf("account is blocked: %w", errdefs.ErrPermissionDenied)

	// ErrInvalidTransition is returned when the lifecycle has no edge between two statuses
	ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", errdefs.ErrFailedPrecondition)

	// ErrNotEditable is returned when a citizen edits or deletes a non-pending issue
	ErrNotEditable = fmt.Errorf("only pending issues can be changed: %w", errdefs.ErrFailedPrecondition)

	// ErrNotAssignable is returned when staff cannot be assigned in the current status
	ErrNotAssignable = fmt.Errorf("issue cannot be assigned in its current status: %w", errdefs.ErrFailedPrecondition)

	// ErrUnassigned is returned when work starts on an issue nobody was assigned to
	ErrUnassigned = fmt.Errorf("issue has no assigned staff: %w", errdefs.ErrFailedPrecondition)

	// ErrQuotaExceeded is returned when a free account reached its issue limit
	ErrQuotaExceeded = fmt.Errorf("free issue limit reached, upgrade to premium: %w", errdefs.ErrResourceExhausted)

	// ErrAlreadyUpvoted is returned on a second upvote by the same user
	ErrAlreadyUpvoted = fmt.Errorf("issue already upvoted: %w", errdefs.ErrAlreadyExists)

	// ErrOwnIssue is returned when a reporter upvotes their own issue
	ErrOwnIssue = fmt.Errorf("cannot upvote your own issue: %w", errdefs.ErrFailedPrecondition)
)

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errdefs.ErrInvalidArgument)
}
