package notify

import (
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
)

// ErrNotOwner is returned when a user touches somebody else's notification.
// It reads as not found so inbox IDs cannot be probed.
var ErrNotOwner = fmt.Errorf("notification: %w", errdefs.ErrNotFound)

// Service exposes a user's inbox
type Service struct {
	store storage.Store
}

// NewService creates an inbox service
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// List returns the user's notifications, newest first
func (s *Service) List(userID string, unreadOnly bool) ([]*types.Notification, error) {
	all, err := s.store.ListNotifications(userID)
	if err != nil {
		return nil, err
	}
	if !unreadOnly {
		return all, nil
	}
	unread := make([]*types.Notification, 0, len(all))
	for _, n := range all {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

// UnreadCount returns how many notifications the user has not read
func (s *Service) UnreadCount(userID string) (int, error) {
	unread, err := s.List(userID, true)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// MarkRead marks one of the user's notifications as read
func (s *Service) MarkRead(userID, id string) (*types.Notification, error) {
	return s.store.UpdateNotification(id, func(n *types.Notification) error {
		if n.UserID != userID {
			return ErrNotOwner
		}
		n.Read = true
		return nil
	})
}

// MarkAllRead marks every notification of the user as read and returns
// how many changed
func (s *Service) MarkAllRead(userID string) (int, error) {
	return s.store.MarkAllNotificationsRead(userID)
}

// Delete removes one of the user's notifications
func (s *Service) Delete(userID, id string) error {
	n, err := s.store.GetNotification(id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotOwner
	}
	return s.store.DeleteNotification(id)
}
