package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/notification"
)

type NotificationMemoryStorage struct {
	mu            sync.Mutex
	notifications []*model.Notification // в порядке создания
	keys          map[string]string     // dedupe key -> ID
	nextID        int
}

func NewNotificationMemoryStorage() *NotificationMemoryStorage {
	return &NotificationMemoryStorage{
		keys:   make(map[string]string),
		nextID: 1,
	}
}

func (s *NotificationMemoryStorage) CreateNotification(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.DedupeKey != "" {
		if _, exists := s.keys[n.DedupeKey]; exists {
			return nil, notification.ErrDuplicate
		}
	}

	stored := *n
	stored.ID = strconv.Itoa(s.nextID)
	s.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	s.notifications = append(s.notifications, &stored)
	if stored.DedupeKey != "" {
		s.keys[stored.DedupeKey] = stored.ID
	}

	result := stored
	return &result, nil
}

func (s *NotificationMemoryStorage) ListForUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := []*model.Notification{}
	// идем с конца, чтобы новые были первыми
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.RecipientUserID == userID {
			c := *n
			result = append(result, &c)
		}
	}
	return result, nil
}

func (s *NotificationMemoryStorage) MarkRead(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.ID == id && n.RecipientUserID == userID {
			n.Read = true
			return nil
		}
	}
	return notification.ErrNotificationNotFound
}

func (s *NotificationMemoryStorage) DeleteByPost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.PostID == postID {
			delete(s.keys, n.DedupeKey)
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return nil
}
