package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
)

type NotificationPostgresStorage struct{}

func NewNotificationPostgresStorage() *NotificationPostgresStorage {
	return &NotificationPostgresStorage{}
}

func toNotification(n *models.Notification) *model.Notification {
	commentID := ""
	if n.CommentID != nil {
		commentID = fmt.Sprint(*n.CommentID)
	}
	return &model.Notification{
		ID:                fmt.Sprint(n.ID),
		RecipientUserID:   fmt.Sprint(n.RecipientID),
		TriggeredByUserID: fmt.Sprint(n.TriggeredByID),
		PostID:            fmt.Sprint(n.PostID),
		CommentID:         commentID,
		Type:              model.NotificationType(n.Type),
		Read:              n.Read,
		DedupeKey:         n.DedupeKey,
		CreatedAt:         n.CreatedAt.UTC(),
	}
}

func (s *NotificationPostgresStorage) CreateNotification(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	recipient, ok := parseID(n.RecipientUserID)
	if !ok {
		return nil, fmt.Errorf("invalid recipient id %q", n.RecipientUserID)
	}
	postID, _ := parseID(n.PostID)
	triggeredBy, _ := parseID(n.TriggeredByUserID)

	if n.DedupeKey != "" {
		exists, err := s.hasKey(n.DedupeKey)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, notification.ErrDuplicate
		}
	}

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := &models.Notification{
		RecipientID:   recipient,
		TriggeredByID: triggeredBy,
		PostID:        postID,
		Type:          string(n.Type),
		DedupeKey:     n.DedupeKey,
		CreatedAt:     createdAt,
	}
	if n.CommentID != "" {
		row.CommentID = optionalUint(&n.CommentID)
	}

	err := DB.Create(row).Error
	if err != nil {
		// параллельная вставка с тем же ключом упирается в уникальный индекс
		if n.DedupeKey != "" {
			if exists, _ := s.hasKey(n.DedupeKey); exists {
				return nil, notification.ErrDuplicate
			}
		}
		return nil, fmt.Errorf("could not create notification: %w", err)
	}

	return toNotification(row), nil
}

func (s *NotificationPostgresStorage) hasKey(key string) (bool, error) {
	var count int
	err := DB.Model(&models.Notification{}).Where("dedupe_key = ?", key).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("could not check dedupe key: %w", err)
	}
	return count > 0, nil
}

func (s *NotificationPostgresStorage) ListForUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	pk, ok := parseID(userID)
	if !ok {
		return []*model.Notification{}, nil
	}

	var rows []models.Notification
	err := DB.Where("recipient_id = ?", pk).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("could not list notifications: %w", err)
	}

	results := make([]*model.Notification, 0, len(rows))
	for i := range rows {
		results = append(results, toNotification(&rows[i]))
	}
	return results, nil
}

func (s *NotificationPostgresStorage) MarkRead(ctx context.Context, id, userID string) error {
	pk, ok := parseID(id)
	if !ok {
		return notification.ErrNotificationNotFound
	}
	recipient, ok := parseID(userID)
	if !ok {
		return notification.ErrNotificationNotFound
	}

	var n models.Notification
	err := DB.Where("id = ? AND recipient_id = ?", pk, recipient).First(&n).Error
	if gorm.IsRecordNotFoundError(err) {
		return notification.ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("could not get notification: %w", err)
	}

	err = DB.Model(&n).UpdateColumn("read", true).Error
	if err != nil {
		return fmt.Errorf("could not mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationPostgresStorage) DeleteByPost(ctx context.Context, postID string) error {
	pk, ok := parseID(postID)
	if !ok {
		return nil
	}

	err := DB.Where("post_id = ?", pk).Delete(&models.Notification{}).Error
	if err != nil {
		return fmt.Errorf("could not delete notifications: %w", err)
	}
	return nil
}
