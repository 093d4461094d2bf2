package notification

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/model"
)

var (
	// ErrDuplicate — запись с таким ключом идемпотентности уже существует.
	ErrDuplicate            = errors.New("duplicate notification")
	ErrNotificationNotFound = errors.New("notification not found")
)

type NotificationStorage interface {
	CreateNotification(ctx context.Context, n *model.Notification) (*model.Notification, error)
	// ListForUser возвращает уведомления получателя, новые первыми.
	ListForUser(ctx context.Context, userID string) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	DeleteByPost(ctx context.Context, postID string) error
}
