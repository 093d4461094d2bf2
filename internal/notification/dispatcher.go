package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/metrics"
	"github.com/VitaminP8/trackid/internal/model"
)

// ModerationTopic — лента очереди модерации (new_review_submission).
const ModerationTopic = "moderation"

const deliveryTimeout = 2 * time.Second

// Channel — канал доставки поверх записи уведомления (Redis, подписки SSE).
// Доставка fire-and-forget: ошибка канала не отменяет переход.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, topic string, n *model.Notification) error
}

func UserTopic(userID string) string {
	return "user:" + userID
}

// DedupeKey собирает ключ идемпотентности (type, postId, recipientUserId, transitionId).
func DedupeKey(t model.NotificationType, postID, recipientID, transitionID string) string {
	return strings.Join([]string{string(t), postID, recipientID, transitionID}, "|")
}

// Event описывает побочный эффект перехода, из которого получаются уведомления.
type Event struct {
	Type         model.NotificationType
	PostID       string
	CommentID    string
	TriggeredBy  string
	TransitionID string
	Recipients   []string
}

type Dispatcher struct {
	store    NotificationStorage
	channels []Channel
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewDispatcher(store NotificationStorage, now func() time.Time, channels ...Channel) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:    store,
		channels: channels,
		now:      now,
	}
}

// Dispatch создает по одной записи на получателя. Повтор с тем же TransitionID
// не создает дублей (ErrDuplicate считается успехом) и не доставляет повторно.
// Возвращает только вновь созданные записи.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) ([]*model.Notification, error) {
	const op = "notification/Dispatch"

	lg := logger.From(ctx).With("op", op, "type", ev.Type, "post_id", ev.PostID, "transition_id", ev.TransitionID)

	created := []*model.Notification{}
	seen := make(map[string]struct{}, len(ev.Recipients))
	for _, recipient := range ev.Recipients {
		if recipient == "" {
			continue
		}
		if _, ok := seen[recipient]; ok {
			continue
		}
		seen[recipient] = struct{}{}

		n, err := d.store.CreateNotification(ctx, &model.Notification{
			RecipientUserID:   recipient,
			TriggeredByUserID: ev.TriggeredBy,
			PostID:            ev.PostID,
			CommentID:         ev.CommentID,
			Type:              ev.Type,
			DedupeKey:         DedupeKey(ev.Type, ev.PostID, recipient, ev.TransitionID),
			CreatedAt:         d.now().UTC(),
		})
		if errors.Is(err, ErrDuplicate) {
			lg.Debug("notification already recorded", "recipient", recipient)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("%s: create notification for %s: %w", op, recipient, err)
		}

		metrics.NotificationsCreated.WithLabelValues(string(ev.Type)).Inc()
		created = append(created, n)
		d.deliver(ctx, UserTopic(recipient), n)
	}

	return created, nil
}

// Broadcast публикует событие в ленту без создания записи (лента очереди модерации).
func (d *Dispatcher) Broadcast(ctx context.Context, topic string, ev Event) {
	d.deliver(ctx, topic, &model.Notification{
		TriggeredByUserID: ev.TriggeredBy,
		PostID:            ev.PostID,
		CommentID:         ev.CommentID,
		Type:              ev.Type,
		CreatedAt:         d.now().UTC(),
	})
}

func (d *Dispatcher) deliver(ctx context.Context, topic string, n *model.Notification) {
	if len(d.channels) == 0 {
		return
	}

	lg := logger.From(ctx)
	// доставка не должна зависеть от отмены запроса, который ее вызвал
	base := context.WithoutCancel(ctx)

	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()

			deliverCtx, cancel := context.WithTimeout(base, deliveryTimeout)
			defer cancel()

			if err := ch.Deliver(deliverCtx, topic, n); err != nil {
				metrics.DeliveryFailures.WithLabelValues(ch.Name()).Inc()
				lg.Warn("notification delivery failed", "channel", ch.Name(), "topic", topic, "err", err)
			}
		}(ch)
	}
}

// Wait дожидается фоновых доставок (graceful shutdown и тесты).
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) List(ctx context.Context, userID string) ([]*model.Notification, error) {
	return d.store.ListForUser(ctx, userID)
}

func (d *Dispatcher) MarkRead(ctx context.Context, id, userID string) error {
	return d.store.MarkRead(ctx, id, userID)
}
