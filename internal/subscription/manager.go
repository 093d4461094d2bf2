package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/VitaminP8/trackid/internal/model"
)

// publishTimeout — сколько ждем медленного подписчика, прежде чем пропустить его
const publishTimeout = 500 * time.Millisecond

// SubscriptionManager раздает уведомления подписчикам внутри процесса (SSE-поток инбокса).
type SubscriptionManager struct {
	mu   sync.Mutex
	subs map[string][]chan *model.Notification // topic -> список каналов подписчиков
}

func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		subs: make(map[string][]chan *model.Notification),
	}
}

func (m *SubscriptionManager) Subscribe(topic string) (<-chan *model.Notification, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan *model.Notification, 1) // Буфер 1, чтобы не блокировался писатель

	m.subs[topic] = append(m.subs[topic], ch)

	// функция для отписки
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			subscribers := m.subs[topic]
			for i, sub := range subscribers {
				if sub == ch {
					// Удаляем подписчика
					m.subs[topic] = append(subscribers[:i], subscribers[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}

	return ch, cancel
}

func (m *SubscriptionManager) Publish(topic string, n *model.Notification) {
	_ = m.publish(context.Background(), topic, n)
}

// publish отдает n подписчикам topic. Медленного подписчика ждем не дольше
// publishTimeout, отмена ctx прерывает рассылку.
func (m *SubscriptionManager) publish(ctx context.Context, topic string, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs[topic] {
		timer := time.NewTimer(publishTimeout)
		select {
		case sub <- n:
		case <-timer.C:
			// Если канал заполнен, ждем короткое время
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		timer.Stop()
	}
	return nil
}

// Name и Deliver позволяют использовать менеджер как канал доставки диспетчера уведомлений.
func (m *SubscriptionManager) Name() string {
	return "subscription"
}

func (m *SubscriptionManager) Deliver(ctx context.Context, topic string, n *model.Notification) error {
	return m.publish(ctx, topic, n)
}
