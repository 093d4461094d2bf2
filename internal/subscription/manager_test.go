package subscription

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionManager_Subscribe(t *testing.T) {
	t.Run("Should create a subscription channel", func(t *testing.T) {
		manager := NewSubscriptionManager()
		topic := "user:123"

		ch, cancel := manager.Subscribe(topic)
		assert.NotNil(t, ch)
		assert.NotNil(t, cancel)

		manager.mu.Lock()
		subscribers, exists := manager.subs[topic]
		manager.mu.Unlock()
		assert.True(t, exists)
		assert.Len(t, subscribers, 1)

		// Вызываем отмену подписки
		cancel()

		manager.mu.Lock()
		subscribers, exists = manager.subs[topic]
		manager.mu.Unlock()
		assert.True(t, exists)
		assert.Len(t, subscribers, 0)
	})

	t.Run("Multiple subscriptions to the same topic", func(t *testing.T) {
		manager := NewSubscriptionManager()
		topic := "user:123"

		// Создаем 3 подписки
		_, cancel1 := manager.Subscribe(topic)
		_, cancel2 := manager.Subscribe(topic)
		_, cancel3 := manager.Subscribe(topic)

		manager.mu.Lock()
		subscribers, exists := manager.subs[topic]
		manager.mu.Unlock()
		assert.True(t, exists)
		assert.Len(t, subscribers, 3)

		// Отменяем вторую подписку
		cancel2()

		manager.mu.Lock()
		subscribers, exists = manager.subs[topic]
		manager.mu.Unlock()
		assert.True(t, exists)
		assert.Len(t, subscribers, 2)

		// Отменяем остальные подписки
		cancel1()
		cancel3()

		manager.mu.Lock()
		subscribers, exists = manager.subs[topic]
		manager.mu.Unlock()
		assert.True(t, exists)
		assert.Len(t, subscribers, 0)
	})

	t.Run("Subscriptions to different topics", func(t *testing.T) {
		manager := NewSubscriptionManager()

		// Создаем подписки на разные посты
		_, cancel1 := manager.Subscribe("user:1")
		_, cancel2 := manager.Subscribe("user:2")
		_, cancel3 := manager.Subscribe("user:3")

		manager.mu.Lock()
		assert.Len(t, manager.subs, 3)
		manager.mu.Unlock()

		// Отменяем все подписки
		cancel1()
		cancel2()
		cancel3()

		manager.mu.Lock()
		assert.Len(t, manager.subs["user:1"], 0)
		assert.Len(t, manager.subs["user:2"], 0)
		assert.Len(t, manager.subs["user:3"], 0)
		manager.mu.Unlock()
	})
}

func TestSubscriptionManager_Publish(t *testing.T) {
	t.Run("Should send notification to subscribers", func(t *testing.T) {
		manager := NewSubscriptionManager()
		topic := "user:123"

		ch, cancel := manager.Subscribe(topic)
		defer cancel()

		n := &model.Notification{
			ID:              "456",
			RecipientUserID: "123",
			PostID:          "42",
			Type:            model.NotificationModeratorConfirmed,
			CreatedAt:       time.Now(),
		}

		// Публикуем уведомление
		manager.Publish(topic, n)

		// Проверяем, что уведомление получено
		select {
		case received := <-ch:
			assert.Equal(t, n, received)
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for notification")
		}
	})

	t.Run("Multiple subscribers should all receive the notification", func(t *testing.T) {
		manager := NewSubscriptionManager()
		topic := "user:123"

		ch1, cancel1 := manager.Subscribe(topic)
		ch2, cancel2 := manager.Subscribe(topic)
		ch3, cancel3 := manager.Subscribe(topic)
		defer cancel1()
		defer cancel2()
		defer cancel3()

		n := &model.Notification{
			ID:              "456",
			RecipientUserID: "123",
			PostID:          "42",
			Type:            model.NotificationModeratorConfirmed,
			CreatedAt:       time.Now(),
		}

		manager.Publish(topic, n)

		for i, ch := range []<-chan *model.Notification{ch1, ch2, ch3} {
			select {
			case received := <-ch:
				assert.Equal(t, n, received, "Subscriber %d did not receive correct notification", i+1)
			case <-time.After(time.Second):
				t.Fatalf("Subscriber %d timed out waiting for notification", i+1)
			}
		}
	})

	t.Run("Should only send to subscribers of the specific topic", func(t *testing.T) {
		manager := NewSubscriptionManager()

		ch1, cancel1 := manager.Subscribe("user:1")
		ch2, cancel2 := manager.Subscribe("user:2")
		defer cancel1()
		defer cancel2()

		n := &model.Notification{
			ID:              "456",
			RecipientUserID: "123",
			PostID:          "42",
			Type:            model.NotificationModeratorConfirmed,
			CreatedAt:       time.Now(),
		}

		manager.Publish("user:1", n)

		select {
		case received := <-ch1:
			assert.Equal(t, n, received)
		case <-time.After(time.Second):
			t.Fatal("Subscriber of user:1 timed out waiting for notification")
		}

		select {
		case <-ch2:
			t.Fatal("Subscriber of user:2 should not receive the notification")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("Publishing to a topic with no subscribers should not panic", func(t *testing.T) {
		manager := NewSubscriptionManager()

		n := &model.Notification{
			ID:              "456",
			RecipientUserID: "123",
			PostID:          "42",
			Type:            model.NotificationModeratorConfirmed,
			CreatedAt:       time.Now(),
		}

		assert.NotPanics(t, func() {
			manager.Publish("user:1", n)
		})
	})
}

func TestSubscriptionManager_Concurrent(t *testing.T) {
	t.Run("Concurrent subscriptions and publications", func(t *testing.T) {
		manager := NewSubscriptionManager()
		topic := "user:123"

		// Количество подписчиков и публикаций
		numSubscribers := 10
		numPublications := 5

		var wg sync.WaitGroup

		// Создаем подписчиков
		chans := make([]<-chan *model.Notification, numSubscribers)
		cancels := make([]func(), numSubscribers)

		// Счетчик полученных уведомлений для каждого подписчика
		received := make([]int, numSubscribers)

		var mu sync.Mutex

		for i := 0; i < numSubscribers; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				ch, cancel := manager.Subscribe(topic)
				chans[idx] = ch
				cancels[idx] = cancel

				// Запускаем горутину для чтения из канала
				go func(idx int, ch <-chan *model.Notification) {
					for n := range ch {
						require.Equal(t, "123", n.RecipientUserID)
						mu.Lock()
						received[idx]++
						mu.Unlock()
					}
				}(idx, ch)
			}(i)
		}

		// Ожидаем завершения подписок
		wg.Wait()

		// Публикуем уведомления
		for i := 0; i < numPublications; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				n := &model.Notification{
					ID:              strconv.Itoa(1000 + idx),
					RecipientUserID: "123",
					PostID:          strconv.Itoa(idx),
					Type:            model.NotificationModeratorReopened,
					CreatedAt:       time.Now(),
				}
				manager.Publish(topic, n)
			}(i)
		}

		wg.Wait()

		// Даем время на обработку всех сообщений
		time.Sleep(1000 * time.Millisecond)

		// Отменяем все подписки
		for _, cancel := range cancels {
			cancel()
		}

		// Проверяем, что все подписчики получили все публикации
		mu.Lock()
		for i := 0; i < numSubscribers; i++ {
			assert.Equal(t, numPublications, received[i], "Subscriber %d did not receive all publications", i)
		}
		mu.Unlock()
	})

	t.Run("Concurrent subscribes and unsubscribes", func(t *testing.T) {
		manager := NewSubscriptionManager()
		topic := "user:123"

		var wg sync.WaitGroup
		numOperations := 100

		for i := 0; i < numOperations; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				// Подписываемся
				ch, cancel := manager.Subscribe(topic)

				// Небольшая задержка
				time.Sleep(5 * time.Millisecond)

				// Отписываемся
				cancel()

				// Проверяем, что канал закрыт
				_, ok := <-ch
				assert.False(t, ok, "Channel should be closed after cancel")
			}()
		}

		wg.Wait()

		// Проверяем, что все подписки были корректно удалены
		manager.mu.Lock()
		assert.Len(t, manager.subs[topic], 0)
		manager.mu.Unlock()
	})
}

func TestSubscriptionManager_Deliver(t *testing.T) {
	t.Run("Deliver publishes to the topic", func(t *testing.T) {
		manager := NewSubscriptionManager()
		ch, cancel := manager.Subscribe("moderation")
		defer cancel()

		n := &model.Notification{Type: model.NotificationNewReviewSubmission, PostID: "7"}
		require.NoError(t, manager.Deliver(context.Background(), "moderation", n))

		select {
		case received := <-ch:
			assert.Equal(t, "7", received.PostID)
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for notification")
		}
		assert.Equal(t, "subscription", manager.Name())
	})

	t.Run("Slow subscriber is skipped after timeout", func(t *testing.T) {
		manager := NewSubscriptionManager()
		stalled, cancelStalled := manager.Subscribe("user:1")
		defer cancelStalled()
		live, cancelLive := manager.Subscribe("user:1")
		defer cancelLive()

		// буфер обоих подписчиков заполнен, live его разбирает, stalled — нет
		first := &model.Notification{ID: "1", RecipientUserID: "1"}
		manager.Publish("user:1", first)
		<-live

		second := &model.Notification{ID: "2", RecipientUserID: "1"}
		done := make(chan error, 1)
		start := time.Now()
		go func() { done <- manager.Deliver(context.Background(), "user:1", second) }()

		select {
		case received := <-live:
			assert.Equal(t, "2", received.ID)
		case <-time.After(publishTimeout + time.Second):
			t.Fatal("Live subscriber timed out waiting for notification")
		}

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(publishTimeout + time.Second):
			t.Fatal("Deliver blocked on a slow subscriber")
		}
		assert.GreaterOrEqual(t, time.Since(start), publishTimeout)

		// у медленного подписчика осталось только первое уведомление
		assert.Equal(t, "1", (<-stalled).ID)
		select {
		case n := <-stalled:
			t.Fatalf("Slow subscriber got %s after the timeout", n.ID)
		default:
		}
	})

	t.Run("Canceled context stops delivery", func(t *testing.T) {
		manager := NewSubscriptionManager()
		_, cancelSub := manager.Subscribe("user:1")
		defer cancelSub()
		manager.Publish("user:1", &model.Notification{ID: "1"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := manager.Deliver(ctx, "user:1", &model.Notification{ID: "2"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), publishTimeout)
	})

	t.Run("Dispatcher delivers through the manager", func(t *testing.T) {
		manager := NewSubscriptionManager()
		ch, cancel := manager.Subscribe(notification.UserTopic("5"))
		defer cancel()

		dispatcher := notification.NewDispatcher(memory.NewNotificationMemoryStorage(), nil, manager)
		created, err := dispatcher.Dispatch(context.Background(), notification.Event{
			Type:         model.NotificationModeratorConfirmed,
			PostID:       "42",
			TriggeredBy:  "9",
			TransitionID: "moderator_confirm:42:v3",
			Recipients:   []string{"5"},
		})
		require.NoError(t, err)
		require.Len(t, created, 1)
		dispatcher.Wait()

		select {
		case received := <-ch:
			assert.Equal(t, created[0].ID, received.ID)
			assert.Equal(t, model.NotificationModeratorConfirmed, received.Type)
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for notification")
		}
	})

	t.Run("Cancel can be called twice", func(t *testing.T) {
		manager := NewSubscriptionManager()
		_, cancel := manager.Subscribe("user:1")
		cancel()
		assert.NotPanics(t, cancel)
	})
}
