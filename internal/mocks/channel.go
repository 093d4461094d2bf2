package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/VitaminP8/trackid/internal/model"
)

var ErrDeliveryFailed = errors.New("delivery failed")

type Delivery struct {
	Topic        string
	Notification *model.Notification
}

// MockChannel запоминает все доставки; при Fail возвращает ошибку.
type MockChannel struct {
	mu         sync.Mutex
	Fail       bool
	deliveries []Delivery
}

func NewMockChannel() *MockChannel {
	return &MockChannel{}
}

func (m *MockChannel) Name() string {
	return "mock"
}

func (m *MockChannel) Deliver(ctx context.Context, topic string, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail {
		return ErrDeliveryFailed
	}
	m.deliveries = append(m.deliveries, Delivery{Topic: topic, Notification: n})
	return nil
}

func (m *MockChannel) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Delivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// Topics возвращает топики доставок в порядке поступления.
func (m *MockChannel) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	topics := make([]string, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		topics = append(topics, d.Topic)
	}
	return topics
}
