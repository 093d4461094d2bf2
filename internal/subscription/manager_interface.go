package subscription

import "github.com/VitaminP8/trackid/internal/model"

type Manager interface {
	Subscribe(topic string) (<-chan *model.Notification, func())
	Publish(topic string, n *model.Notification)
}
