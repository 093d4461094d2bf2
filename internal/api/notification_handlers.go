package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/notification"

	"github.com/gofiber/fiber/v2"
)

const (
	streamPath      = "/notifications/stream"
	streamKeepAlive = 15 * time.Second
)

func (s *Server) listNotifications(c *fiber.Ctx) error {
	userID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	inbox, err := s.deps.Notifications.List(c.UserContext(), userID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(inbox)
}

func (s *Server) markRead(c *fiber.Ctx) error {
	userID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	if err := s.deps.Notifications.MarkRead(c.UserContext(), c.Params("id"), userID); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// streamNotifications отдает уведомления пользователя через Server-Sent Events.
// Поток живет не дольше StreamLifetime или до остановки сервера.
func (s *Server) streamNotifications(c *fiber.Ctx) error {
	userID, err := actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	lg := logger.From(c.UserContext()).With("user_id", userID)
	updates, unsubscribe := s.deps.Streams.Subscribe(notification.UserTopic(userID))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	lifetime := s.opts.StreamLifetime
	done := s.done

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()
		expire := time.NewTimer(lifetime)
		defer expire.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case n, ok := <-updates:
				if !ok {
					return
				}
				payload, err := json.Marshal(n)
				if err != nil {
					lg.Error("failed to encode notification", "notification_id", n.ID, "err", err)
					continue
				}
				fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, payload)
			case <-keepAlive.C:
				fmt.Fprint(w, ": ping\n\n")
			case <-expire.C:
				return
			case <-done:
				return
			}

			if err := w.Flush(); err != nil {
				// клиент отключился
				lg.Debug("notification stream closed", "err", err)
				return
			}
		}
	})
	return nil
}
