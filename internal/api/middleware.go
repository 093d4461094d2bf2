package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/VitaminP8/trackid/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// requestContext выдает запросу request id и кладет логгер в user context.
func requestContext(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := strings.TrimSpace(c.Get(headerRequestID))
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}
		c.Set(headerRequestID, rid)
		c.Locals("requestid", rid)

		ctx := logger.WithRequestID(c.UserContext(), rid)
		ctx = logger.Into(ctx, base.With("request_id", rid))
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func accessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("latency", time.Since(start)),
		}
		if uid := c.Locals("userID"); uid != nil {
			fields = append(fields, slog.Any("user_id", uid))
		}

		lg := logger.From(c.UserContext())
		if err != nil {
			lg.Error("request failed", append(fields, slog.String("error", err.Error()))...)
		} else {
			lg.Info("request processed", fields...)
		}
		return err
	}
}

// timeout ограничивает время обработки запроса. Пути из skip (SSE) не ограничиваются.
func timeout(d time.Duration, skip ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, p := range skip {
			if c.Path() == p {
				return c.Next()
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
