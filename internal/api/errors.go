package api

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/moderation"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/internal/user"
	"github.com/VitaminP8/trackid/internal/verification"
	"github.com/VitaminP8/trackid/internal/vote"

	"github.com/gofiber/fiber/v2"
)

// тело или параметры запроса не разобрать
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf переводит ошибку сервисного слоя в HTTP-статус.
func statusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, user.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, verification.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, verification.ErrNotFound),
		errors.Is(err, post.ErrPostNotFound),
		errors.Is(err, comment.ErrCommentNotFound),
		errors.Is(err, comment.ErrParentNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, vote.ErrVoteNotFound),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, moderation.ErrReportNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, verification.ErrInvalidState),
		errors.Is(err, user.ErrUserExists):
		return fiber.StatusConflict
	case errors.Is(err, verification.ErrInvalidCommand),
		errors.Is(err, errBadRequest),
		errors.Is(err, comment.ErrInvalidContent),
		errors.Is(err, comment.ErrNestedReply),
		errors.Is(err, comment.ErrInvalidSort),
		errors.Is(err, vote.ErrInvalidDirection):
		return fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusServiceUnavailable:
		return "timeout"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "internal"
	}
}

// fail пишет ответ с ошибкой. Внутренние ошибки логируются, клиенту уходит общий текст.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		logger.From(c.UserContext()).Error("request failed", "path", c.Path(), "err", err)
		msg = "internal server error"
	}
	return c.Status(status).JSON(errorBody{Error: msg, Code: codeFor(status)})
}
