// Package api — HTTP-интерфейс сервиса на fiber: REST-ручки, SSE-поток уведомлений и /metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/moderation"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/internal/subscription"
	"github.com/VitaminP8/trackid/internal/user"
	"github.com/VitaminP8/trackid/internal/verification"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultStreamLifetime = 5 * time.Minute
)

// Deps: сервисы и хранилища, которые обслуживает HTTP-слой.
type Deps struct {
	Posts         post.PostStorage
	Users         user.UserStorage
	Comments      *comment.Service
	Engine        *verification.Engine
	Moderation    *moderation.Service
	Notifications *notification.Dispatcher
	Streams       subscription.Manager
}

type Options struct {
	JWTSecret      string
	RequestTimeout time.Duration
	// StreamLifetime ограничивает одно SSE-соединение, клиент переподключается сам
	StreamLifetime time.Duration
	// Registerer для HTTP-метрик; при nil создается отдельный реестр
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

type Server struct {
	deps Deps
	opts Options
	app  *fiber.App
	log  *slog.Logger
	done chan struct{}
}

func New(deps Deps, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.StreamLifetime <= 0 {
		opts.StreamLifetime = defaultStreamLifetime
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		deps: deps,
		opts: opts,
		log:  opts.Logger,
		done: make(chan struct{}),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "trackid",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	prom := fiberprometheus.NewWithRegistry(opts.Registerer, "trackid", "http", "", nil)
	prom.RegisterAt(s.app, "/metrics")

	s.app.Use(recover.New())
	s.app.Use(requestContext(s.log))
	s.app.Use(prom.Middleware)
	s.app.Use(accessLog())
	s.app.Use(auth.Middleware(opts.JWTSecret))
	s.app.Use(timeout(opts.RequestTimeout, streamPath))

	s.routes()
	return s
}

// App отдает fiber-приложение (для app.Test в тестах).
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown закрывает SSE-потоки и дожидается завершения текущих запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	app := s.app

	app.Post("/auth/register", s.register)
	app.Post("/auth/login", s.login)

	app.Post("/posts", s.createPost)
	app.Get("/posts", s.listPosts)
	app.Get("/posts/:id", s.getPost)
	app.Delete("/posts/:id", s.deleteOwnPost)

	app.Post("/posts/:id/comments", s.createComment)
	app.Get("/posts/:id/comments", s.listComments)
	app.Put("/comments/:id/vote", s.vote)
	app.Delete("/comments/:id/vote", s.unvote)

	app.Post("/posts/:id/community-verify", s.communityVerify)
	app.Post("/posts/:id/confirm", s.moderatorConfirm)
	app.Post("/posts/:id/reopen", s.moderatorReopen)
	app.Post("/comments/:id/artist-confirm", s.artistConfirm)
	app.Post("/comments/:id/artist-deny", s.artistDeny)

	app.Post("/posts/:id/report", s.reportPost)
	mod := app.Group("/moderation")
	mod.Get("/queue", s.moderationQueue)
	mod.Get("/reports", s.listReports)
	mod.Post("/reports/:id/dismiss", s.dismissReport)
	mod.Delete("/posts/:id", s.removePost)

	app.Get("/users/:id/karma", s.karma)

	app.Get(streamPath, s.streamNotifications)
	app.Get("/notifications", s.listNotifications)
	app.Post("/notifications/:id/read", s.markRead)
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: fe.Message, Code: codeFor(fe.Code)})
	}
	return s.fail(c, err)
}
