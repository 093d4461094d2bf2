package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VitaminP8/trackid/internal/api"
	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/config"
	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/moderation"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/reputation"
	"github.com/VitaminP8/trackid/internal/storage"
	"github.com/VitaminP8/trackid/internal/subscription"
	"github.com/VitaminP8/trackid/internal/verification"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	storageType := flag.String("storage", storage.KindMemory, "Тип хранилища: memory или postgres")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	stores, err := storage.Open(*storageType, cfg.DSN())
	if err != nil {
		log.Error("failed to open storage", "storage", *storageType, "err", err)
		os.Exit(1)
	}
	log.Info("storage ready", "storage", *storageType)

	// подписки SSE живут в процессе, Redis нужен внешним потребителям
	streams := subscription.NewSubscriptionManager()
	channels := []notification.Channel{streams}
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := notification.NewRedisClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		channels = append(channels, notification.NewRedisChannel(rdb))
		log.Info("redis notification channel enabled")
	}

	dispatcher := notification.NewDispatcher(stores.Notifications, nil, channels...)
	karma := reputation.NewAggregator(stores.Ledger, stores.Users, nil)
	engine := verification.NewEngine(stores.Posts, stores.Comments, stores.Users, dispatcher, karma)

	server := api.New(api.Deps{
		Posts:         stores.Posts,
		Users:         stores.Users,
		Comments:      comment.NewService(stores.Posts, stores.Comments, stores.Users, stores.Votes, dispatcher),
		Engine:        engine,
		Moderation:    moderation.NewService(stores.Posts, stores.Users, stores.Reports, dispatcher, karma, stores.Cascade()...),
		Notifications: dispatcher,
		Streams:       streams,
	}, api.Options{
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		Registerer:     prometheus.DefaultRegisterer,
		Logger:         log,
	})

	// Listen блокирует поток до Shutdown, поэтому запускаем в горутине
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shut down server", "err", err)
	}
	dispatcher.Wait()

	if err := stores.Close(); err != nil {
		log.Error("failed to close storage", "err", err)
	}
	log.Info("server stopped")
}
