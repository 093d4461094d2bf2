// Package storage собирает набор хранилищ под выбранный бэкенд (memory или postgres).
package storage

import (
	"fmt"

	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/moderation"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/internal/reputation"
	"github.com/VitaminP8/trackid/internal/storage/memory"
	"github.com/VitaminP8/trackid/internal/storage/postgres"
	"github.com/VitaminP8/trackid/internal/user"
	"github.com/VitaminP8/trackid/internal/vote"
)

const (
	KindMemory   = "memory"
	KindPostgres = "postgres"
)

type Stores struct {
	Posts         post.PostStorage
	Comments      comment.CommentStorage
	Users         user.UserStorage
	Votes         vote.VoteStorage
	Notifications notification.NotificationStorage
	Ledger        reputation.LedgerStorage
	Reports       moderation.ReportStorage

	close func() error
}

// Open создает хранилища. Для postgres подключается по dsn и применяет миграции.
func Open(kind, dsn string) (*Stores, error) {
	switch kind {
	case KindMemory:
		posts := memory.NewPostMemoryStorage()
		return &Stores{
			Posts:         posts,
			Comments:      memory.NewCommentMemoryStorage(posts),
			Users:         memory.NewUserMemoryStorage(),
			Votes:         memory.NewVoteMemoryStorage(),
			Notifications: memory.NewNotificationMemoryStorage(),
			Ledger:        memory.NewLedgerMemoryStorage(),
			Reports:       memory.NewReportMemoryStorage(),
			close:         func() error { return nil },
		}, nil

	case KindPostgres:
		if err := postgres.InitDB(dsn); err != nil {
			return nil, err
		}
		if err := postgres.Migrate(postgres.DB); err != nil {
			_ = postgres.CloseDB()
			return nil, err
		}
		return &Stores{
			Posts:         postgres.NewPostPostgresStorage(),
			Comments:      postgres.NewCommentPostgresStorage(),
			Users:         postgres.NewUserPostgresStorage(),
			Votes:         postgres.NewVotePostgresStorage(),
			Notifications: postgres.NewNotificationPostgresStorage(),
			Ledger:        postgres.NewLedgerPostgresStorage(),
			Reports:       postgres.NewReportPostgresStorage(),
			close:         postgres.CloseDB,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", kind)
	}
}

// Cascade возвращает хранилища, из которых удаляются данные удаленного поста.
func (s *Stores) Cascade() []moderation.Cascade {
	return []moderation.Cascade{s.Comments, s.Votes, s.Notifications}
}

func (s *Stores) Close() error {
	return s.close()
}
