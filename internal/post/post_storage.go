package post

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/model"
)

var (
	ErrPostNotFound = errors.New("post not found")
	// ErrVersionConflict — пост изменился после чтения, условная запись не применена.
	ErrVersionConflict = errors.New("post version conflict")
)

type PostStorage interface {
	// CreatePost создает пост от имени пользователя из контекста со статусом unverified.
	CreatePost(ctx context.Context, description, genre, videoURL string) (*model.Post, error)
	GetPostById(ctx context.Context, id string) (*model.Post, error)
	// GetAllPosts возвращает все посты, новые первыми.
	GetAllPosts(ctx context.Context) ([]*model.Post, error)
	// ListByStatus возвращает посты в статусе status, упорядоченные по UpdatedAt, затем по ID.
	ListByStatus(ctx context.Context, status model.VerificationStatus) ([]*model.Post, error)
	// UpdateVerification атомарно меняет статус и выбранный комментарий,
	// если версия поста не изменилась. Иначе ErrVersionConflict.
	UpdateVerification(ctx context.Context, upd model.VerificationUpdate) (*model.Post, error)
	// DeletePostById удаляет пост, если его версия равна expectedVersion.
	// Иначе ErrVersionConflict.
	DeletePostById(ctx context.Context, id string, expectedVersion int64) error
}
