package comment

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/model"
)

const MaxContentLength = 2000

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrParentNotFound  = errors.New("parent comment not found")
	ErrNestedReply     = errors.New("replies to replies are not allowed")
	ErrInvalidContent  = errors.New("content is too long or empty")
	// ErrTagConflict — статус отметки изменился после чтения.
	ErrTagConflict = errors.New("tag status conflict")
)

type CreateCommentInput struct {
	PostID         string
	ParentID       string
	Content        string
	TaggedArtistID *string
}

type CommentStorage interface {
	// CreateComment создает комментарий от имени пользователя из контекста.
	CreateComment(ctx context.Context, in CreateCommentInput) (*model.Comment, error)
	GetCommentById(ctx context.Context, id string) (*model.Comment, error)
	// GetComments возвращает все комментарии поста (включая ответы) в порядке создания.
	GetComments(ctx context.Context, postID string) ([]*model.Comment, error)
	// UpdateTagStatus меняет статус отметки артиста, только если текущий равен expected.
	UpdateTagStatus(ctx context.Context, id string, expected, next model.TagStatus) (*model.Comment, error)
	DeleteByPost(ctx context.Context, postID string) error
}

// ValidateContent проверяет длину текста комментария.
func ValidateContent(content string) error {
	n := len([]rune(content))
	if n == 0 || n > MaxContentLength {
		return ErrInvalidContent
	}
	return nil
}
