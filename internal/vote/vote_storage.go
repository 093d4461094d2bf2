package vote

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/model"
)

var (
	ErrVoteNotFound     = errors.New("vote not found")
	ErrInvalidDirection = errors.New("invalid vote direction")
)

type VoteStorage interface {
	// CastVote ставит или заменяет голос пользователя из контекста за комментарий.
	CastVote(ctx context.Context, postID, commentID string, direction model.VoteDirection) (*model.Vote, error)
	RemoveVote(ctx context.Context, commentID string) error
	// Scores возвращает сумму голосов для каждого комментария; отсутствующие = 0.
	Scores(ctx context.Context, commentIDs []string) (map[string]int, error)
	DeleteByPost(ctx context.Context, postID string) error
}
