package postgres

import (
	"context"
	"fmt"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/vote"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
)

type VotePostgresStorage struct{}

type voteScore struct {
	CommentID uint
	Score     int
}

func NewVotePostgresStorage() *VotePostgresStorage {
	return &VotePostgresStorage{}
}

func (s *VotePostgresStorage) CastVote(ctx context.Context, postID, commentID string, direction model.VoteDirection) (*model.Vote, error) {
	if !direction.Valid() {
		return nil, vote.ErrInvalidDirection
	}

	userID, err := auth.GetUserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unautorized: %w", err)
	}

	postPK, ok := parseID(postID)
	if !ok {
		return nil, comment.ErrCommentNotFound
	}
	commentPK, ok := parseID(commentID)
	if !ok {
		return nil, comment.ErrCommentNotFound
	}

	// повторный голос заменяет предыдущий
	var existing models.Vote
	err = DB.Where("comment_id = ? AND user_id = ?", commentPK, userID).First(&existing).Error
	switch {
	case err == nil:
		err = DB.Model(&existing).UpdateColumn("direction", string(direction)).Error
	case gorm.IsRecordNotFoundError(err):
		err = DB.Create(&models.Vote{
			CommentID: commentPK,
			UserID:    userID,
			PostID:    postPK,
			Direction: string(direction),
		}).Error
	}
	if err != nil {
		return nil, fmt.Errorf("could not cast vote: %w", err)
	}

	return &model.Vote{
		CommentID: commentID,
		UserID:    fmt.Sprint(userID),
		Direction: direction,
	}, nil
}

func (s *VotePostgresStorage) RemoveVote(ctx context.Context, commentID string) error {
	userID, err := auth.GetUserIDFromContext(ctx)
	if err != nil {
		return fmt.Errorf("unautorized: %w", err)
	}

	commentPK, ok := parseID(commentID)
	if !ok {
		return vote.ErrVoteNotFound
	}

	res := DB.Where("comment_id = ? AND user_id = ?", commentPK, userID).Delete(&models.Vote{})
	if res.Error != nil {
		return fmt.Errorf("could not remove vote: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return vote.ErrVoteNotFound
	}
	return nil
}

func (s *VotePostgresStorage) Scores(ctx context.Context, commentIDs []string) (map[string]int, error) {
	scores := make(map[string]int, len(commentIDs))

	pks := make([]uint, 0, len(commentIDs))
	for _, id := range commentIDs {
		if pk, ok := parseID(id); ok {
			pks = append(pks, pk)
		}
	}
	if len(pks) == 0 {
		return scores, nil
	}

	var rows []voteScore
	err := DB.Model(&models.Vote{}).
		Select("comment_id, SUM(CASE WHEN direction = ? THEN 1 ELSE -1 END) AS score", string(model.VoteUp)).
		Where("comment_id IN (?)", pks).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("could not sum votes: %w", err)
	}

	for _, r := range rows {
		scores[fmt.Sprint(r.CommentID)] = r.Score
	}
	return scores, nil
}

func (s *VotePostgresStorage) DeleteByPost(ctx context.Context, postID string) error {
	pk, ok := parseID(postID)
	if !ok {
		return nil
	}

	err := DB.Where("post_id = ?", pk).Delete(&models.Vote{}).Error
	if err != nil {
		return fmt.Errorf("could not delete votes: %w", err)
	}
	return nil
}
