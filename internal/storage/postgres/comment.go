package postgres

import (
	"context"
	"fmt"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
)

type CommentPostgresStorage struct{}

func NewCommentPostgresStorage() *CommentPostgresStorage {
	return &CommentPostgresStorage{}
}

func toComment(c *models.Comment) *model.Comment {
	return &model.Comment{
		ID:             fmt.Sprint(c.ID),
		PostID:         fmt.Sprint(c.PostID),
		AuthorID:       fmt.Sprint(c.UserID),
		ParentID:       optionalID(c.ParentID),
		Content:        c.Content,
		TaggedArtistID: optionalID(c.TaggedArtistID),
		TagStatus:      model.TagStatus(c.TagStatus),
		CreatedAt:      c.CreatedAt.UTC(),
	}
}

func (s *CommentPostgresStorage) CreateComment(ctx context.Context, in comment.CreateCommentInput) (*model.Comment, error) {
	if err := comment.ValidateContent(in.Content); err != nil {
		return nil, err
	}

	userID, err := auth.GetUserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unautorized: %w", err)
	}

	postID, ok := parseID(in.PostID)
	if !ok {
		return nil, post.ErrPostNotFound
	}

	var p models.Post
	err = DB.First(&p, postID).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, post.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get post: %w", err)
	}

	c := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   in.Content,
		TagStatus: string(model.TagNone),
	}

	if in.ParentID != "" {
		parentID, ok := parseID(in.ParentID)
		if !ok {
			return nil, comment.ErrParentNotFound
		}

		// родитель должен быть на том же посте и сам не быть ответом
		var parent models.Comment
		err = DB.First(&parent, parentID).Error
		if gorm.IsRecordNotFoundError(err) || (err == nil && parent.PostID != postID) {
			return nil, comment.ErrParentNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("could not get parent comment: %w", err)
		}
		if parent.ParentID != nil {
			return nil, comment.ErrNestedReply
		}
		c.ParentID = &parentID
	}

	if in.TaggedArtistID != nil {
		c.TaggedArtistID = optionalUint(in.TaggedArtistID)
		if c.TaggedArtistID == nil {
			return nil, fmt.Errorf("invalid artist id %q", *in.TaggedArtistID)
		}
		c.TagStatus = string(model.TagPending)
	}

	err = DB.Create(c).Error
	if err != nil {
		return nil, fmt.Errorf("could not create comment: %w", err)
	}

	return toComment(c), nil
}

func (s *CommentPostgresStorage) GetCommentById(ctx context.Context, id string) (*model.Comment, error) {
	pk, ok := parseID(id)
	if !ok {
		return nil, comment.ErrCommentNotFound
	}

	var c models.Comment
	err := DB.First(&c, pk).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, comment.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get comment: %w", err)
	}
	return toComment(&c), nil
}

// GetComments возвращает корневые комментарии и ответы одним списком в порядке создания.
func (s *CommentPostgresStorage) GetComments(ctx context.Context, postID string) ([]*model.Comment, error) {
	pk, ok := parseID(postID)
	if !ok {
		return nil, post.ErrPostNotFound
	}

	var comments []models.Comment
	err := DB.Where("post_id = ?", pk).Order("id").Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("could not get comments: %w", err)
	}

	results := make([]*model.Comment, 0, len(comments))
	for i := range comments {
		results = append(results, toComment(&comments[i]))
	}
	return results, nil
}

func (s *CommentPostgresStorage) UpdateTagStatus(ctx context.Context, id string, expected, next model.TagStatus) (*model.Comment, error) {
	pk, ok := parseID(id)
	if !ok {
		return nil, comment.ErrCommentNotFound
	}

	res := DB.Model(&models.Comment{}).
		Where("id = ? AND tag_status = ?", pk, string(expected)).
		UpdateColumn("tag_status", string(next))
	if res.Error != nil {
		return nil, fmt.Errorf("could not update tag status: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		if _, err := s.GetCommentById(ctx, id); err != nil {
			return nil, err
		}
		return nil, comment.ErrTagConflict
	}
	return s.GetCommentById(ctx, id)
}

func (s *CommentPostgresStorage) DeleteByPost(ctx context.Context, postID string) error {
	pk, ok := parseID(postID)
	if !ok {
		return nil
	}

	err := DB.Unscoped().Where("post_id = ?", pk).Delete(&models.Comment{}).Error
	if err != nil {
		return fmt.Errorf("could not delete comments: %w", err)
	}
	return nil
}
