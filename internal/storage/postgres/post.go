package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
)

type PostPostgresStorage struct{}

func NewPostPostgresStorage() *PostPostgresStorage {
	return &PostPostgresStorage{}
}

func toPost(p *models.Post) *model.Post {
	return &model.Post{
		ID:                 fmt.Sprint(p.ID),
		AuthorID:           fmt.Sprint(p.UserID),
		Description:        p.Description,
		Genre:              p.Genre,
		VideoURL:           p.VideoURL,
		VerificationStatus: model.VerificationStatus(p.VerificationStatus),
		VerifiedCommentID:  optionalID(p.VerifiedCommentID),
		Version:            p.Version,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

func (s *PostPostgresStorage) CreatePost(ctx context.Context, description, genre, videoURL string) (*model.Post, error) {
	userID, err := auth.GetUserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get user id from context:  %w", err)
	}

	p := &models.Post{
		Description:        description,
		Genre:              genre,
		VideoURL:           videoURL,
		UserID:             userID,
		VerificationStatus: string(model.StatusUnverified),
		Version:            1,
	}

	err = DB.Create(p).Error
	if err != nil {
		return nil, fmt.Errorf("could not create post: %w", err)
	}

	return toPost(p), nil
}

func (s *PostPostgresStorage) GetPostById(ctx context.Context, id string) (*model.Post, error) {
	pk, ok := parseID(id)
	if !ok {
		return nil, post.ErrPostNotFound
	}

	var p models.Post
	err := DB.First(&p, pk).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, post.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get post by id: %w", err)
	}

	return toPost(&p), nil
}

func (s *PostPostgresStorage) GetAllPosts(ctx context.Context) ([]*model.Post, error) {
	var posts []models.Post
	err := DB.Order("id DESC").Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("could not get posts: %w", err)
	}

	results := make([]*model.Post, 0, len(posts))
	for i := range posts {
		results = append(results, toPost(&posts[i]))
	}
	return results, nil
}

func (s *PostPostgresStorage) ListByStatus(ctx context.Context, status model.VerificationStatus) ([]*model.Post, error) {
	var posts []models.Post
	err := DB.Where("verification_status = ?", string(status)).
		Order("updated_at ASC").
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("could not list posts by status: %w", err)
	}

	results := make([]*model.Post, 0, len(posts))
	for i := range posts {
		results = append(results, toPost(&posts[i]))
	}
	return results, nil
}

// UpdateVerification делает одну условную запись по (id, version). Статус,
// выбранный комментарий и версия меняются вместе.
func (s *PostPostgresStorage) UpdateVerification(ctx context.Context, upd model.VerificationUpdate) (*model.Post, error) {
	if upd.Status.HasVerifiedComment() != (upd.VerifiedCommentID != nil) {
		return nil, fmt.Errorf("inconsistent verification update: status %s", upd.Status)
	}

	pk, ok := parseID(upd.PostID)
	if !ok {
		return nil, post.ErrPostNotFound
	}

	var commentID *uint
	if upd.VerifiedCommentID != nil {
		commentID = optionalUint(upd.VerifiedCommentID)
		if commentID == nil {
			return nil, fmt.Errorf("invalid comment id %q", *upd.VerifiedCommentID)
		}
	}

	updatedAt := upd.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	// UpdateColumns не трогает updated_at сам, значение задаем явно
	res := DB.Model(&models.Post{}).
		Where("id = ? AND version = ?", pk, upd.ExpectedVersion).
		UpdateColumns(map[string]interface{}{
			"verification_status": string(upd.Status),
			"verified_comment_id": commentID,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          updatedAt,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("could not update verification: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int
		if err := DB.Model(&models.Post{}).Where("id = ?", pk).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("could not check post: %w", err)
		}
		if count == 0 {
			return nil, post.ErrPostNotFound
		}
		return nil, post.ErrVersionConflict
	}

	return s.GetPostById(ctx, upd.PostID)
}

// DeletePostById удаляет пост безвозвратно той же условной записью по версии,
// что и UpdateVerification; зависимые данные удаляет вызывающий.
func (s *PostPostgresStorage) DeletePostById(ctx context.Context, id string, expectedVersion int64) error {
	pk, ok := parseID(id)
	if !ok {
		return post.ErrPostNotFound
	}

	res := DB.Unscoped().Where("id = ? AND version = ?", pk, expectedVersion).Delete(&models.Post{})
	if res.Error != nil {
		return fmt.Errorf("could not delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int
		if err := DB.Model(&models.Post{}).Where("id = ?", pk).Count(&count).Error; err != nil {
			return fmt.Errorf("could not check post: %w", err)
		}
		if count == 0 {
			return post.ErrPostNotFound
		}
		return post.ErrVersionConflict
	}
	return nil
}
