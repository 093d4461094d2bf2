package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/post"
)

type PostMemoryStorage struct {
	mu     sync.Mutex
	posts  map[string]*model.Post
	nextId int // Для хранения актуального ID (можно было использовать UUID)
}

func NewPostMemoryStorage() *PostMemoryStorage {
	return &PostMemoryStorage{
		posts:  make(map[string]*model.Post),
		nextId: 1,
	}
}

// наружу отдаем только копии, чтобы вызывающий код не менял состояние в обход UpdateVerification
func clonePost(p *model.Post) *model.Post {
	c := *p
	c.VerifiedCommentID = copyStringPtr(p.VerifiedCommentID)
	return &c
}

func (s *PostMemoryStorage) CreatePost(ctx context.Context, description, genre, videoURL string) (*model.Post, error) {
	// Контекст — это read-only структура (поэтому над мьютексом)
	userID, err := auth.GetUserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unautorized: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := strconv.Itoa(s.nextId)
	s.nextId++

	now := time.Now().UTC()
	p := &model.Post{
		ID:                 id,
		AuthorID:           fmt.Sprint(userID),
		Description:        description,
		Genre:              genre,
		VideoURL:           videoURL,
		VerificationStatus: model.StatusUnverified,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	s.posts[id] = p
	return clonePost(p), nil
}

func (s *PostMemoryStorage) GetPostById(ctx context.Context, id string) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.posts[id]
	if !exists {
		return nil, post.ErrPostNotFound
	}
	return clonePost(p), nil
}

func (s *PostMemoryStorage) GetAllPosts(ctx context.Context) ([]*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]*model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		posts = append(posts, clonePost(p))
	}

	// новые посты первыми
	sort.Slice(posts, func(i, j int) bool {
		return lessID(posts[j].ID, posts[i].ID)
	})
	return posts, nil
}

func (s *PostMemoryStorage) ListByStatus(ctx context.Context, status model.VerificationStatus) ([]*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := []*model.Post{}
	for _, p := range s.posts {
		if p.VerificationStatus == status {
			posts = append(posts, clonePost(p))
		}
	}

	sort.Slice(posts, func(i, j int) bool {
		if posts[i].UpdatedAt.Equal(posts[j].UpdatedAt) {
			return lessID(posts[i].ID, posts[j].ID)
		}
		return posts[i].UpdatedAt.Before(posts[j].UpdatedAt)
	})
	return posts, nil
}

func (s *PostMemoryStorage) UpdateVerification(ctx context.Context, upd model.VerificationUpdate) (*model.Post, error) {
	if upd.Status.HasVerifiedComment() != (upd.VerifiedCommentID != nil) {
		return nil, fmt.Errorf("inconsistent verification update: status %s", upd.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.posts[upd.PostID]
	if !exists {
		return nil, post.ErrPostNotFound
	}

	// условная запись: применяем только если никто не успел изменить пост
	if p.Version != upd.ExpectedVersion {
		return nil, post.ErrVersionConflict
	}

	updatedAt := upd.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	p.VerificationStatus = upd.Status
	p.VerifiedCommentID = copyStringPtr(upd.VerifiedCommentID)
	p.Version++
	p.UpdatedAt = updatedAt

	return clonePost(p), nil
}

func (s *PostMemoryStorage) DeletePostById(ctx context.Context, id string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.posts[id]
	if !exists {
		return post.ErrPostNotFound
	}
	if p.Version != expectedVersion {
		return post.ErrVersionConflict
	}
	delete(s.posts, id)
	return nil
}
