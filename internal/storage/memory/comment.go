package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/post"
)

type CommentMemoryStorage struct {
	mu          sync.Mutex
	comments    map[string]*model.Comment
	nextID      int              // Для хранения актуального ID (можно было использовать UUID)
	postStorage post.PostStorage // Хранилище постов (внедрение зависимости (DI))
}

func NewCommentMemoryStorage(postStore post.PostStorage) *CommentMemoryStorage {
	return &CommentMemoryStorage{
		comments:    make(map[string]*model.Comment),
		nextID:      1,
		postStorage: postStore,
	}
}

func cloneComment(c *model.Comment) *model.Comment {
	cp := *c
	cp.ParentID = copyStringPtr(c.ParentID)
	cp.TaggedArtistID = copyStringPtr(c.TaggedArtistID)
	cp.Replies = nil
	return &cp
}

func (s *CommentMemoryStorage) CreateComment(ctx context.Context, in comment.CreateCommentInput) (*model.Comment, error) {
	if err := comment.ValidateContent(in.Content); err != nil {
		return nil, err
	}

	userID, err := auth.GetUserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unautorized: %w", err)
	}

	// пост должен существовать до создания комментария
	if _, err := s.postStorage.GetPostById(ctx, in.PostID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var parentPtr *string
	if in.ParentID != "" {
		// проверяем что родительский комментарий существует и принадлежит тому же посту
		parent, ok := s.comments[in.ParentID]
		if !ok || parent.PostID != in.PostID {
			return nil, comment.ErrParentNotFound
		}
		// только один уровень ответов
		if parent.ParentID != nil {
			return nil, comment.ErrNestedReply
		}
		parentID := in.ParentID
		parentPtr = &parentID
	}

	tagStatus := model.TagNone
	if in.TaggedArtistID != nil {
		tagStatus = model.TagPending
	}

	id := strconv.Itoa(s.nextID)
	s.nextID++

	c := &model.Comment{
		ID:             id,
		PostID:         in.PostID,
		AuthorID:       fmt.Sprint(userID),
		ParentID:       parentPtr,
		Content:        in.Content,
		TaggedArtistID: copyStringPtr(in.TaggedArtistID),
		TagStatus:      tagStatus,
		CreatedAt:      time.Now().UTC(),
	}

	s.comments[id] = c
	return cloneComment(c), nil
}

func (s *CommentMemoryStorage) GetCommentById(ctx context.Context, id string) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, comment.ErrCommentNotFound
	}
	return cloneComment(c), nil
}

func (s *CommentMemoryStorage) GetComments(ctx context.Context, postID string) ([]*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments := []*model.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			comments = append(comments, cloneComment(c))
		}
	}

	// ID выдаются по возрастанию, поэтому это порядок создания
	sort.Slice(comments, func(i, j int) bool {
		return lessID(comments[i].ID, comments[j].ID)
	})
	return comments, nil
}

func (s *CommentMemoryStorage) UpdateTagStatus(ctx context.Context, id string, expected, next model.TagStatus) (*model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, comment.ErrCommentNotFound
	}
	if c.TagStatus != expected {
		return nil, comment.ErrTagConflict
	}

	c.TagStatus = next
	return cloneComment(c), nil
}

func (s *CommentMemoryStorage) DeleteByPost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.comments {
		if c.PostID == postID {
			delete(s.comments, id)
		}
	}
	return nil
}
