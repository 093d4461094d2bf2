package comment

import (
	"context"
	"errors"
	"fmt"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/internal/user"
	"github.com/VitaminP8/trackid/internal/vote"
)

type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) ([]*model.Notification, error)
}

// Service отвечает за создание комментариев, голоса и выдача ветки обсуждения поста.
type Service struct {
	posts    post.PostStorage
	comments CommentStorage
	users    user.UserStorage
	votes    vote.VoteStorage
	notifier Notifier
}

func NewService(posts post.PostStorage, comments CommentStorage, users user.UserStorage, votes vote.VoteStorage, notifier Notifier) *Service {
	return &Service{
		posts:    posts,
		comments: comments,
		users:    users,
		votes:    votes,
		notifier: notifier,
	}
}

// Create создает комментарий от пользователя из контекста. Упоминание
// @username становится отметкой, только если это верифицированный артист.
func (s *Service) Create(ctx context.Context, postID, parentID, content string) (*model.Comment, error) {
	const op = "comment/Create"

	authorID, err := auth.UserIDString(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	lg := logger.From(ctx).With("op", op, "post_id", postID, "author_id", authorID)

	var tagged *string
	if name := ParseMention(content); name != "" {
		artist, err := s.users.GetUserByUsername(ctx, name)
		switch {
		case errors.Is(err, user.ErrUserNotFound):
		case err != nil:
			return nil, fmt.Errorf("%s: resolve mention: %w", op, err)
		case artist.CanActAsArtist():
			tagged = &artist.ID
		}
	}

	c, err := s.comments.CreateComment(ctx, CreateCommentInput{
		PostID:         postID,
		ParentID:       parentID,
		Content:        content,
		TaggedArtistID: tagged,
	})
	if err != nil {
		return nil, err
	}

	if tagged != nil {
		_, err := s.notifier.Dispatch(ctx, notification.Event{
			Type:         model.NotificationArtistTagged,
			PostID:       postID,
			CommentID:    c.ID,
			TriggeredBy:  authorID,
			TransitionID: "artist_tagged:" + postID + ":" + c.ID,
			Recipients:   []string{*tagged},
		})
		if err != nil {
			// комментарий уже создан, повтор запроса создал бы дубль
			lg.Error("failed to record artist_tagged notification", "comment_id", c.ID, "err", err)
		}
	}

	lg.Info("comment created", "comment_id", c.ID, "tag_status", c.TagStatus)
	return c, nil
}

// List возвращает комментарии поста с рейтингом и флагом isIdentified.
func (s *Service) List(ctx context.Context, postID string, order SortOrder) ([]*model.Comment, error) {
	const op = "comment/List"

	p, err := s.posts.GetPostById(ctx, postID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.GetComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	scores, err := s.votes.Scores(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: scores: %w", op, err)
	}

	identified := ""
	if p.VerificationStatus == model.StatusIdentified {
		identified = p.VerifiedComment()
	}
	for _, c := range comments {
		c.VoteScore = scores[c.ID]
		c.IsIdentified = c.ID == identified
	}

	return Rank(comments, order), nil
}

func (s *Service) Vote(ctx context.Context, commentID string, direction model.VoteDirection) (*model.Vote, error) {
	c, err := s.comments.GetCommentById(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return s.votes.CastVote(ctx, c.PostID, commentID, direction)
}

func (s *Service) Unvote(ctx context.Context, commentID string) error {
	if _, err := s.comments.GetCommentById(ctx, commentID); err != nil {
		return err
	}
	return s.votes.RemoveVote(ctx, commentID)
}
