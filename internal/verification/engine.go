// Package verification — конечный автомат статуса идентификации поста.
// Все изменения verificationStatus и verifiedCommentId проходят через Engine.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VitaminP8/trackid/internal/comment"
	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/metrics"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/internal/user"
)

// Notifier создает записи уведомлений и публикует события ленты модерации.
type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) ([]*model.Notification, error)
	Broadcast(ctx context.Context, topic string, ev notification.Event)
}

// Reputation — журнал кармы с идемпотентными ключами.
type Reputation interface {
	Credit(ctx context.Context, key, userID, postID, commentID string) (bool, error)
	Reverse(ctx context.Context, key, creditKey string) (bool, error)
	Karma(ctx context.Context, userID string) (int, error)
}

type Engine struct {
	posts    post.PostStorage
	comments comment.CommentStorage
	users    user.UserStorage
	notifier Notifier
	karma    Reputation
	now      func() time.Time
}

func NewEngine(posts post.PostStorage, comments comment.CommentStorage, users user.UserStorage, notifier Notifier, karma Reputation) *Engine {
	return &Engine{
		posts:    posts,
		comments: comments,
		users:    users,
		notifier: notifier,
		karma:    karma,
		now:      time.Now,
	}
}

// WithClock подменяет часы, которыми проставляется updatedAt.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Result содержит результат команды: пост для переходов поста, комментарий для решений артиста.
type Result struct {
	Post    *model.Post
	Comment *model.Comment
}

// Execute проверяет команду и выполняет соответствующий переход.
func (e *Engine) Execute(ctx context.Context, cmd Command) (*Result, error) {
	if cmd == nil {
		return nil, fmt.Errorf("verification/Execute: nil command: %w", ErrInvalidCommand)
	}
	if err := cmd.Validate(); err != nil {
		metrics.Transitions.WithLabelValues(cmd.Transition(), resultOf(err)).Inc()
		return nil, err
	}

	switch c := cmd.(type) {
	case CommunityVerifyCommand:
		p, err := e.CommunityVerify(ctx, c.PostID, c.CommentID, c.ActorID)
		return &Result{Post: p}, err
	case ModeratorConfirmCommand:
		p, err := e.ModeratorConfirm(ctx, c.PostID, c.CommentID, c.ActorID)
		return &Result{Post: p}, err
	case ModeratorReopenCommand:
		p, err := e.ModeratorReopen(ctx, c.PostID, c.ActorID)
		return &Result{Post: p}, err
	case ArtistConfirmCommand:
		cm, err := e.ArtistConfirm(ctx, c.CommentID, c.ActorID)
		return &Result{Comment: cm}, err
	case ArtistDenyCommand:
		cm, err := e.ArtistDeny(ctx, c.CommentID, c.ActorID)
		return &Result{Comment: cm}, err
	default:
		return nil, fmt.Errorf("verification/Execute: unknown command %T: %w", cmd, ErrInvalidCommand)
	}
}

// CommunityVerify: владелец выбирает комментарий с ответом.
func (e *Engine) CommunityVerify(ctx context.Context, postID, commentID, actorID string) (p *model.Post, err error) {
	const op = "verification/CommunityVerify"

	lg := logger.From(ctx).With("op", op, "post_id", postID, "comment_id", commentID, "actor_id", actorID)
	replay := false
	defer func() { observe(TransitionCommunityVerify, replay, err) }()

	if err := (CommunityVerifyCommand{PostID: postID, CommentID: commentID, ActorID: actorID}).Validate(); err != nil {
		return nil, err
	}

	current, err := e.loadPost(ctx, op, postID)
	if err != nil {
		return nil, err
	}
	if current.AuthorID != actorID {
		lg.Info("community verify rejected: not the owner")
		return nil, fmt.Errorf("%s: user %s does not own post %s: %w", op, actorID, postID, ErrForbidden)
	}

	c, err := e.loadPostComment(ctx, op, postID, commentID)
	if err != nil {
		return nil, err
	}

	switch {
	case current.VerificationStatus == model.StatusCommunity && current.VerifiedComment() == commentID:
		replay = true
		lg.Info("community verify replayed")
		tid := TransitionID(TransitionCommunityVerify, postID, current.Version)
		if err := e.emitCommunityVerified(ctx, current, c, actorID, tid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return current, nil
	case current.VerificationStatus != model.StatusUnverified:
		return nil, fmt.Errorf("%s: post %s is %s: %w", op, postID, current.VerificationStatus, ErrInvalidState)
	}

	updated, err := e.commit(ctx, op, current, model.StatusCommunity, &c.ID)
	if err != nil {
		return nil, err
	}

	tid := TransitionID(TransitionCommunityVerify, postID, updated.Version)
	lg.Info("post sent to moderation", "transition_id", tid)

	if err := e.emitCommunityVerified(ctx, updated, c, actorID, tid); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// ModeratorConfirm подтверждает идентификацию от имени модератора.
// Пустой commentID означает комментарий, выбранный владельцем.
func (e *Engine) ModeratorConfirm(ctx context.Context, postID, commentID, actorID string) (p *model.Post, err error) {
	const op = "verification/ModeratorConfirm"

	lg := logger.From(ctx).With("op", op, "post_id", postID, "comment_id", commentID, "actor_id", actorID)
	replay := false
	defer func() { observe(TransitionModeratorConfirm, replay, err) }()

	if err := (ModeratorConfirmCommand{PostID: postID, CommentID: commentID, ActorID: actorID}).Validate(); err != nil {
		return nil, err
	}
	if err := e.requireModerator(ctx, op, actorID); err != nil {
		return nil, err
	}

	current, err := e.loadPost(ctx, op, postID)
	if err != nil {
		return nil, err
	}

	target := commentID
	switch current.VerificationStatus {
	case model.StatusIdentified:
		if commentID != "" && commentID != current.VerifiedComment() {
			return nil, fmt.Errorf("%s: post %s already identified by comment %s: %w",
				op, postID, current.VerifiedComment(), ErrInvalidState)
		}

		replay = true
		c, err := e.loadPostComment(ctx, op, postID, current.VerifiedComment())
		if err != nil {
			return nil, err
		}
		lg.Info("moderator confirm replayed")
		tid := TransitionID(TransitionModeratorConfirm, postID, current.Version)
		if err := e.emitConfirmed(ctx, current, c, actorID, tid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return current, nil
	case model.StatusCommunity, model.StatusUnverified:
		if target == "" {
			target = current.VerifiedComment()
		}
		if target == "" {
			return nil, fmt.Errorf("%s: post %s has no selected comment: %w", op, postID, ErrInvalidState)
		}
	default:
		return nil, fmt.Errorf("%s: post %s is %s: %w", op, postID, current.VerificationStatus, ErrInvalidState)
	}

	c, err := e.loadPostComment(ctx, op, postID, target)
	if err != nil {
		return nil, err
	}

	updated, err := e.commit(ctx, op, current, model.StatusIdentified, &c.ID)
	if err != nil {
		return nil, err
	}

	tid := TransitionID(TransitionModeratorConfirm, postID, updated.Version)
	lg.Info("post identified", "transition_id", tid, "verified_comment_id", c.ID)

	if err := e.emitConfirmed(ctx, updated, c, actorID, tid); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// ModeratorReopen возвращает пост в unverified и снимает выбранный комментарий.
// Unverified пост с версией больше 1 попал туда через reopen: повтор доводит
// отмену кармы и уведомление по тому же ID перехода.
func (e *Engine) ModeratorReopen(ctx context.Context, postID, actorID string) (p *model.Post, err error) {
	const op = "verification/ModeratorReopen"

	lg := logger.From(ctx).With("op", op, "post_id", postID, "actor_id", actorID)
	replay := false
	defer func() { observe(TransitionModeratorReopen, replay, err) }()

	if err := (ModeratorReopenCommand{PostID: postID, ActorID: actorID}).Validate(); err != nil {
		return nil, err
	}
	if err := e.requireModerator(ctx, op, actorID); err != nil {
		return nil, err
	}

	current, err := e.loadPost(ctx, op, postID)
	if err != nil {
		return nil, err
	}

	switch current.VerificationStatus {
	case model.StatusUnverified:
		if current.Version <= 1 {
			return nil, fmt.Errorf("%s: post %s is %s: %w", op, postID, current.VerificationStatus, ErrInvalidState)
		}

		replay = true
		tid := TransitionID(TransitionModeratorReopen, postID, current.Version)
		lg.Info("moderator reopen replayed", "transition_id", tid)
		// если reopen снимал identified, начисление было сделано на предыдущей версии;
		// иначе такого начисления нет и отмена ничего не делает
		creditKey := TransitionID(TransitionModeratorConfirm, postID, current.Version-1)
		if err := e.emitReopened(ctx, current, actorID, tid, creditKey); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return current, nil
	case model.StatusCommunity, model.StatusIdentified:
	default:
		return nil, fmt.Errorf("%s: post %s is %s: %w", op, postID, current.VerificationStatus, ErrInvalidState)
	}

	wasIdentified := current.VerificationStatus == model.StatusIdentified
	// ключ начисления совпадает с ID перехода, который перевел пост в identified
	creditKey := ""
	if wasIdentified {
		creditKey = TransitionID(TransitionModeratorConfirm, postID, current.Version)
	}

	updated, err := e.commit(ctx, op, current, model.StatusUnverified, nil)
	if err != nil {
		return nil, err
	}

	tid := TransitionID(TransitionModeratorReopen, postID, updated.Version)
	lg.Info("post reopened", "transition_id", tid, "was_identified", wasIdentified)

	if err := e.emitReopened(ctx, updated, actorID, tid, creditKey); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// emitReopened отменяет начисление creditKey (если задан) и уведомляет автора поста.
// Оба шага идемпотентны по tid.
func (e *Engine) emitReopened(ctx context.Context, p *model.Post, actorID, tid, creditKey string) error {
	if creditKey != "" {
		if _, err := e.karma.Reverse(ctx, tid, creditKey); err != nil {
			return fmt.Errorf("reverse karma: %w", err)
		}
	}

	_, err := e.notifier.Dispatch(ctx, notification.Event{
		Type:         model.NotificationModeratorReopened,
		PostID:       p.ID,
		TriggeredBy:  actorID,
		TransitionID: tid,
		Recipients:   []string{p.AuthorID},
	})
	return err
}

func (e *Engine) ArtistConfirm(ctx context.Context, commentID, actorID string) (*model.Comment, error) {
	return e.artistDecision(ctx, TransitionArtistConfirm, commentID, actorID)
}

func (e *Engine) ArtistDeny(ctx context.Context, commentID, actorID string) (*model.Comment, error) {
	return e.artistDecision(ctx, TransitionArtistDeny, commentID, actorID)
}

// artistDecision: отмеченный артист подтверждает или отклоняет отметку.
// Статус поста не меняется.
func (e *Engine) artistDecision(ctx context.Context, transition, commentID, actorID string) (c *model.Comment, err error) {
	op := "verification/" + transition

	lg := logger.From(ctx).With("op", op, "comment_id", commentID, "actor_id", actorID)
	replay := false
	defer func() { observe(transition, replay, err) }()

	target, ntype := model.TagConfirmed, model.NotificationArtistConfirmed
	if transition == TransitionArtistDeny {
		target, ntype = model.TagDenied, model.NotificationArtistDenied
	}

	if err := requireFields(transition, "commentId", commentID, "actor", actorID); err != nil {
		return nil, err
	}

	actor, err := e.loadUser(ctx, op, actorID)
	if err != nil {
		return nil, err
	}

	current, err := e.comments.GetCommentById(ctx, commentID)
	if errors.Is(err, comment.ErrCommentNotFound) {
		return nil, fmt.Errorf("%s: comment %s: %w", op, commentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: get comment: %w", op, err)
	}

	if current.TaggedArtistID == nil || *current.TaggedArtistID != actorID {
		return nil, fmt.Errorf("%s: user %s is not tagged on comment %s: %w", op, actorID, commentID, ErrForbidden)
	}
	if !actor.CanActAsArtist() {
		return nil, fmt.Errorf("%s: user %s is not a verified artist: %w", op, actorID, ErrForbidden)
	}

	switch current.TagStatus {
	case target:
		replay = true
	case model.TagPending:
		updated, err := e.comments.UpdateTagStatus(ctx, commentID, model.TagPending, target)
		switch {
		case errors.Is(err, comment.ErrTagConflict):
			// решение принято параллельно; совпадает ли оно с нашим
			fresh, gerr := e.comments.GetCommentById(ctx, commentID)
			if gerr != nil || fresh.TagStatus != target {
				return nil, fmt.Errorf("%s: tag of comment %s changed concurrently: %w", op, commentID, ErrInvalidState)
			}
			replay = true
			current = fresh
		case errors.Is(err, comment.ErrCommentNotFound):
			return nil, fmt.Errorf("%s: comment %s: %w", op, commentID, ErrNotFound)
		case err != nil:
			return nil, fmt.Errorf("%s: update tag status: %w", op, err)
		default:
			current = updated
		}
	default:
		return nil, fmt.Errorf("%s: tag of comment %s is %s: %w", op, commentID, current.TagStatus, ErrInvalidState)
	}

	lg.Info("artist decision recorded", "tag_status", current.TagStatus, "replay", replay)

	_, err = e.notifier.Dispatch(ctx, notification.Event{
		Type:         ntype,
		PostID:       current.PostID,
		CommentID:    current.ID,
		TriggeredBy:  actorID,
		TransitionID: transition + ":" + current.PostID + ":" + current.ID,
		Recipients:   []string{current.AuthorID},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return e.withIdentified(ctx, current), nil
}

// ListPendingVerifications — очередь модерации: посты в community, старые первыми.
func (e *Engine) ListPendingVerifications(ctx context.Context) ([]*model.Post, error) {
	posts, err := e.posts.ListByStatus(ctx, model.StatusCommunity)
	if err != nil {
		return nil, fmt.Errorf("verification/ListPendingVerifications: %w", err)
	}
	return posts, nil
}

func (e *Engine) GetKarma(ctx context.Context, userID string) (int, error) {
	const op = "verification/GetKarma"

	if _, err := e.loadUser(ctx, op, userID); err != nil {
		return 0, err
	}
	karma, err := e.karma.Karma(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return karma, nil
}

// commit записывает статус и комментарий одной условной записью.
func (e *Engine) commit(ctx context.Context, op string, current *model.Post, status model.VerificationStatus, commentID *string) (*model.Post, error) {
	updated, err := e.posts.UpdateVerification(ctx, model.VerificationUpdate{
		PostID:            current.ID,
		ExpectedVersion:   current.Version,
		Status:            status,
		VerifiedCommentID: commentID,
		UpdatedAt:         e.now().UTC(),
	})
	switch {
	case errors.Is(err, post.ErrVersionConflict):
		return nil, fmt.Errorf("%s: post %s changed concurrently: %w", op, current.ID, ErrInvalidState)
	case errors.Is(err, post.ErrPostNotFound):
		return nil, fmt.Errorf("%s: post %s: %w", op, current.ID, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: update verification: %w", op, err)
	}
	return updated, nil
}

func (e *Engine) emitCommunityVerified(ctx context.Context, p *model.Post, c *model.Comment, actorID, tid string) error {
	moderators, err := e.users.ListModerators(ctx)
	if err != nil {
		return fmt.Errorf("list moderators: %w", err)
	}

	recipients := make([]string, 0, len(moderators))
	for _, m := range moderators {
		recipients = append(recipients, m.ID)
	}

	ev := notification.Event{
		Type:         model.NotificationCommunityIdentified,
		PostID:       p.ID,
		CommentID:    c.ID,
		TriggeredBy:  actorID,
		TransitionID: tid,
		Recipients:   recipients,
	}
	if _, err := e.notifier.Dispatch(ctx, ev); err != nil {
		return err
	}

	ev.Type = model.NotificationNewReviewSubmission
	ev.Recipients = nil
	e.notifier.Broadcast(ctx, notification.ModerationTopic, ev)
	return nil
}

func (e *Engine) emitConfirmed(ctx context.Context, p *model.Post, c *model.Comment, actorID, tid string) error {
	if _, err := e.karma.Credit(ctx, tid, c.AuthorID, p.ID, c.ID); err != nil {
		return fmt.Errorf("credit karma: %w", err)
	}

	_, err := e.notifier.Dispatch(ctx, notification.Event{
		Type:         model.NotificationModeratorConfirmed,
		PostID:       p.ID,
		CommentID:    c.ID,
		TriggeredBy:  actorID,
		TransitionID: tid,
		Recipients:   []string{p.AuthorID, c.AuthorID},
	})
	return err
}

func (e *Engine) requireModerator(ctx context.Context, op, actorID string) error {
	actor, err := e.loadUser(ctx, op, actorID)
	if err != nil {
		return err
	}
	if !actor.IsModerator() {
		return fmt.Errorf("%s: user %s is not a moderator: %w", op, actorID, ErrForbidden)
	}
	return nil
}

func (e *Engine) loadUser(ctx context.Context, op, id string) (*model.User, error) {
	u, err := e.users.GetUserById(ctx, id)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: user %s: %w", op, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: get user: %w", op, err)
	}
	return u, nil
}

func (e *Engine) loadPost(ctx context.Context, op, id string) (*model.Post, error) {
	p, err := e.posts.GetPostById(ctx, id)
	if errors.Is(err, post.ErrPostNotFound) {
		return nil, fmt.Errorf("%s: post %s: %w", op, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: get post: %w", op, err)
	}
	return p, nil
}

// loadPostComment возвращает комментарий, только если он принадлежит посту.
func (e *Engine) loadPostComment(ctx context.Context, op, postID, commentID string) (*model.Comment, error) {
	c, err := e.comments.GetCommentById(ctx, commentID)
	if errors.Is(err, comment.ErrCommentNotFound) {
		return nil, fmt.Errorf("%s: comment %s: %w", op, commentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: get comment: %w", op, err)
	}
	if c.PostID != postID {
		return nil, fmt.Errorf("%s: comment %s does not belong to post %s: %w", op, commentID, postID, ErrNotFound)
	}
	return c, nil
}

func (e *Engine) withIdentified(ctx context.Context, c *model.Comment) *model.Comment {
	p, err := e.posts.GetPostById(ctx, c.PostID)
	if err != nil {
		return c
	}
	c.IsIdentified = p.VerificationStatus == model.StatusIdentified && p.VerifiedComment() == c.ID
	return c
}

func observe(transition string, replay bool, err error) {
	result := resultOf(err)
	if err == nil && replay {
		result = "replay"
	}
	metrics.Transitions.WithLabelValues(transition, result).Inc()
}
