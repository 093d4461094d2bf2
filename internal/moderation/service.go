// Package moderation — очередь проверки и служебные действия модераторов:
// жалобы на посты и удаление постов со всеми зависимыми данными.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/notification"
	"github.com/VitaminP8/trackid/internal/post"
	"github.com/VitaminP8/trackid/internal/user"
	"github.com/VitaminP8/trackid/internal/verification"
)

const (
	maxReasonLength = 500
	// removeAttempts — сколько раз удаление перечитывает пост, изменившийся между чтением и удалением.
	removeAttempts = 3
)

// Cascade — хранилища, из которых удаляются данные поста.
type Cascade interface {
	DeleteByPost(ctx context.Context, postID string) error
}

type Notifier interface {
	Dispatch(ctx context.Context, ev notification.Event) ([]*model.Notification, error)
}

type KarmaReverser interface {
	Reverse(ctx context.Context, key, creditKey string) (bool, error)
}

type Service struct {
	posts    post.PostStorage
	users    user.UserStorage
	reports  ReportStorage
	cascade  []Cascade
	notifier Notifier
	karma    KarmaReverser
}

// NewService: cascade — комментарии, голоса, уведомления поста.
func NewService(posts post.PostStorage, users user.UserStorage, reports ReportStorage, notifier Notifier, karma KarmaReverser, cascade ...Cascade) *Service {
	return &Service{
		posts:    posts,
		users:    users,
		reports:  reports,
		cascade:  cascade,
		notifier: notifier,
		karma:    karma,
	}
}

// ListPending возвращает посты в статусе community, дольше всех ждущие первыми.
func (s *Service) ListPending(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.posts.ListByStatus(ctx, model.StatusCommunity)
	if err != nil {
		return nil, fmt.Errorf("moderation/ListPending: %w", err)
	}
	return posts, nil
}

// ReportPost создает жалобу пользователя из контекста на пост. Повторная жалоба
// того же пользователя, пока первая открыта, возвращает открытую с created=false.
func (s *Service) ReportPost(ctx context.Context, postID, reason string) (r *model.Report, created bool, err error) {
	const op = "moderation/ReportPost"

	if _, err := auth.UserIDString(ctx); err != nil {
		return nil, false, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" || len([]rune(reason)) > maxReasonLength {
		return nil, false, fmt.Errorf("%s: reason must be 1..%d characters: %w", op, maxReasonLength, verification.ErrInvalidCommand)
	}

	if _, err := s.loadPost(ctx, op, postID); err != nil {
		return nil, false, err
	}

	lg := logger.From(ctx).With("op", op, "post_id", postID)

	r, err = s.reports.CreateReport(ctx, postID, reason)
	if errors.Is(err, ErrReportExists) && r != nil {
		lg.Info("open report replayed", "report_id", r.ID)
		return r, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("post reported", "report_id", r.ID)
	return r, true, nil
}

func (s *Service) ListReports(ctx context.Context, actorID string) ([]*model.Report, error) {
	const op = "moderation/ListReports"

	if err := s.requireModerator(ctx, op, actorID); err != nil {
		return nil, err
	}
	reports, err := s.reports.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reports, nil
}

// DismissReport закрывает жалобу без изменения статуса поста.
func (s *Service) DismissReport(ctx context.Context, reportID, actorID string) (*model.Report, error) {
	const op = "moderation/DismissReport"

	if err := s.requireModerator(ctx, op, actorID); err != nil {
		return nil, err
	}

	r, err := s.reports.GetReport(ctx, reportID)
	if errors.Is(err, ErrReportNotFound) {
		return nil, fmt.Errorf("%s: report %s: %w", op, reportID, verification.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch r.Status {
	case model.ReportDismissed:
		return r, nil
	case model.ReportActioned:
		return nil, fmt.Errorf("%s: report %s already actioned: %w", op, reportID, verification.ErrInvalidState)
	}

	r, err = s.reports.Resolve(ctx, reportID, model.ReportDismissed, actorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// RemovePost удаляет пост по решению модератора, владелец получает post_removed.
func (s *Service) RemovePost(ctx context.Context, postID, actorID string) error {
	const op = "moderation/RemovePost"

	if err := s.requireModerator(ctx, op, actorID); err != nil {
		return err
	}

	p, err := s.loadPost(ctx, op, postID)
	if err != nil {
		return err
	}
	if p, err = s.remove(ctx, op, p, actorID); err != nil {
		return err
	}

	if p.AuthorID == actorID {
		return nil
	}
	_, err = s.notifier.Dispatch(ctx, notification.Event{
		Type:         model.NotificationPostRemoved,
		PostID:       p.ID,
		TriggeredBy:  actorID,
		TransitionID: verification.TransitionID("remove", p.ID, p.Version),
		Recipients:   []string{p.AuthorID},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteOwnPost удаляет пост по запросу владельца.
func (s *Service) DeleteOwnPost(ctx context.Context, postID, actorID string) error {
	const op = "moderation/DeleteOwnPost"

	p, err := s.loadPost(ctx, op, postID)
	if err != nil {
		return err
	}
	if p.AuthorID != actorID {
		return fmt.Errorf("%s: user %s does not own post %s: %w", op, actorID, postID, verification.ErrForbidden)
	}
	_, err = s.remove(ctx, op, p, actorID)
	return err
}

// remove удаляет пост в той версии, которую прочитал. Если пост успел
// измениться (например, его подтвердили), он перечитывается и удаление
// повторяется с актуальной версией. Возвращает удаленную версию поста.
func (s *Service) remove(ctx context.Context, op string, p *model.Post, actorID string) (*model.Post, error) {
	lg := logger.From(ctx).With("op", op, "post_id", p.ID, "actor_id", actorID)

	for attempt := 1; ; attempt++ {
		err := s.removeVersion(ctx, p, actorID)
		if err == nil {
			lg.Info("post removed", "version", p.Version, "was_identified", p.VerificationStatus == model.StatusIdentified)
			return p, nil
		}
		if errors.Is(err, post.ErrPostNotFound) {
			return nil, fmt.Errorf("%s: post %s: %w", op, p.ID, verification.ErrNotFound)
		}
		if !errors.Is(err, post.ErrVersionConflict) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if attempt == removeAttempts {
			return nil, fmt.Errorf("%s: post %s changed concurrently: %w", op, p.ID, verification.ErrInvalidState)
		}

		lg.Warn("post changed during removal, retrying", "version", p.Version)
		if p, err = s.loadPost(ctx, op, p.ID); err != nil {
			return nil, err
		}
	}
}

// removeVersion снимает начисление за подтвержденный пост, закрывает жалобы,
// удаляет зависимые данные и сам пост условной записью по версии.
func (s *Service) removeVersion(ctx context.Context, p *model.Post, actorID string) error {
	if p.VerificationStatus == model.StatusIdentified {
		creditKey := verification.TransitionID(verification.TransitionModeratorConfirm, p.ID, p.Version)
		key := verification.TransitionID("remove", p.ID, p.Version)
		if _, err := s.karma.Reverse(ctx, key, creditKey); err != nil {
			return fmt.Errorf("reverse karma: %w", err)
		}
	}

	if err := s.reports.ResolveByPost(ctx, p.ID, model.ReportActioned, actorID); err != nil {
		return fmt.Errorf("resolve reports: %w", err)
	}
	for _, c := range s.cascade {
		if err := c.DeleteByPost(ctx, p.ID); err != nil {
			return fmt.Errorf("cascade: %w", err)
		}
	}

	err := s.posts.DeletePostById(ctx, p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *Service) requireModerator(ctx context.Context, op, actorID string) error {
	u, err := s.users.GetUserById(ctx, actorID)
	if errors.Is(err, user.ErrUserNotFound) {
		return fmt.Errorf("%s: user %s: %w", op, actorID, verification.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsModerator() {
		return fmt.Errorf("%s: user %s is not a moderator: %w", op, actorID, verification.ErrForbidden)
	}
	return nil
}

func (s *Service) loadPost(ctx context.Context, op, postID string) (*model.Post, error) {
	p, err := s.posts.GetPostById(ctx, postID)
	if errors.Is(err, post.ErrPostNotFound) {
		return nil, fmt.Errorf("%s: post %s: %w", op, postID, verification.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
