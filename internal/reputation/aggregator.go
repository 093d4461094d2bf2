// Package reputation ведет журнал кармы: начисления за подтвержденные
// идентификации и их отмены. Карма пользователя — свертка журнала.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/VitaminP8/trackid/internal/logger"
	"github.com/VitaminP8/trackid/internal/metrics"
	"github.com/VitaminP8/trackid/internal/model"
)

// KarmaSink сохраняет кэшированное значение кармы пользователя.
type KarmaSink interface {
	SetKarma(ctx context.Context, userID string, karma int) error
}

type Aggregator struct {
	ledger LedgerStorage
	users  KarmaSink
	now    func() time.Time
}

func NewAggregator(ledger LedgerStorage, users KarmaSink, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		ledger: ledger,
		users:  users,
		now:    now,
	}
}

// Credit начисляет +1 автору комментария. Повтор с тем же ключом ничего не меняет.
// Возвращает true, если запись добавлена.
func (a *Aggregator) Credit(ctx context.Context, key, userID, postID, commentID string) (bool, error) {
	const op = "reputation/Credit"

	err := a.ledger.AppendEntry(ctx, &model.KarmaEntry{
		TransitionKey: key,
		UserID:        userID,
		PostID:        postID,
		CommentID:     commentID,
		Delta:         1,
		CreatedAt:     a.now().UTC(),
	})
	if errors.Is(err, ErrDuplicateEntry) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: append %s: %w", op, key, err)
	}

	metrics.KarmaEntries.WithLabelValues("credit").Inc()
	if _, err := a.Recompute(ctx, userID); err != nil {
		return true, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Reverse отменяет начисление creditKey ровно один раз.
// Отсутствующее или уже отмененное начисление — no-op.
func (a *Aggregator) Reverse(ctx context.Context, key, creditKey string) (bool, error) {
	const op = "reputation/Reverse"

	lg := logger.From(ctx).With("op", op, "key", key, "credit_key", creditKey)

	credit, err := a.ledger.GetEntry(ctx, creditKey)
	if errors.Is(err, ErrEntryNotFound) {
		lg.Debug("nothing to reverse")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: get credit: %w", op, err)
	}

	_, err = a.ledger.FindReversal(ctx, creditKey)
	if err == nil {
		lg.Debug("credit already reversed")
		return false, nil
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return false, fmt.Errorf("%s: find reversal: %w", op, err)
	}

	err = a.ledger.AppendEntry(ctx, &model.KarmaEntry{
		TransitionKey: key,
		UserID:        credit.UserID,
		PostID:        credit.PostID,
		CommentID:     credit.CommentID,
		Delta:         -credit.Delta,
		ReversesKey:   creditKey,
		CreatedAt:     a.now().UTC(),
	})
	if errors.Is(err, ErrDuplicateEntry) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: append %s: %w", op, key, err)
	}

	metrics.KarmaEntries.WithLabelValues("reversal").Inc()
	if _, err := a.Recompute(ctx, credit.UserID); err != nil {
		return true, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Karma сворачивает журнал пользователя, не опускаясь ниже нуля на каждом шаге.
func (a *Aggregator) Karma(ctx context.Context, userID string) (int, error) {
	const op = "reputation/Karma"

	entries, err := a.ledger.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: list entries: %w", op, err)
	}

	karma := 0
	for _, e := range entries {
		karma += e.Delta
		if karma < 0 {
			logger.From(ctx).Warn("karma ledger inconsistency, clamped at zero",
				"op", op, "user_id", userID, "transition_key", e.TransitionKey)
			metrics.KarmaInconsistencies.Inc()
			karma = 0
		}
	}
	return karma, nil
}

// Recompute пересчитывает карму и сохраняет ее в профиль пользователя.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (int, error) {
	const op = "reputation/Recompute"

	karma, err := a.Karma(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := a.users.SetKarma(ctx, userID, karma); err != nil {
		return 0, fmt.Errorf("%s: set karma for %s: %w", op, userID, err)
	}
	return karma, nil
}

// RecomputeAll пересчитывает карму всех пользователей, встречающихся в журнале.
func (a *Aggregator) RecomputeAll(ctx context.Context) (map[string]int, error) {
	const op = "reputation/RecomputeAll"

	ids, err := a.ledger.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list users: %w", op, err)
	}

	result := make(map[string]int, len(ids))
	for _, id := range ids {
		karma, err := a.Recompute(ctx, id)
		if err != nil {
			return result, err
		}
		result[id] = karma
	}
	return result, nil
}
