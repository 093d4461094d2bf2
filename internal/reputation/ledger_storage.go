package reputation

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/model"
)

var (
	ErrDuplicateEntry = errors.New("ledger entry already exists")
	ErrEntryNotFound  = errors.New("ledger entry not found")
)

type LedgerStorage interface {
	// AppendEntry добавляет запись. Повторный TransitionKey или вторая отмена
	// того же начисления (ReversesKey) -> ErrDuplicateEntry.
	AppendEntry(ctx context.Context, e *model.KarmaEntry) error
	GetEntry(ctx context.Context, transitionKey string) (*model.KarmaEntry, error)
	// FindReversal ищет запись, отменяющую начисление creditKey.
	FindReversal(ctx context.Context, creditKey string) (*model.KarmaEntry, error)
	// ListByUser возвращает записи пользователя в порядке добавления.
	ListByUser(ctx context.Context, userID string) ([]*model.KarmaEntry, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}
