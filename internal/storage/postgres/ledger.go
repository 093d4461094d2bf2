package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/reputation"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
)

// LedgerPostgresStorage — журнал кармы. Уникальные индексы по transition_key
// и reverses_key: запись применяется один раз, начисление отменяется один раз.
type LedgerPostgresStorage struct{}

func NewLedgerPostgresStorage() *LedgerPostgresStorage {
	return &LedgerPostgresStorage{}
}

func toEntry(e *models.KarmaEntry) *model.KarmaEntry {
	return &model.KarmaEntry{
		TransitionKey: e.TransitionKey,
		UserID:        fmt.Sprint(e.UserID),
		PostID:        fmt.Sprint(e.PostID),
		CommentID:     fmt.Sprint(e.CommentID),
		Delta:         e.Delta,
		ReversesKey:   derefString(e.ReversesKey),
		CreatedAt:     e.CreatedAt.UTC(),
	}
}

func (s *LedgerPostgresStorage) AppendEntry(ctx context.Context, e *model.KarmaEntry) error {
	userID, ok := parseID(e.UserID)
	if !ok {
		return fmt.Errorf("invalid user id %q", e.UserID)
	}
	postID, _ := parseID(e.PostID)
	commentID, _ := parseID(e.CommentID)

	if s.exists(ctx, e) {
		return reputation.ErrDuplicateEntry
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := DB.Create(&models.KarmaEntry{
		TransitionKey: e.TransitionKey,
		UserID:        userID,
		PostID:        postID,
		CommentID:     commentID,
		Delta:         e.Delta,
		ReversesKey:   optionalString(e.ReversesKey),
		CreatedAt:     createdAt,
	}).Error
	if err != nil {
		// уникальные индексы срабатывают и при гонке двух записей
		if s.exists(ctx, e) {
			return reputation.ErrDuplicateEntry
		}
		return fmt.Errorf("could not append ledger entry: %w", err)
	}
	return nil
}

// exists сообщает, занят ли ключ записи или отменяемое ею начисление.
func (s *LedgerPostgresStorage) exists(ctx context.Context, e *model.KarmaEntry) bool {
	if _, err := s.GetEntry(ctx, e.TransitionKey); err == nil {
		return true
	}
	if e.ReversesKey == "" {
		return false
	}
	_, err := s.FindReversal(ctx, e.ReversesKey)
	return err == nil
}

func (s *LedgerPostgresStorage) GetEntry(ctx context.Context, transitionKey string) (*model.KarmaEntry, error) {
	return s.findOne("transition_key = ?", transitionKey)
}

func (s *LedgerPostgresStorage) FindReversal(ctx context.Context, creditKey string) (*model.KarmaEntry, error) {
	return s.findOne("reverses_key = ?", creditKey)
}

func (s *LedgerPostgresStorage) findOne(query string, arg string) (*model.KarmaEntry, error) {
	var e models.KarmaEntry
	err := DB.Where(query, arg).First(&e).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, reputation.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get ledger entry: %w", err)
	}
	return toEntry(&e), nil
}

func (s *LedgerPostgresStorage) ListByUser(ctx context.Context, userID string) ([]*model.KarmaEntry, error) {
	pk, ok := parseID(userID)
	if !ok {
		return []*model.KarmaEntry{}, nil
	}

	var rows []models.KarmaEntry
	err := DB.Where("user_id = ?", pk).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("could not list ledger entries: %w", err)
	}

	results := make([]*model.KarmaEntry, 0, len(rows))
	for i := range rows {
		results = append(results, toEntry(&rows[i]))
	}
	return results, nil
}

func (s *LedgerPostgresStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []uint
	err := DB.Model(&models.KarmaEntry{}).Order("user_id").Pluck("DISTINCT user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("could not list ledger users: %w", err)
	}

	results := make([]string, 0, len(ids))
	for _, id := range ids {
		results = append(results, fmt.Sprint(id))
	}
	return results, nil
}
