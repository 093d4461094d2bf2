package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/reputation"
)

type LedgerMemoryStorage struct {
	mu        sync.Mutex
	entries   []*model.KarmaEntry
	byKey     map[string]*model.KarmaEntry
	reversals map[string]*model.KarmaEntry // ключ начисления -> его отмена
}

func NewLedgerMemoryStorage() *LedgerMemoryStorage {
	return &LedgerMemoryStorage{
		byKey:     make(map[string]*model.KarmaEntry),
		reversals: make(map[string]*model.KarmaEntry),
	}
}

func (s *LedgerMemoryStorage) AppendEntry(ctx context.Context, e *model.KarmaEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[e.TransitionKey]; exists {
		return reputation.ErrDuplicateEntry
	}
	if e.ReversesKey != "" {
		if _, exists := s.reversals[e.ReversesKey]; exists {
			return reputation.ErrDuplicateEntry
		}
	}

	stored := *e
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, &stored)
	s.byKey[stored.TransitionKey] = &stored
	if stored.ReversesKey != "" {
		s.reversals[stored.ReversesKey] = &stored
	}
	return nil
}

func (s *LedgerMemoryStorage) GetEntry(ctx context.Context, transitionKey string) (*model.KarmaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byKey[transitionKey]
	if !ok {
		return nil, reputation.ErrEntryNotFound
	}
	c := *e
	return &c, nil
}

func (s *LedgerMemoryStorage) FindReversal(ctx context.Context, creditKey string) (*model.KarmaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.reversals[creditKey]
	if !ok {
		return nil, reputation.ErrEntryNotFound
	}
	c := *e
	return &c, nil
}

func (s *LedgerMemoryStorage) ListByUser(ctx context.Context, userID string) ([]*model.KarmaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := []*model.KarmaEntry{}
	for _, e := range s.entries {
		if e.UserID == userID {
			c := *e
			result = append(result, &c)
		}
	}
	return result, nil
}

func (s *LedgerMemoryStorage) ListUserIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	ids := []string{}
	for _, e := range s.entries {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	return ids, nil
}
