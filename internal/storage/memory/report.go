package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/moderation"
)

type ReportMemoryStorage struct {
	mu      sync.Mutex
	reports []*model.Report
	nextID  int
}

func NewReportMemoryStorage() *ReportMemoryStorage {
	return &ReportMemoryStorage{nextID: 1}
}

func (s *ReportMemoryStorage) CreateReport(ctx context.Context, postID, reason string) (*model.Report, error) {
	reporterID, err := auth.UserIDString(ctx)
	if err != nil {
		return nil, fmt.Errorf("unautorized: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reports {
		if r.PostID == postID && r.ReporterID == reporterID && r.Status == model.ReportOpen {
			c := *r
			return &c, moderation.ErrReportExists
		}
	}

	r := &model.Report{
		ID:         strconv.Itoa(s.nextID),
		PostID:     postID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     model.ReportOpen,
		CreatedAt:  time.Now().UTC(),
	}
	s.nextID++
	s.reports = append(s.reports, r)

	c := *r
	return &c, nil
}

func (s *ReportMemoryStorage) GetReport(ctx context.Context, id string) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reports {
		if r.ID == id {
			c := *r
			return &c, nil
		}
	}
	return nil, moderation.ErrReportNotFound
}

func (s *ReportMemoryStorage) ListOpen(ctx context.Context) ([]*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := []*model.Report{}
	for _, r := range s.reports {
		if r.Status == model.ReportOpen {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

func (s *ReportMemoryStorage) Resolve(ctx context.Context, id string, status model.ReportStatus, resolvedBy string) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reports {
		if r.ID == id {
			r.Status = status
			r.ResolvedBy = resolvedBy
			c := *r
			return &c, nil
		}
	}
	return nil, moderation.ErrReportNotFound
}

func (s *ReportMemoryStorage) ResolveByPost(ctx context.Context, postID string, status model.ReportStatus, resolvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reports {
		if r.PostID == postID && r.Status == model.ReportOpen {
			r.Status = status
			r.ResolvedBy = resolvedBy
		}
	}
	return nil
}
