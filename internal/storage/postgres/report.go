package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/VitaminP8/trackid/internal/auth"
	"github.com/VitaminP8/trackid/internal/model"
	"github.com/VitaminP8/trackid/internal/moderation"
	"github.com/VitaminP8/trackid/models"
	"github.com/jinzhu/gorm"
)

type ReportPostgresStorage struct{}

func NewReportPostgresStorage() *ReportPostgresStorage {
	return &ReportPostgresStorage{}
}

func toReport(r *models.Report) *model.Report {
	resolvedBy := ""
	if r.ResolvedBy != nil {
		resolvedBy = fmt.Sprint(*r.ResolvedBy)
	}
	return &model.Report{
		ID:         fmt.Sprint(r.ID),
		PostID:     fmt.Sprint(r.PostID),
		ReporterID: fmt.Sprint(r.ReporterID),
		Reason:     r.Reason,
		Status:     model.ReportStatus(r.Status),
		ResolvedBy: resolvedBy,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (s *ReportPostgresStorage) CreateReport(ctx context.Context, postID, reason string) (*model.Report, error) {
	reporterID, err := auth.GetUserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unautorized: %w", err)
	}

	pk, ok := parseID(postID)
	if !ok {
		return nil, fmt.Errorf("invalid post id %q", postID)
	}

	var existing models.Report
	err = DB.Where("post_id = ? AND reporter_id = ? AND status = ?", pk, reporterID, string(model.ReportOpen)).
		First(&existing).Error
	if err == nil {
		return toReport(&existing), moderation.ErrReportExists
	}
	if !gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("could not check reports: %w", err)
	}

	r := &models.Report{
		PostID:     pk,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     string(model.ReportOpen),
		CreatedAt:  time.Now().UTC(),
	}
	if err := DB.Create(r).Error; err != nil {
		return nil, fmt.Errorf("could not create report: %w", err)
	}
	return toReport(r), nil
}

func (s *ReportPostgresStorage) GetReport(ctx context.Context, id string) (*model.Report, error) {
	pk, ok := parseID(id)
	if !ok {
		return nil, moderation.ErrReportNotFound
	}

	var r models.Report
	err := DB.First(&r, pk).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, moderation.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get report: %w", err)
	}
	return toReport(&r), nil
}

func (s *ReportPostgresStorage) ListOpen(ctx context.Context) ([]*model.Report, error) {
	var rows []models.Report
	err := DB.Where("status = ?", string(model.ReportOpen)).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("could not list reports: %w", err)
	}

	results := make([]*model.Report, 0, len(rows))
	for i := range rows {
		results = append(results, toReport(&rows[i]))
	}
	return results, nil
}

func (s *ReportPostgresStorage) Resolve(ctx context.Context, id string, status model.ReportStatus, resolvedBy string) (*model.Report, error) {
	pk, ok := parseID(id)
	if !ok {
		return nil, moderation.ErrReportNotFound
	}

	res := DB.Model(&models.Report{}).Where("id = ?", pk).UpdateColumns(map[string]interface{}{
		"status":      string(status),
		"resolved_by": optionalUint(&resolvedBy),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("could not resolve report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, moderation.ErrReportNotFound
	}
	return s.GetReport(ctx, id)
}

func (s *ReportPostgresStorage) ResolveByPost(ctx context.Context, postID string, status model.ReportStatus, resolvedBy string) error {
	pk, ok := parseID(postID)
	if !ok {
		return nil
	}

	err := DB.Model(&models.Report{}).
		Where("post_id = ? AND status = ?", pk, string(model.ReportOpen)).
		UpdateColumns(map[string]interface{}{
			"status":      string(status),
			"resolved_by": optionalUint(&resolvedBy),
		}).Error
	if err != nil {
		return fmt.Errorf("could not resolve reports: %w", err)
	}
	return nil
}
