package moderation

import (
	"context"
	"errors"

	"github.com/VitaminP8/trackid/internal/model"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrReportExists   = errors.New("open report already exists")
)

type ReportStorage interface {
	// CreateReport создает жалобу от пользователя из контекста.
	// У одного пользователя может быть только одна открытая жалоба на пост:
	// при повторе возвращается она же вместе с ErrReportExists.
	CreateReport(ctx context.Context, postID, reason string) (*model.Report, error)
	GetReport(ctx context.Context, id string) (*model.Report, error)
	// ListOpen возвращает открытые жалобы, старые первыми.
	ListOpen(ctx context.Context) ([]*model.Report, error)
	Resolve(ctx context.Context, id string, status model.ReportStatus, resolvedBy string) (*model.Report, error)
	ResolveByPost(ctx context.Context, postID string, status model.ReportStatus, resolvedBy string) error
}
