package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saivathsal/radix-server/internal/core/domain"
	"github.com/saivathsal/radix-server/internal/core/ports"
)

// StatusUseCase serves the polling endpoint. It is read-mostly: the only
// write it ever performs is the one-time report text backfill for completed
// reports persisted before text caching existed.
type StatusUseCase struct {
	repo ports.ReportRepository
}

func NewStatusUseCase(repo ports.ReportRepository) *StatusUseCase {
	return &StatusUseCase{repo: repo}
}

func (uc *StatusUseCase) Status(ctx context.Context, user *domain.User, reportID string) (*domain.Report, error) {
	report, err := uc.lookup(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.UserID != user.ID {
		return nil, domain.WrapError(domain.ErrForbidden, "report status",
			fmt.Errorf("report %s is not owned by the caller", reportID))
	}

	if report.Status == domain.StatusCompleted && report.ReportText == "" {
		report.ReportText = domain.RenderReportText(
			domain.AnalysisResult{Caption: report.ClassLabel, Tags: report.Tags},
			report.UserRole,
		)
		if err := uc.repo.SaveReportText(ctx, report.ID, report.ReportText); err != nil {
			// Serve the rendered text anyway; the next poll retries the write.
			slog.Error("persist backfilled report text", "report_id", report.ReportID, "error", err)
		}
	}

	return report, nil
}

// lookup accepts either the public report identifier or the internal key.
func (uc *StatusUseCase) lookup(ctx context.Context, reportID string) (*domain.Report, error) {
	report, err := uc.repo.GetByReportID(ctx, reportID)
	if err == nil {
		return report, nil
	}
	if !domain.IsKind(err, domain.ErrReportNotFound) {
		return nil, fmt.Errorf("fetch report by public id: %w", err)
	}

	report, err = uc.repo.GetByID(ctx, reportID)
	if err != nil {
		if domain.IsKind(err, domain.ErrReportNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch report by internal id: %w", err)
	}
	return report, nil
}
