package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/saivathsal/radix-server/internal/core/domain"
	"github.com/saivathsal/radix-server/internal/core/ports"
)

// ReportsUseCase is the owner-scoped list/get/delete/export surface.
type ReportsUseCase struct {
	repo    ports.ReportRepository
	storage ports.ObjectStorage
}

func NewReportsUseCase(repo ports.ReportRepository, storage ports.ObjectStorage) *ReportsUseCase {
	return &ReportsUseCase{repo: repo, storage: storage}
}

func (uc *ReportsUseCase) List(ctx context.Context, user *domain.User) ([]domain.Report, error) {
	reports, err := uc.repo.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (uc *ReportsUseCase) Get(ctx context.Context, user *domain.User, reportID string) (*domain.Report, error) {
	report, err := uc.repo.GetOwned(ctx, user.ID, reportID)
	if err != nil {
		if domain.IsKind(err, domain.ErrReportNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// Delete removes the record first, then its backing image. File removal is
// best effort: a stray file is logged, but a surviving record must never
// point at a removed image.
func (uc *ReportsUseCase) Delete(ctx context.Context, user *domain.User, reportID string) error {
	report, err := uc.Get(ctx, user, reportID)
	if err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, user.ID, reportID); err != nil {
		if domain.IsKind(err, domain.ErrReportNotFound) {
			return err
		}
		return fmt.Errorf("delete report: %w", err)
	}

	if key := path.Base(report.Image); key != "" && key != "." {
		if err := uc.storage.Remove(ctx, key); err != nil {
			slog.Warn("delete report image", "report_id", report.ReportID, "error", err)
		}
	}
	return nil
}

// Export returns the full payload; rendering into a document happens on the
// client.
func (uc *ReportsUseCase) Export(ctx context.Context, user *domain.User, reportID string) (*domain.Report, error) {
	return uc.Get(ctx, user, reportID)
}
