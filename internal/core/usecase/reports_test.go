package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

type reportsRepoFake struct {
	analyzeRepoFake
	owned     map[string]*domain.Report
	listed    []domain.Report
	deleted   []string
	deleteErr error
}

func (f *reportsRepoFake) GetOwned(_ context.Context, userID, reportID string) (*domain.Report, error) {
	r, ok := f.owned[userID+"/"+reportID]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *reportsRepoFake) ListByOwner(context.Context, string) ([]domain.Report, error) {
	return f.listed, nil
}

func (f *reportsRepoFake) Delete(_ context.Context, userID, reportID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, userID+"/"+reportID)
	return nil
}

func TestDeleteRemovesRecordAndImage(t *testing.T) {
	r := completedReport()
	repo := &reportsRepoFake{owned: map[string]*domain.Report{"u-1/" + r.ReportID: r}}
	storage := &storageFake{}
	uc := NewReportsUseCase(repo, storage)

	if err := uc.Delete(context.Background(), &domain.User{ID: "u-1"}, r.ReportID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("record not deleted")
	}
	if len(storage.removed) != 1 || storage.removed[0] != "img.jpg" {
		t.Fatalf("image not removed: %+v", storage.removed)
	}
}

func TestDeleteToleratesImageRemovalFailure(t *testing.T) {
	r := completedReport()
	repo := &reportsRepoFake{owned: map[string]*domain.Report{"u-1/" + r.ReportID: r}}
	storage := &storageFake{removeErr: errors.New("unlink failed")}
	uc := NewReportsUseCase(repo, storage)

	if err := uc.Delete(context.Background(), &domain.User{ID: "u-1"}, r.ReportID); err != nil {
		t.Fatalf("image removal failure must not block deletion, got %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("record not deleted despite best-effort file policy")
	}
}

func TestDeleteKeepsImageWhenRecordDeleteFails(t *testing.T) {
	r := completedReport()
	repo := &reportsRepoFake{
		owned:     map[string]*domain.Report{"u-1/" + r.ReportID: r},
		deleteErr: errors.New("connection reset"),
	}
	storage := &storageFake{}
	uc := NewReportsUseCase(repo, storage)

	if err := uc.Delete(context.Background(), &domain.User{ID: "u-1"}, r.ReportID); err == nil {
		t.Fatal("expected record delete failure to surface")
	}
	if len(storage.removed) != 0 {
		t.Fatalf("surviving record must keep its image, removed %+v", storage.removed)
	}
}

func TestDeleteForeignReportNotFound(t *testing.T) {
	r := completedReport()
	repo := &reportsRepoFake{owned: map[string]*domain.Report{"u-1/" + r.ReportID: r}}
	uc := NewReportsUseCase(repo, &storageFake{})

	err := uc.Delete(context.Background(), &domain.User{ID: "u-2"}, r.ReportID)
	if !domain.IsKind(err, domain.ErrReportNotFound) {
		t.Fatalf("foreign delete must look like not found, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("foreign delete must have no side effects")
	}
}

func TestExportReturnsFullReport(t *testing.T) {
	r := completedReport()
	repo := &reportsRepoFake{owned: map[string]*domain.Report{"u-1/" + r.ReportID: r}}
	uc := NewReportsUseCase(repo, &storageFake{})

	exported, err := uc.Export(context.Background(), &domain.User{ID: "u-1"}, r.ReportID)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if exported.ReportText != r.ReportText || exported.ReportID != r.ReportID {
		t.Fatalf("export payload incomplete: %+v", exported)
	}
}

func TestListReturnsOwnerReports(t *testing.T) {
	repo := &reportsRepoFake{listed: []domain.Report{*completedReport()}}
	uc := NewReportsUseCase(repo, &storageFake{})

	reports, err := uc.List(context.Background(), &domain.User{ID: "u-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
}
