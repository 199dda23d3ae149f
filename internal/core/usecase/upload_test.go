package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

type uploadRepoFake struct {
	analyzeRepoFake
	conflicts int
	created   []domain.Report
}

func (f *uploadRepoFake) Create(_ context.Context, report *domain.Report) error {
	if f.conflicts > 0 {
		f.conflicts--
		return domain.WrapError(domain.ErrConflict, "insert report", domain.ErrConflict)
	}
	f.created = append(f.created, *report)
	return nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishReportCreated(_ context.Context, reportID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, reportID)
	return nil
}

func (f *queueFake) SubscribeReportCreated(context.Context, func(context.Context, string) error) error {
	return nil
}

func uploader() (*UploadXRayUseCase, *uploadRepoFake, *storageFake, *queueFake) {
	repo := &uploadRepoFake{analyzeRepoFake: analyzeRepoFake{failMatch: true}}
	storage := &storageFake{}
	queue := &queueFake{}
	return NewUploadXRayUseCase(UploadConfig{}, repo, storage, queue), repo, storage, queue
}

func doctor() *domain.User {
	return &domain.User{ID: "u-1", Username: "drgrey", Role: domain.RoleDoctor}
}

func TestUploadCreatesPendingReport(t *testing.T) {
	uc, repo, storage, queue := uploader()

	report, err := uc.Upload(context.Background(), doctor(), "scan.jpg", "image/jpeg", 512, strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if report.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", report.Status)
	}
	if !domain.ValidReportID(report.ReportID) {
		t.Fatalf("report id %q does not match the public shape", report.ReportID)
	}
	if report.ClassLabel != domain.PendingClassLabel || report.Confidence != 0 {
		t.Fatalf("unexpected placeholder fields: %+v", report)
	}
	if len(storage.saved) != 1 || !strings.HasSuffix(storage.saved[0], ".jpg") {
		t.Fatalf("image not stored with extension: %+v", storage.saved)
	}
	if !strings.HasPrefix(report.Image, "/api/uploads/") {
		t.Fatalf("unexpected image url %q", report.Image)
	}
	if len(queue.published) != 1 || queue.published[0] != report.ID {
		t.Fatalf("analysis not scheduled: %+v", queue.published)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created row, got %d", len(repo.created))
	}
}

func TestUploadRejectsDisallowedMimeType(t *testing.T) {
	uc, repo, storage, _ := uploader()

	_, err := uc.Upload(context.Background(), doctor(), "scan.gif", "image/gif", 512, strings.NewReader("gif"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(repo.created) != 0 || len(storage.saved) != 0 {
		t.Fatalf("rejected upload must have no side effects")
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	uc, _, _, _ := uploader()

	_, err := uc.Upload(context.Background(), doctor(), "scan.jpg", "image/jpeg", (5<<20)+1, strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	uc, _, _, _ := uploader()

	_, err := uc.Upload(context.Background(), doctor(), "scan.jpg", "image/jpeg", 0, strings.NewReader(""))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestUploadRetriesReportIDCollision(t *testing.T) {
	uc, repo, _, _ := uploader()
	repo.conflicts = 2

	report, err := uc.Upload(context.Background(), doctor(), "scan.png", "image/png", 100, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !domain.ValidReportID(report.ReportID) {
		t.Fatalf("retried id %q malformed", report.ReportID)
	}
}

func TestUploadGivesUpAfterRepeatedCollisions(t *testing.T) {
	uc, repo, _, _ := uploader()
	repo.conflicts = reportIDMaxAttempts

	if _, err := uc.Upload(context.Background(), doctor(), "scan.png", "image/png", 100, strings.NewReader("png")); err == nil {
		t.Fatalf("expected allocation failure")
	}
}

func TestUploadPublishFailureMarksReportError(t *testing.T) {
	uc, repo, _, queue := uploader()
	queue.publishErr = domain.ErrTemporary

	report, err := uc.Upload(context.Background(), doctor(), "scan.jpg", "image/jpeg", 100, strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("publish failure must not fail the upload, got %v", err)
	}
	if report.Status != domain.StatusError {
		t.Fatalf("unscheduled report must surface as error, got %s", report.Status)
	}
	if len(repo.failCalls) != 1 {
		t.Fatalf("expected error transition, fail calls = %d", len(repo.failCalls))
	}
}
