package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saivathsal/radix-server/internal/core/domain"
	"github.com/saivathsal/radix-server/internal/core/ports"
)

const reportIDMaxAttempts = 5

type UploadConfig struct {
	MaxUploadBytes   int64
	AllowedMimeTypes []string
	ImageURLPrefix   string
}

func (c UploadConfig) normalize() UploadConfig {
	out := c
	if out.MaxUploadBytes <= 0 {
		out.MaxUploadBytes = 5 << 20
	}
	if len(out.AllowedMimeTypes) == 0 {
		out.AllowedMimeTypes = []string{"image/jpeg", "image/jpg", "image/png"}
	}
	if out.ImageURLPrefix == "" {
		out.ImageURLPrefix = "/api/uploads/"
	}
	return out
}

type UploadXRayUseCase struct {
	cfg     UploadConfig
	repo    ports.ReportRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewUploadXRayUseCase(
	cfg UploadConfig,
	repo ports.ReportRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *UploadXRayUseCase {
	return &UploadXRayUseCase{
		cfg:     cfg.normalize(),
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload validates and stores the image, creates the pending report, and
// hands it to the analysis worker. It returns before analysis starts; queue
// failures after the row exists are absorbed into the report's error state
// so a report can never stay pending forever.
func (uc *UploadXRayUseCase) Upload(
	ctx context.Context,
	user *domain.User,
	filename, mimeType string,
	size int64,
	body io.Reader,
) (*domain.Report, error) {
	if err := uc.validate(mimeType, size); err != nil {
		return nil, err
	}

	key := uuid.NewString() + imageExtension(filename)
	if err := uc.storage.Save(ctx, key, io.LimitReader(body, uc.cfg.MaxUploadBytes)); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	report, err := uc.createReport(ctx, user, key)
	if err != nil {
		return nil, err
	}

	if err := uc.queue.PublishReportCreated(ctx, report.ID); err != nil {
		slog.Error("publish report created", "report_id", report.ReportID, "error", err)
		reason := domain.RenderErrorReportText("analysis could not be scheduled")
		if _, failErr := uc.repo.Fail(ctx, report.ID, reason, err.Error()); failErr != nil {
			slog.Error("mark unscheduled report failed", "report_id", report.ReportID, "error", failErr)
		}
		report.Status = domain.StatusError
	}

	return report, nil
}

func (uc *UploadXRayUseCase) validate(mimeType string, size int64) error {
	if size <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("empty image payload"))
	}
	if size > uc.cfg.MaxUploadBytes {
		return domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("image exceeds %d bytes", uc.cfg.MaxUploadBytes))
	}
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	for _, allowed := range uc.cfg.AllowedMimeTypes {
		if normalized == allowed {
			return nil
		}
	}
	return domain.WrapError(domain.ErrInvalidInput, "upload",
		fmt.Errorf("unsupported image type %q, only JPEG and PNG are allowed", mimeType))
}

// createReport allocates the public report ID atomically with respect to the
// store's unique index: insert, and on a collision retry with a fresh suffix.
func (uc *UploadXRayUseCase) createReport(ctx context.Context, user *domain.User, storageKey string) (*domain.Report, error) {
	now := time.Now().UTC()
	report := &domain.Report{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Image:      uc.cfg.ImageURLPrefix + storageKey,
		ClassLabel: domain.PendingClassLabel,
		Confidence: 0,
		Tags:       []string{},
		Status:     domain.StatusPending,
		UserRole:   user.Role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var err error
	for attempt := 1; attempt <= reportIDMaxAttempts; attempt++ {
		report.ReportID = domain.NewReportID(now)
		err = uc.repo.Create(ctx, report)
		if err == nil {
			return report, nil
		}
		if !domain.IsKind(err, domain.ErrConflict) {
			return nil, fmt.Errorf("create report: %w", err)
		}
	}
	return nil, fmt.Errorf("allocate report id after %d attempts: %w", reportIDMaxAttempts, err)
}

func imageExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return ext
	default:
		return ".img"
	}
}
