package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/saivathsal/radix-server/internal/core/domain"
	"github.com/saivathsal/radix-server/internal/core/ports"
)

// AnalyzeReportUseCase drives one report through pending -> completed|error.
// Every failure inside the pipeline, including panics, is converted into the
// error transition; the worker process is never taken down by a bad report.
type AnalyzeReportUseCase struct {
	repo       ports.ReportRepository
	storage    ports.ObjectStorage
	classifier ports.ImageClassifier
}

func NewAnalyzeReportUseCase(
	repo ports.ReportRepository,
	storage ports.ObjectStorage,
	classifier ports.ImageClassifier,
) *AnalyzeReportUseCase {
	return &AnalyzeReportUseCase{
		repo:       repo,
		storage:    storage,
		classifier: classifier,
	}
}

func (uc *AnalyzeReportUseCase) AnalyzeByID(ctx context.Context, reportID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("analysis panic: %v", r)
			uc.markError(ctx, reportID, panicErr)
			err = panicErr
		}
	}()

	report, getErr := uc.repo.GetByID(ctx, reportID)
	if getErr != nil {
		if domain.IsKind(getErr, domain.ErrReportNotFound) {
			// Deleted before analysis started; nothing to write.
			slog.Info("skipping analysis for deleted report", "report_id", reportID)
			return nil
		}
		return fmt.Errorf("fetch report by id: %w", getErr)
	}
	if report.Status.Terminal() {
		// Redelivered message; the single terminal transition already happened.
		slog.Info("skipping analysis for terminal report",
			"report_id", report.ReportID, "status", report.Status)
		return nil
	}

	result, analyzeErr := uc.analyzeImage(ctx, report)
	if analyzeErr != nil {
		uc.markError(ctx, report.ID, analyzeErr)
		return analyzeErr
	}

	tags := []string{}
	if report.UserRole == domain.RoleDoctor && result.Tags != nil {
		tags = result.Tags
	}
	text := domain.RenderReportText(domain.AnalysisResult{Caption: result.Caption, Tags: tags}, report.UserRole)

	matched, completeErr := uc.repo.Complete(ctx, report.ID, result, domain.CompletedConfidence, tags, text)
	if completeErr != nil {
		uc.markError(ctx, report.ID, completeErr)
		return fmt.Errorf("complete report: %w", completeErr)
	}
	if !matched {
		slog.Info("report deleted during analysis, result discarded", "report_id", report.ReportID)
	}
	return nil
}

func (uc *AnalyzeReportUseCase) analyzeImage(ctx context.Context, report *domain.Report) (domain.AnalysisResult, error) {
	key := path.Base(report.Image)
	image, err := uc.storage.Open(ctx, key)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("open stored image: %w", err)
	}
	defer image.Close()

	result, err := uc.classifier.Analyze(ctx, image, key, report.UserRole)
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("classify image: %w", err)
	}
	return result, nil
}

// markError applies the pending -> error transition. A zero-row match means
// the report was deleted while analysis ran; the late result is dropped
// rather than resurrecting the record.
func (uc *AnalyzeReportUseCase) markError(ctx context.Context, id string, cause error) {
	reason := domain.RenderErrorReportText(cause.Error())
	matched, err := uc.repo.Fail(ctx, id, reason, cause.Error())
	if err != nil {
		slog.Error("mark report failed", "report_id", id, "error", err)
		return
	}
	if !matched {
		slog.Info("error transition skipped, report gone or terminal", "report_id", id)
	}
}
