package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

type completeCall struct {
	id         string
	result     domain.AnalysisResult
	confidence float64
	tags       []string
	reportText string
}

type failCall struct {
	id         string
	reportText string
	errMessage string
}

type analyzeRepoFake struct {
	report        *domain.Report
	getErr        error
	completeErr   error
	failErr       error
	completeMatch bool
	failMatch     bool
	completeCalls []completeCall
	failCalls     []failCall
}

func (f *analyzeRepoFake) Create(context.Context, *domain.Report) error { return nil }

func (f *analyzeRepoFake) GetByID(context.Context, string) (*domain.Report, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copied := *f.report
	return &copied, nil
}

func (f *analyzeRepoFake) GetByReportID(context.Context, string) (*domain.Report, error) {
	return nil, domain.ErrReportNotFound
}

func (f *analyzeRepoFake) GetOwned(context.Context, string, string) (*domain.Report, error) {
	return nil, domain.ErrReportNotFound
}

func (f *analyzeRepoFake) ListByOwner(context.Context, string) ([]domain.Report, error) {
	return nil, nil
}

func (f *analyzeRepoFake) Complete(_ context.Context, id string, result domain.AnalysisResult, confidence float64, tags []string, reportText string) (bool, error) {
	f.completeCalls = append(f.completeCalls, completeCall{id, result, confidence, tags, reportText})
	return f.completeMatch, f.completeErr
}

func (f *analyzeRepoFake) Fail(_ context.Context, id, reportText, errMessage string) (bool, error) {
	f.failCalls = append(f.failCalls, failCall{id, reportText, errMessage})
	return f.failMatch, f.failErr
}

func (f *analyzeRepoFake) SaveReportText(context.Context, string, string) error { return nil }
func (f *analyzeRepoFake) Delete(context.Context, string, string) error         { return nil }

type storageFake struct {
	openErr   error
	removeErr error
	removed   []string
	saved     []string
	saveErr   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	_, _ = io.Copy(io.Discard, data)
	f.saved = append(f.saved, key)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader("jpeg-bytes")), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return f.removeErr
}

type classifierFake struct {
	result domain.AnalysisResult
	err    error
	panics bool
}

func (f *classifierFake) Analyze(context.Context, io.Reader, string, domain.Role) (domain.AnalysisResult, error) {
	if f.panics {
		panic("classifier blew up")
	}
	if f.err != nil {
		return domain.AnalysisResult{}, f.err
	}
	return f.result, nil
}

func pendingReport(role domain.Role) *domain.Report {
	return &domain.Report{
		ID:       "11111111-aaaa-bbbb-cccc-222222222222",
		UserID:   "u-1",
		ReportID: "RPT20260307_042",
		Image:    "/api/uploads/img-1.jpg",
		Status:   domain.StatusPending,
		UserRole: role,
	}
}

func TestAnalyzeByIDDoctorKeepsTags(t *testing.T) {
	repo := &analyzeRepoFake{report: pendingReport(domain.RoleDoctor), completeMatch: true}
	uc := NewAnalyzeReportUseCase(repo, &storageFake{}, &classifierFake{
		result: domain.AnalysisResult{Caption: "Mild cardiomegaly.", Tags: []string{"Cardiomegaly"}},
	})

	if err := uc.AnalyzeByID(context.Background(), repo.report.ID); err != nil {
		t.Fatalf("AnalyzeByID() error = %v", err)
	}
	if len(repo.completeCalls) != 1 {
		t.Fatalf("expected 1 complete call, got %d", len(repo.completeCalls))
	}
	call := repo.completeCalls[0]
	if len(call.tags) != 1 || call.tags[0] != "Cardiomegaly" {
		t.Fatalf("doctor tags lost: %+v", call.tags)
	}
	if call.confidence != domain.CompletedConfidence {
		t.Fatalf("unexpected confidence %v", call.confidence)
	}
	if !strings.Contains(call.reportText, "Identified Conditions:") {
		t.Fatalf("doctor report text missing conditions:\n%s", call.reportText)
	}
}

func TestAnalyzeByIDPatientRedactsTags(t *testing.T) {
	repo := &analyzeRepoFake{report: pendingReport(domain.RolePatient), completeMatch: true}
	uc := NewAnalyzeReportUseCase(repo, &storageFake{}, &classifierFake{
		result: domain.AnalysisResult{Caption: "Clear lung fields.", Tags: []string{"Cardiomegaly"}},
	})

	if err := uc.AnalyzeByID(context.Background(), repo.report.ID); err != nil {
		t.Fatalf("AnalyzeByID() error = %v", err)
	}
	call := repo.completeCalls[0]
	if len(call.tags) != 0 {
		t.Fatalf("patient tags must be empty, got %+v", call.tags)
	}
	if strings.Contains(call.reportText, "Identified Conditions") {
		t.Fatalf("patient report text leaked conditions:\n%s", call.reportText)
	}
}

func TestAnalyzeByIDClassifierErrorMarksError(t *testing.T) {
	repo := &analyzeRepoFake{report: pendingReport(domain.RolePatient), failMatch: true}
	uc := NewAnalyzeReportUseCase(repo, &storageFake{}, &classifierFake{err: errors.New("connection refused")})

	if err := uc.AnalyzeByID(context.Background(), repo.report.ID); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.completeCalls) != 0 {
		t.Fatalf("unexpected complete call")
	}
	if len(repo.failCalls) != 1 {
		t.Fatalf("expected 1 fail call, got %d", len(repo.failCalls))
	}
	if !strings.Contains(repo.failCalls[0].reportText, "connection refused") {
		t.Fatalf("error report text missing reason:\n%s", repo.failCalls[0].reportText)
	}
}

func TestAnalyzeByIDPanicIsAbsorbed(t *testing.T) {
	repo := &analyzeRepoFake{report: pendingReport(domain.RolePatient), failMatch: true}
	uc := NewAnalyzeReportUseCase(repo, &storageFake{}, &classifierFake{panics: true})

	err := uc.AnalyzeByID(context.Background(), repo.report.ID)
	if err == nil {
		t.Fatalf("expected error from absorbed panic")
	}
	if len(repo.failCalls) != 1 {
		t.Fatalf("panic must produce the error transition, fail calls = %d", len(repo.failCalls))
	}
}

func TestAnalyzeByIDDeletedReportIsNoOp(t *testing.T) {
	repo := &analyzeRepoFake{getErr: domain.ErrReportNotFound}
	uc := NewAnalyzeReportUseCase(repo, &storageFake{}, &classifierFake{})

	if err := uc.AnalyzeByID(context.Background(), "gone"); err != nil {
		t.Fatalf("deleted report must not error, got %v", err)
	}
	if len(repo.completeCalls)+len(repo.failCalls) != 0 {
		t.Fatalf("deleted report must not be written")
	}
}

func TestAnalyzeByIDTerminalReportSkipped(t *testing.T) {
	report := pendingReport(domain.RolePatient)
	report.Status = domain.StatusCompleted
	repo := &analyzeRepoFake{report: report}
	uc := NewAnalyzeReportUseCase(repo, &storageFake{}, &classifierFake{})

	if err := uc.AnalyzeByID(context.Background(), report.ID); err != nil {
		t.Fatalf("terminal report must not error, got %v", err)
	}
	if len(repo.completeCalls)+len(repo.failCalls) != 0 {
		t.Fatalf("terminal report must not transition again")
	}
}

func TestAnalyzeByIDDeletedDuringAnalysisDropsResult(t *testing.T) {
	repo := &analyzeRepoFake{report: pendingReport(domain.RoleDoctor), completeMatch: false}
	uc := NewAnalyzeReportUseCase(repo, &storageFake{}, &classifierFake{
		result: domain.AnalysisResult{Caption: "ok"},
	})

	if err := uc.AnalyzeByID(context.Background(), repo.report.ID); err != nil {
		t.Fatalf("dropped late result must not error, got %v", err)
	}
	if len(repo.failCalls) != 0 {
		t.Fatalf("late result must not turn into an error transition")
	}
}
