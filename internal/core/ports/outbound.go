package ports

import (
	"context"
	"io"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

// ReportRepository persists and reads report lifecycle state.
type ReportRepository interface {
	// Create inserts the report. A report_id collision returns an
	// ErrConflict-kinded error so callers can retry with a fresh suffix.
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	GetByReportID(ctx context.Context, reportID string) (*domain.Report, error)
	GetOwned(ctx context.Context, userID, reportID string) (*domain.Report, error)
	ListByOwner(ctx context.Context, userID string) ([]domain.Report, error)
	// Complete applies the pending -> completed transition. The returned bool
	// is false when no pending row matched (deleted or already terminal).
	Complete(ctx context.Context, id string, result domain.AnalysisResult, confidence float64, tags []string, reportText string) (bool, error)
	// Fail applies the pending -> error transition, same matching semantics.
	Fail(ctx context.Context, id, reportText, errMessage string) (bool, error)
	// SaveReportText backfills report_text only when it is still empty.
	SaveReportText(ctx context.Context, id, reportText string) error
	Delete(ctx context.Context, userID, reportID string) error
}

// UserRepository persists identities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ObjectStorage stores uploaded X-ray images.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue hands freshly created reports to the analysis worker.
type MessageQueue interface {
	PublishReportCreated(ctx context.Context, reportID string) error
	SubscribeReportCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// ImageClassifier calls the external chest X-ray analysis service.
type ImageClassifier interface {
	Analyze(ctx context.Context, image io.Reader, filename string, role domain.Role) (domain.AnalysisResult, error)
}

// TokenIssuer mints bearer tokens for authenticated identities.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}
