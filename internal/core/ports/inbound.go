package ports

import (
	"context"
	"io"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

// XRayUploader is the inbound contract for the synchronous upload path.
type XRayUploader interface {
	Upload(ctx context.Context, user *domain.User, filename, mimeType string, size int64, body io.Reader) (*domain.Report, error)
}

// ReportAnalyzer is the inbound contract for asynchronous analysis.
type ReportAnalyzer interface {
	AnalyzeByID(ctx context.Context, reportID string) error
}

// StatusReader serves the polling endpoint.
type StatusReader interface {
	Status(ctx context.Context, user *domain.User, reportID string) (*domain.Report, error)
}

// ReportService is the owner-scoped query/delete/export surface.
type ReportService interface {
	List(ctx context.Context, user *domain.User) ([]domain.Report, error)
	Get(ctx context.Context, user *domain.User, reportID string) (*domain.Report, error)
	Delete(ctx context.Context, user *domain.User, reportID string) error
	Export(ctx context.Context, user *domain.User, reportID string) (*domain.Report, error)
}

// AuthService registers and authenticates identities.
type AuthService interface {
	Register(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, string, error)
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
}
