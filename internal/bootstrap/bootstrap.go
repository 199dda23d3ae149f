package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/saivathsal/radix-server/internal/auth"
	"github.com/saivathsal/radix-server/internal/config"
	"github.com/saivathsal/radix-server/internal/core/ports"
	"github.com/saivathsal/radix-server/internal/core/usecase"
	"github.com/saivathsal/radix-server/internal/infrastructure/classifier/hfspace"
	"github.com/saivathsal/radix-server/internal/infrastructure/queue/nats"
	"github.com/saivathsal/radix-server/internal/infrastructure/repository/postgres"
	"github.com/saivathsal/radix-server/internal/infrastructure/resilience"
	"github.com/saivathsal/radix-server/internal/infrastructure/storage/localfs"
)

// App wires adapters to use cases. Both binaries build the same App; the api
// serves the HTTP surface and the worker consumes the queue.
type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Users   ports.UserRepository
	Reports ports.ReportRepository
	Storage ports.ObjectStorage
	Tokens  *auth.Manager

	AuthUC    ports.AuthService
	UploadUC  ports.XRayUploader
	StatusUC  ports.StatusReader
	ReportUC  ports.ReportService
	AnalyzeUC ports.ReportAnalyzer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	reports := postgres.NewReportRepository(db)
	if err := reports.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	users := postgres.NewUserRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	classifier := hfspace.New(cfg.ClassifierEndpoint, cfg.ClassifierToken, hfspace.Options{
		Timeout:            time.Duration(cfg.AnalysisTimeoutSeconds) * time.Second,
		ResilienceExecutor: executor,
	})

	tokens, err := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	uploadUC := usecase.NewUploadXRayUseCase(usecase.UploadConfig{
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, reports, storage, queue)
	analyzeUC := usecase.NewAnalyzeReportUseCase(reports, storage, classifier)
	statusUC := usecase.NewStatusUseCase(reports)
	reportUC := usecase.NewReportsUseCase(reports, storage)
	authUC := usecase.NewAuthUseCase(users, tokens)

	return &App{
		Config: cfg,

		Queue:   queue,
		Users:   users,
		Reports: reports,
		Storage: storage,
		Tokens:  tokens,

		AuthUC:    authUC,
		UploadUC:  uploadUC,
		StatusUC:  statusUC,
		ReportUC:  reportUC,
		AnalyzeUC: analyzeUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
