package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saivathsal/radix-server/internal/bootstrap"
	"github.com/saivathsal/radix-server/internal/config"
	"github.com/saivathsal/radix-server/internal/observability/logging"
	"github.com/saivathsal/radix-server/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	analysisTimeout := time.Duration(cfg.AnalysisTimeoutSeconds+30) * time.Second

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeReportCreated(ctx, func(handlerCtx context.Context, reportID string) error {
		if report, lookupErr := app.Reports.GetByID(handlerCtx, reportID); lookupErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(report.CreatedAt))
		}

		workerMetrics.StartAnalysis()
		start := time.Now()

		analyzeCtx, cancel := context.WithTimeout(handlerCtx, analysisTimeout)
		defer cancel()
		analyzeErr := app.AnalyzeUC.AnalyzeByID(analyzeCtx, reportID)

		workerMetrics.FinishAnalysis("worker", time.Since(start), analyzeErr)
		return analyzeErr
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
