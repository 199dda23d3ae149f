package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/saivathsal/radix-server/internal/adapters/http"
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
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(
		app.AuthUC,
		app.UploadUC,
		app.StatusUC,
		app.ReportUC,
		app.Users,
		app.Storage,
		app.Tokens,
		httpadapter.Options{
			Metrics:             httpMetrics,
			MaxUploadBytes:      cfg.MaxUploadBytes,
			UploadRatePerSecond: cfg.UploadRatePerSecond,
			UploadBurst:         cfg.UploadBurst,
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/", router.Handler())
	mux.Handle("/metrics", httpMetrics.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
