package httpadapter

import (
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/saivathsal/radix-server/internal/auth"
	"github.com/saivathsal/radix-server/internal/core/ports"
	"github.com/saivathsal/radix-server/internal/observability/metrics"
)

type Router struct {
	authUC    ports.AuthService
	uploadUC  ports.XRayUploader
	statusUC  ports.StatusReader
	reportsUC ports.ReportService

	users   ports.UserRepository
	storage ports.ObjectStorage
	tokens  *auth.Manager

	metrics        *metrics.HTTPServerMetrics
	uploadLimiter  *rate.Limiter
	maxUploadBytes int64
}

type Options struct {
	Metrics *metrics.HTTPServerMetrics
	// MaxUploadBytes bounds the multipart request body on the upload route.
	MaxUploadBytes int64
	// UploadRatePerSecond caps accepted uploads across all callers; zero
	// disables the limiter.
	UploadRatePerSecond float64
	UploadBurst         int
}

const defaultMaxUploadBytes = 5 << 20

func NewRouter(
	authUC ports.AuthService,
	uploadUC ports.XRayUploader,
	statusUC ports.StatusReader,
	reportsUC ports.ReportService,
	users ports.UserRepository,
	storage ports.ObjectStorage,
	tokens *auth.Manager,
	options Options,
) *Router {
	rt := &Router{
		authUC:    authUC,
		uploadUC:  uploadUC,
		statusUC:  statusUC,
		reportsUC: reportsUC,
		users:     users,
		storage:   storage,
		tokens:    tokens,
		metrics:   options.Metrics,
	}
	rt.maxUploadBytes = options.MaxUploadBytes
	if rt.maxUploadBytes <= 0 {
		rt.maxUploadBytes = defaultMaxUploadBytes
	}
	if options.UploadRatePerSecond > 0 {
		burst := options.UploadBurst
		if burst <= 0 {
			burst = 1
		}
		rt.uploadLimiter = rate.NewLimiter(rate.Limit(options.UploadRatePerSecond), burst)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /api/auth/register", rt.register)
	mux.HandleFunc("POST /api/auth/login", rt.login)

	mux.Handle("POST /api/images/upload", rt.authenticated(rt.rateLimited(rt.uploadImage)))
	mux.Handle("GET /api/images/status/{reportId}", rt.authenticated(rt.analysisStatus))
	mux.HandleFunc("GET /api/uploads/{filename}", rt.serveImage)

	mux.Handle("GET /api/reports", rt.authenticated(rt.listReports))
	mux.Handle("GET /api/reports/{reportId}", rt.authenticated(rt.getReport))
	mux.Handle("DELETE /api/reports/{reportId}", rt.authenticated(rt.deleteReport))
	mux.Handle("POST /api/reports/{reportId}/export", rt.authenticated(rt.exportReport))

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
