package httpadapter

import (
	"net/http"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

type exportResponse struct {
	Message string         `json:"message"`
	Report  *domain.Report `json:"report"`
}

func (rt *Router) listReports(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	reports, err := rt.reportsUC.List(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	report, err := rt.reportsUC.Get(r.Context(), user, r.PathValue("reportId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) deleteReport(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := rt.reportsUC.Delete(r.Context(), user, r.PathValue("reportId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Report deleted successfully")
}

func (rt *Router) exportReport(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	report, err := rt.reportsUC.Export(r.Context(), user, r.PathValue("reportId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		Message: "Report export successful",
		Report:  report,
	})
}
