package httpadapter

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

// multipartSlack leaves room for the multipart envelope around an image that
// is itself at the size limit.
const multipartSlack = 64 << 10

type uploadResponse struct {
	Message  string `json:"message"`
	ReportID string `json:"reportId"`
	ImageURL string `json:"imageUrl"`
}

type statusResponse struct {
	Status     domain.ReportStatus `json:"status"`
	ClassLabel string              `json:"class"`
	Confidence float64             `json:"confidence"`
	Tags       []string            `json:"tags"`
	ReportText string              `json:"reportText"`
	Image      string              `json:"image"`
}

func (rt *Router) uploadImage(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes+multipartSlack)
	file, header, err := r.FormFile("image")
	if err != nil {
		// An over-limit body surfaces here through the multipart parser,
		// not as a missing part.
		if errors.As(err, new(*http.MaxBytesError)) {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	report, err := rt.uploadUC.Upload(r.Context(), user, header.Filename, mimeType, header.Size, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload("api", string(user.Role), header.Size)
	}
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:  "Image uploaded successfully",
		ReportID: report.ReportID,
		ImageURL: report.Image,
	})
}

func (rt *Router) analysisStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	report, err := rt.statusUC.Status(r.Context(), user, r.PathValue("reportId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordStatusPoll("api", string(report.Status))
	}
	tags := report.Tags
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:     report.Status,
		ClassLabel: report.ClassLabel,
		Confidence: report.Confidence,
		Tags:       tags,
		ReportText: report.ReportText,
		Image:      report.Image,
	})
}

// serveImage streams a stored upload. The route is public so report viewers
// can embed the image URL directly; keys are unguessable UUID names.
func (rt *Router) serveImage(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	object, err := rt.storage.Open(r.Context(), filename)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "not found")
		return
	}
	defer object.Close()

	if ctype := mime.TypeByExtension(filepath.Ext(filename)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	_, _ = io.Copy(w, object)
}
