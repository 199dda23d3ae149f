package domain

import "time"

type ReportStatus string

const (
	StatusPending   ReportStatus = "pending"
	StatusCompleted ReportStatus = "completed"
	StatusError     ReportStatus = "error"
)

// Terminal reports true for states that permit no further transition.
func (s ReportStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

type Role string

const (
	RolePatient Role = "user"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// PendingClassLabel is the placeholder class until analysis finishes.
const PendingClassLabel = "Pending Analysis"

// ErrorClassLabel is written on the pending -> error transition.
const ErrorClassLabel = "Error analyzing image"

// CompletedConfidence is the fixed score assigned to successful analyses.
// The remote classifier does not report a calibrated score.
const CompletedConfidence = 0.95

// Report tracks one X-ray upload through its analysis lifecycle.
// ReportID is the public, human-readable identifier; ID is the internal key.
// JSON field names are part of the API: report consumers read camelCase.
type Report struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user"`
	ReportID   string       `json:"reportId"`
	Image      string       `json:"image"`
	ClassLabel string       `json:"class"`
	Confidence float64      `json:"confidence"`
	Tags       []string     `json:"tags"`
	Status     ReportStatus `json:"status"`
	UserRole   Role         `json:"userType"`
	ReportText string       `json:"reportText,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// AnalysisResult is the validated payload of one classifier call.
type AnalysisResult struct {
	Caption string   `json:"caption"`
	Tags    []string `json:"tags"`
}
