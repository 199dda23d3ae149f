package domain

import (
	"strings"
	"testing"
	"time"
)

func TestNewReportIDShape(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	id := NewReportID(now)
	if !ValidReportID(id) {
		t.Fatalf("generated id %q does not match the public shape", id)
	}
	if !strings.HasPrefix(id, "RPT20260307_") {
		t.Fatalf("expected date prefix RPT20260307_, got %q", id)
	}
}

func TestValidReportIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "RPT2026_001", "RPT20260307_1", "XPT20260307_001", "RPT20260307_0011"} {
		if ValidReportID(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusError.Terminal() {
		t.Fatalf("completed and error must be terminal")
	}
}

func TestRenderReportTextDoctorListsConditions(t *testing.T) {
	text := RenderReportText(AnalysisResult{
		Caption: "Mild cardiomegaly without acute infiltrate.",
		Tags:    []string{"Cardiomegaly", "Atelectasis"},
	}, RoleDoctor)

	if !strings.Contains(text, "Identified Conditions:") {
		t.Fatalf("doctor report missing conditions section:\n%s", text)
	}
	if !strings.Contains(text, "- Cardiomegaly") || !strings.Contains(text, "- Atelectasis") {
		t.Fatalf("doctor report missing tag entries:\n%s", text)
	}
}

func TestRenderReportTextDoctorWithoutTags(t *testing.T) {
	text := RenderReportText(AnalysisResult{Caption: "Clear lung fields."}, RoleDoctor)
	if !strings.Contains(text, "No specific conditions identified") {
		t.Fatalf("expected empty-tags fallback, got:\n%s", text)
	}
}

func TestRenderReportTextPatientOmitsConditions(t *testing.T) {
	text := RenderReportText(AnalysisResult{
		Caption: "Clear lung fields.",
		Tags:    []string{"Cardiomegaly"},
	}, RolePatient)

	if strings.Contains(text, "Identified Conditions") {
		t.Fatalf("patient report must not contain the conditions section:\n%s", text)
	}
	if !strings.Contains(text, "reviewed by a medical professional") {
		t.Fatalf("patient report missing AI caveat:\n%s", text)
	}
}

func TestRenderErrorReportTextEmbedsReason(t *testing.T) {
	text := RenderErrorReportText("classifier unreachable")
	if !strings.Contains(text, "classifier unreachable") {
		t.Fatalf("error report missing reason:\n%s", text)
	}
}
