package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	token, err := m.Issue(&domain.User{ID: "u-1", Username: "drgrey", Role: domain.RoleDoctor})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "u-1" || claims.Role != string(domain.RoleDoctor) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, err := NewManager("test-secret", time.Nanosecond)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	token, err := m.Issue(&domain.User{ID: "u-1", Username: "drgrey", Role: domain.RolePatient})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer, _ := NewManager("secret-a", time.Hour)
	verifier, _ := NewManager("secret-b", time.Hour)

	token, err := issuer.Issue(&domain.User{ID: "u-1", Username: "drgrey"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestExtractBearer(t *testing.T) {
	token, err := ExtractBearer("Bearer abc.def.ghi")
	if err != nil || token != "abc.def.ghi" {
		t.Fatalf("ExtractBearer() = %q, %v", token, err)
	}
	for _, header := range []string{"", "abc", "Basic abc", "Bearer "} {
		if _, err := ExtractBearer(header); err == nil {
			t.Errorf("expected %q to be rejected", header)
		}
	}
}
