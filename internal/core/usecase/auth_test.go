package usecase

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

type userRepoFake struct {
	byUsername map[string]*domain.User
	createErr  error
	created    []*domain.User
}

func newUserRepoFake() *userRepoFake {
	return &userRepoFake{byUsername: map[string]*domain.User{}}
}

func (f *userRepoFake) Create(_ context.Context, user *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byUsername[user.Username]; exists {
		return domain.WrapError(domain.ErrConflict, "insert user", domain.ErrConflict)
	}
	f.byUsername[user.Username] = user
	f.created = append(f.created, user)
	return nil
}

func (f *userRepoFake) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *userRepoFake) GetByID(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

type issuerFake struct{ err error }

func (f issuerFake) Issue(user *domain.User) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-for-" + user.Username, nil
}

func TestRegisterAndLogin(t *testing.T) {
	users := newUserRepoFake()
	uc := NewAuthUseCase(users, issuerFake{})

	user, token, err := uc.Register(context.Background(), "drgrey", "grey@example.com", "s3cret", domain.RoleDoctor)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if token == "" || user.Role != domain.RoleDoctor {
		t.Fatalf("unexpected register result: %+v token=%q", user, token)
	}
	if user.PasswordHash == "s3cret" {
		t.Fatalf("password stored in clear")
	}

	loggedIn, token, err := uc.Login(context.Background(), "drgrey", "s3cret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.ID != user.ID || token == "" {
		t.Fatalf("unexpected login result: %+v", loggedIn)
	}
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	users := newUserRepoFake()
	uc := NewAuthUseCase(users, issuerFake{})

	if _, _, err := uc.Register(context.Background(), "drgrey", "", "pw", domain.RolePatient); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	_, _, err := uc.Register(context.Background(), "drgrey", "", "pw", domain.RolePatient)
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	uc := NewAuthUseCase(newUserRepoFake(), issuerFake{})

	_, _, err := uc.Register(context.Background(), "x", "", "pw", domain.Role("admin"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	users := newUserRepoFake()
	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	users.byUsername["drgrey"] = &domain.User{ID: "u-1", Username: "drgrey", PasswordHash: string(hash)}
	uc := NewAuthUseCase(users, issuerFake{})

	_, _, err := uc.Login(context.Background(), "drgrey", "wrong")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginUnknownUserUnauthorized(t *testing.T) {
	uc := NewAuthUseCase(newUserRepoFake(), issuerFake{})

	_, _, err := uc.Login(context.Background(), "ghost", "pw")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
