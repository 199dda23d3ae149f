package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/saivathsal/radix-server/internal/core/domain"
	"github.com/saivathsal/radix-server/internal/core/ports"
)

type AuthUseCase struct {
	users  ports.UserRepository
	tokens ports.TokenIssuer
}

func NewAuthUseCase(users ports.UserRepository, tokens ports.TokenIssuer) *AuthUseCase {
	return &AuthUseCase{users: users, tokens: tokens}
}

func (uc *AuthUseCase) Register(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || password == "" {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "register",
			fmt.Errorf("username and password are required"))
	}
	if role == "" {
		role = domain.RolePatient
	}
	if !role.Valid() {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "register",
			fmt.Errorf("unknown role %q", role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if domain.IsKind(err, domain.ErrConflict) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := uc.tokens.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := uc.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if domain.IsKind(err, domain.ErrUserNotFound) {
			return nil, "", domain.WrapError(domain.ErrUnauthorized, "login",
				fmt.Errorf("invalid credentials"))
		}
		return nil, "", fmt.Errorf("fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.WrapError(domain.ErrUnauthorized, "login",
			fmt.Errorf("invalid credentials"))
	}

	token, err := uc.tokens.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}
