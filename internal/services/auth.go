package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

const (
	bcryptCost        = 12
	MinPasswordLength = 5
)

type userByEmail interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthService struct {
	users userByEmail
}

func NewAuthService(users userByEmail) *AuthService {
	return &AuthService{users: users}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", newError(ErrPasswordTooShort, "password",
			"Ensure this field has at least %d characters.", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Authenticate resolves email/password credentials to a user. Unknown emails
// and wrong passwords fail the same way.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
