// Package auth issues and validates sessions for chatter users.
// It is the authentication collaborator of the realtime hub: the hub only
// ever consumes "token in, verified user id out".
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mfjones/chatter/internal/store"
)

// ErrInvalidCredentials is returned when email or password don't match.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users     *store.UserStore
	jwtSecret string
}

func NewService(users *store.UserStore, jwtSecret string) *Service {
	return &Service{users: users, jwtSecret: jwtSecret}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, username, password string) (*store.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, username, string(hash))
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the password and returns the user with a fresh access token.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, *TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.EncryptedPassword), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return user, &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   AccessTokenExpiry,
	}, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*store.User, error) {
	return s.users.Get(ctx, id)
}
