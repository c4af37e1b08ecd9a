package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/EternisAI/cnc-server/internal/users"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore looks up operator accounts for login.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*users.User, error)
}

// Service handles operator authentication. Client (agent) authentication is
// the ClientAuthenticator's job; operators log in with a password and get a
// short-lived JWT instead of a permanent bearer token.
type Service struct {
	store  UserStore
	config JWTConfig
}

func NewService(store UserStore, config JWTConfig) *Service {
	return &Service{store: store, config: config}
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("query user: %w", err)
	}

	if !users.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.config, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}
