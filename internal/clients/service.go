package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientIDTaken  = errors.New("client ID already registered")
)

// Repository is the narrow store contract the registry needs. The pgx-backed
// implementation lives in store.go; tests substitute an in-memory one.
type Repository interface {
	FindByClientID(ctx context.Context, clientID string) (*Client, error)
	FindByID(ctx context.Context, id int64) (*Client, error)
	Insert(ctx context.Context, client *Client) (*Client, error)
	SetPending(ctx context.Context, id int64, pending bool) error
	UpdateKeys(ctx context.Context, id int64, publicKey, privateKey string) error
	List(ctx context.Context) ([]Client, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register enrolls a client and returns its bearer token. Registration is
// idempotent on clientID: a known client gets its existing token back and its
// approval state is left alone. Inputs are validated at the HTTP boundary.
func (s *Service) Register(ctx context.Context, name, hostname, clientID string) (string, error) {
	existing, err := s.repo.FindByClientID(ctx, clientID)
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, ErrClientNotFound) {
		return "", fmt.Errorf("lookup client: %w", err)
	}

	client := &Client{
		ClientID: clientID,
		Name:     name,
		Hostname: hostname,
		Pending:  true,
		Token:    uuid.NewString(),
	}

	created, err := s.repo.Insert(ctx, client)
	if err != nil {
		if errors.Is(err, ErrClientIDTaken) {
			// Lost the insert race against a concurrent registration of the
			// same clientID. The winner's token stands.
			winner, ferr := s.repo.FindByClientID(ctx, clientID)
			if ferr != nil {
				return "", fmt.Errorf("fetch winning registration: %w", ferr)
			}
			return winner.Token, nil
		}
		return "", fmt.Errorf("insert client: %w", err)
	}

	slog.Info("Client registered", "client_id", clientID, "id", created.ID, "hostname", hostname)
	return created.Token, nil
}

// Approve clears the pending flag so the client's token starts authenticating.
func (s *Service) Approve(ctx context.Context, id int64) error {
	if err := s.repo.SetPending(ctx, id, false); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("approve client: %w", err)
	}
	slog.Info("Client approved", "id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

func (s *Service) List(ctx context.Context) ([]Client, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return list, nil
}

// UpdateKeys stores the key material a client reports after enrollment. The
// server treats both values as opaque.
func (s *Service) UpdateKeys(ctx context.Context, id int64, publicKey, privateKey string) error {
	if err := s.repo.UpdateKeys(ctx, id, publicKey, privateKey); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("update keys: %w", err)
	}
	return nil
}
