package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/EternisAI/cnc-server/internal/clients"
)

// HeaderName is the request header clients present their token in.
const HeaderName = "X-Rust-Auth"

// ErrUnauthenticated covers every client rejection: missing token, unknown
// token, or a client still pending approval. The cases are deliberately
// indistinguishable so callers cannot probe for enrolled-but-unapproved IDs.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the immutable view of an authenticated client handed to
// downstream handlers.
type Identity struct {
	ID       int64
	ClientID string
}

// ClientStore is the single lookup the authenticator needs.
type ClientStore interface {
	FindActiveByToken(ctx context.Context, token string) (*clients.Client, error)
}

type ClientAuthenticator struct {
	store ClientStore
}

func NewClientAuthenticator(store ClientStore) *ClientAuthenticator {
	return &ClientAuthenticator{store: store}
}

// Authenticate resolves a raw bearer token to an approved client. The lookup
// matches token and approval state together, is read-only, and never logs the
// token value.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, rawToken string) (Identity, error) {
	if rawToken == "" {
		return Identity{}, ErrUnauthenticated
	}

	client, err := a.store.FindActiveByToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, fmt.Errorf("token lookup: %w", err)
	}

	return Identity{ID: client.ID, ClientID: client.ClientID}, nil
}
