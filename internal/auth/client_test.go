package auth

import (
	"context"
	"testing"

	"github.com/EternisAI/cnc-server/internal/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClientStore struct {
	byToken map[string]*clients.Client
}

func (s *memClientStore) FindActiveByToken(_ context.Context, token string) (*clients.Client, error) {
	c, ok := s.byToken[token]
	if !ok || c.Pending {
		return nil, clients.ErrClientNotFound
	}
	return c, nil
}

func TestAuthenticateApprovedClient(t *testing.T) {
	store := &memClientStore{byToken: map[string]*clients.Client{
		"good-token": {ID: 7, ClientID: "abc-123", Pending: false, Token: "good-token"},
	}}
	a := NewClientAuthenticator(store)

	identity, err := a.Authenticate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, int64(7), identity.ID)
	assert.Equal(t, "abc-123", identity.ClientID)
}

func TestAuthenticatePendingClientRejected(t *testing.T) {
	// A freshly issued token must not authenticate until the client is
	// approved.
	store := &memClientStore{byToken: map[string]*clients.Client{
		"fresh-token": {ID: 7, ClientID: "abc-123", Pending: true, Token: "fresh-token"},
	}}
	a := NewClientAuthenticator(store)

	_, err := a.Authenticate(context.Background(), "fresh-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateUnknownToken(t *testing.T) {
	a := NewClientAuthenticator(&memClientStore{byToken: map[string]*clients.Client{}})

	_, err := a.Authenticate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateEmptyToken(t *testing.T) {
	a := NewClientAuthenticator(&memClientStore{byToken: map[string]*clients.Client{}})

	_, err := a.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRejectionIsUniform(t *testing.T) {
	store := &memClientStore{byToken: map[string]*clients.Client{
		"pending-token": {ID: 1, ClientID: "p", Pending: true, Token: "pending-token"},
	}}
	a := NewClientAuthenticator(store)

	_, pendingErr := a.Authenticate(context.Background(), "pending-token")
	_, unknownErr := a.Authenticate(context.Background(), "unknown-token")
	assert.Equal(t, pendingErr, unknownErr, "pending and unknown must be indistinguishable")
}
