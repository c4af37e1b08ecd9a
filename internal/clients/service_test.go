package clients

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo mimics the store's uniqueness guarantee on client_id: Insert is
// atomic with respect to concurrent inserts, exactly like the unique index.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	byCID  map[string]*Client
	byID   map[int64]*Client
}

func newMemRepo() *memRepo {
	return &memRepo{
		byCID: make(map[string]*Client),
		byID:  make(map[int64]*Client),
	}
}

func (r *memRepo) FindByClientID(_ context.Context, clientID string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byCID[clientID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, ErrClientNotFound
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, ErrClientNotFound
}

func (r *memRepo) Insert(_ context.Context, client *Client) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCID[client.ClientID]; ok {
		return nil, ErrClientIDTaken
	}
	r.nextID++
	stored := *client
	stored.ID = r.nextID
	r.byCID[stored.ClientID] = &stored
	r.byID[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *memRepo) SetPending(_ context.Context, id int64, pending bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return ErrClientNotFound
	}
	c.Pending = pending
	return nil
}

func (r *memRepo) UpdateKeys(_ context.Context, id int64, publicKey, privateKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return ErrClientNotFound
	}
	c.PublicKey = publicKey
	c.PrivateKey = privateKey
	return nil
}

func (r *memRepo) List(_ context.Context) ([]Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Client, 0, len(r.byID))
	for id := int64(1); id <= r.nextID; id++ {
		if c, ok := r.byID[id]; ok {
			result = append(result, *c)
		}
	}
	return result, nil
}

func TestRegisterNewClient(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	token, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	stored, err := repo.FindByClientID(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.True(t, stored.Pending, "new clients must start pending")
	assert.Equal(t, token, stored.Token)
	assert.Equal(t, "bot1", stored.Name)
	assert.Equal(t, "h1", stored.Hostname)
}

func TestRegisterIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	first, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
	require.NoError(t, err)

	second, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegisterDoesNotResetApproval(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	token, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
	require.NoError(t, err)

	stored, err := repo.FindByClientID(context.Background(), "abc-123")
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), stored.ID))

	again, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
	require.NoError(t, err)
	assert.Equal(t, token, again)

	stored, err = repo.FindByClientID(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.False(t, stored.Pending, "re-registration must not reset approval")
}

func TestRegisterTokensUnique(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	seen := make(map[string]bool)
	for _, cid := range []string{"client-a", "client-b", "client-c", "client-d"} {
		token, err := svc.Register(context.Background(), "bot", "host-1", cid)
		require.NoError(t, err)
		assert.False(t, seen[token], "token issued twice: %s", token)
		seen[token] = true
	}
}

// raceRepo simulates losing the insert race: the initial lookup misses, the
// insert hits the uniqueness constraint, and the follow-up lookup sees the
// winner's row.
type raceRepo struct {
	*memRepo
	missedOnce bool
}

func (r *raceRepo) FindByClientID(ctx context.Context, clientID string) (*Client, error) {
	if !r.missedOnce {
		r.missedOnce = true
		return nil, ErrClientNotFound
	}
	return r.memRepo.FindByClientID(ctx, clientID)
}

func TestRegisterLosesInsertRace(t *testing.T) {
	repo := &raceRepo{memRepo: newMemRepo()}

	// The "winner" enrolls between our lookup and our insert.
	winner := &Client{ClientID: "abc-123", Pending: true, Token: "winner-token"}
	_, err := repo.memRepo.Insert(context.Background(), winner)
	require.NoError(t, err)

	svc := NewService(repo)
	token, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "winner-token", token, "loser must return the winner's token")

	list, err := repo.memRepo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegisterConcurrentSameClientID(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	const goroutines = 16
	tokens := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Equal(t, tokens[0], tokens[i])
	}

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1, "concurrent enrollment must create exactly one client")
}

func TestApproveUnknownClient(t *testing.T) {
	svc := NewService(newMemRepo())
	err := svc.Approve(context.Background(), 42)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestUpdateKeys(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), "bot1", "h1", "abc-123")
	require.NoError(t, err)

	stored, err := repo.FindByClientID(context.Background(), "abc-123")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateKeys(context.Background(), stored.ID, "pub", "priv"))

	stored, err = repo.FindByClientID(context.Background(), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "pub", stored.PublicKey)
	assert.Equal(t, "priv", stored.PrivateKey)
}
