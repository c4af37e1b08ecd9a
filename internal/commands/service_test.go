package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo claims under a mutex, mirroring the atomic conditional UPDATE the
// Postgres store uses.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	cmds   []Command
}

func (r *memRepo) Insert(_ context.Context, cmd *Command) (*Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *cmd
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	r.cmds = append(r.cmds, stored)
	copied := stored
	return &copied, nil
}

func (r *memRepo) ClaimUnread(_ context.Context, clientRef int64) ([]Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	claimed := []Command{}
	for i := range r.cmds {
		if r.cmds[i].ClientRef != clientRef || r.cmds[i].ReadAt != nil {
			continue
		}
		r.cmds[i].ReadAt = &now
		delivered := r.cmds[i]
		delivered.ReadAt = nil
		claimed = append(claimed, delivered)
	}
	return claimed, nil
}

func TestFetchUnreadEmpty(t *testing.T) {
	svc := NewService(&memRepo{})

	cmds, err := svc.FetchUnread(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, cmds)
	assert.Empty(t, cmds, "empty queue is a normal outcome, not an error")
}

func TestFetchUnreadDeliversOnce(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)

	first, err := svc.Create(context.Background(), 1, TypeStatus, "report in")
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), 1, TypeConfig, "interval=30")
	require.NoError(t, err)

	cmds, err := svc.FetchUnread(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, first.ID, cmds[0].ID)
	assert.Equal(t, second.ID, cmds[1].ID)

	again, err := svc.FetchUnread(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, again, "delivered commands must not be delivered again")
}

func TestFetchUnreadScopedToClient(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), 1, TypeCommand, "for client 1")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 2, TypeCommand, "for client 2")
	require.NoError(t, err)

	cmds, err := svc.FetchUnread(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "for client 1", cmds[0].Payload)
}

func TestFetchUnreadConcurrentPollersPartition(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)

	const total = 50
	for i := 0; i < total; i++ {
		_, err := svc.Create(context.Background(), 1, TypeCommand, "payload")
		require.NoError(t, err)
	}

	const pollers = 8
	results := make([][]Command, pollers)
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmds, err := svc.FetchUnread(context.Background(), 1)
			assert.NoError(t, err)
			results[i] = cmds
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]int)
	for _, cmds := range results {
		for _, cmd := range cmds {
			seen[cmd.ID]++
		}
	}
	assert.Len(t, seen, total, "every command must be delivered")
	for id, count := range seen {
		assert.Equal(t, 1, count, "command %d delivered %d times", id, count)
	}
}

func TestParseCommandType(t *testing.T) {
	for _, valid := range []string{"command", "config", "status"} {
		typ, err := ParseCommandType(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(typ))
	}

	_, err := ParseCommandType("shell")
	assert.Error(t, err)

	_, err = ParseCommandType("COMMAND")
	assert.Error(t, err, "command types are lowercase on the wire")
}
