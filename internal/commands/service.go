package commands

import (
	"context"
	"fmt"
	"log/slog"
)

// Repository is the store contract for the tasking queue. ClaimUnread must
// select and stamp atomically so that concurrent pollers for the same client
// partition the unread set without overlap.
type Repository interface {
	Insert(ctx context.Context, cmd *Command) (*Command, error)
	ClaimUnread(ctx context.Context, clientRef int64) ([]Command, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create queues a command for a client. The payload is opaque to the server.
func (s *Service) Create(ctx context.Context, clientRef int64, typ CommandType, payload string) (*Command, error) {
	cmd, err := s.repo.Insert(ctx, &Command{
		ClientRef: clientRef,
		Type:      typ,
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("insert command: %w", err)
	}
	slog.Info("Command queued", "id", cmd.ID, "client_ref", clientRef, "type", typ)
	return cmd, nil
}

// FetchUnread returns every command queued for the client that has not been
// delivered yet, in creation order, and marks them delivered in the same
// step. Each command is handed out at most once across all calls; an empty
// queue yields an empty slice.
func (s *Service) FetchUnread(ctx context.Context, clientRef int64) ([]Command, error) {
	cmds, err := s.repo.ClaimUnread(ctx, clientRef)
	if err != nil {
		return nil, fmt.Errorf("claim commands: %w", err)
	}
	if len(cmds) > 0 {
		slog.Info("Commands delivered", "client_ref", clientRef, "count", len(cmds))
	}
	return cmds, nil
}
