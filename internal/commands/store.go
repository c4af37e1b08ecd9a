package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed Repository.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, cmd *Command) (*Command, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO commands (client_ref, type, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		cmd.ClientRef, string(cmd.Type), textOrNull(cmd.Payload))

	var createdAt pgtype.Timestamptz
	created := *cmd
	if err := row.Scan(&created.ID, &createdAt); err != nil {
		return nil, fmt.Errorf("insert command: %w", err)
	}
	created.CreatedAt = createdAt.Time
	return &created, nil
}

// ClaimUnread stamps read_at on every unread command for the client and
// returns the claimed set. Select and stamp are a single conditional UPDATE:
// under READ COMMITTED a concurrent poller re-checks read_at IS NULL after
// acquiring the row lock, so two pollers can never claim the same command.
func (s *Store) ClaimUnread(ctx context.Context, clientRef int64) ([]Command, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE commands SET read_at = now()
		 WHERE client_ref = $1 AND read_at IS NULL
		 RETURNING id, type, payload, created_at`,
		clientRef)
	if err != nil {
		return nil, fmt.Errorf("claim commands: %w", err)
	}
	defer rows.Close()

	result := []Command{}
	for rows.Next() {
		var cmd Command
		var typ string
		var payload pgtype.Text
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&cmd.ID, &typ, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		cmd.ClientRef = clientRef
		cmd.Type = CommandType(typ)
		cmd.Payload = payload.String
		cmd.CreatedAt = createdAt.Time
		result = append(result, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING order is unspecified; deliver in creation order.
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
