package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clientColumns = "id, client_id, name, hostname, public_key, private_key, pending, token, created_at"

// Store is the Postgres-backed Repository.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindByClientID(ctx context.Context, clientID string) (*Client, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE client_id = $1", clientID)
	return scanClient(row)
}

func (s *Store) FindByID(ctx context.Context, id int64) (*Client, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE id = $1", id)
	return scanClient(row)
}

// FindActiveByToken resolves a bearer token to a client, skipping clients
// still pending approval. Used by the authentication layer.
func (s *Store) FindActiveByToken(ctx context.Context, token string) (*Client, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE token = $1 AND pending = false", token)
	return scanClient(row)
}

func (s *Store) Insert(ctx context.Context, client *Client) (*Client, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO clients (client_id, name, hostname, pending, token)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+clientColumns,
		client.ClientID, textOrNull(client.Name), textOrNull(client.Hostname),
		client.Pending, client.Token)

	created, err := scanClient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrClientIDTaken
		}
		return nil, err
	}
	return created, nil
}

func (s *Store) SetPending(ctx context.Context, id int64, pending bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE clients SET pending = $2 WHERE id = $1", id, pending)
	if err != nil {
		return fmt.Errorf("update pending: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (s *Store) UpdateKeys(ctx context.Context, id int64, publicKey, privateKey string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE clients SET public_key = $2, private_key = $3 WHERE id = $1",
		id, textOrNull(publicKey), textOrNull(privateKey))
	if err != nil {
		return fmt.Errorf("update keys: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Client, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+clientColumns+" FROM clients ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var result []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *client)
	}
	return result, rows.Err()
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var name, hostname, publicKey, privateKey pgtype.Text
	var createdAt pgtype.Timestamptz

	err := row.Scan(&c.ID, &c.ClientID, &name, &hostname, &publicKey, &privateKey,
		&c.Pending, &c.Token, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}

	c.Name = name.String
	c.Hostname = hostname.String
	c.PublicKey = publicKey.String
	c.PrivateKey = privateKey.String
	c.CreatedAt = createdAt.Time
	return &c, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
