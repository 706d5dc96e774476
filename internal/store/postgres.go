package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a RecordStore driver that keeps all collections in a single
// records table with a jsonb payload column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore and ensures its table exists.
func NewPostgresStore(ctx context.Context, db *pgxpool.Pool) (*PostgresStore, error) {
	_, err := db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       JSONB NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
	)
	if err != nil {
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var data json.RawMessage
	err := s.db.QueryRow(ctx,
		`SELECT data FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record %s/%s: %w", collection, id, err)
	}
	return data, nil
}

// List returns every record in the collection keyed by id.
func (s *PostgresStore) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, data FROM records WHERE collection = $1`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var data json.RawMessage
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out[id] = data
	}
	return out, rows.Err()
}

// Upsert creates or replaces the record. Serialization failures map to
// ErrConflict so callers can retry.
func (s *PostgresStore) Upsert(ctx context.Context, collection, id string, record json.RawMessage) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO records (collection, id, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
		collection, id, record,
	)
	if err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("upsert record %s/%s: %w", collection, id, ErrConflict)
		}
		return fmt.Errorf("upsert record %s/%s: %w", collection, id, err)
	}
	return nil
}

// Remove deletes the record if present.
func (s *PostgresStore) Remove(ctx context.Context, collection, id string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("remove record %s/%s: %w", collection, id, err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure ||
		pgErr.Code == pgerrcode.DeadlockDetected
}
