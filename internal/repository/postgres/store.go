package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/schoolwear/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for the kv_entries table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// KeyValueStore implements repository.KeyValueStore on the kv_entries table.
type KeyValueStore struct {
	pool      database.DBTX
	namespace string
}

// NewKeyValueStore creates a PostgreSQL-backed store scoped to namespace.
func NewKeyValueStore(pool database.DBTX, namespace string) *KeyValueStore {
	return &KeyValueStore{pool: pool, namespace: namespace}
}

// Get retrieves the value for key. pgx.ErrNoRows is reported as not found.
func (s *KeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`

	var value string
	if err := s.pool.QueryRow(ctx, query, s.namespace, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select kv entry %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *KeyValueStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_entries (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, s.namespace, key, value); err != nil {
		return fmt.Errorf("upsert kv entry %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *KeyValueStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`

	if _, err := s.pool.Exec(ctx, query, s.namespace, key); err != nil {
		return fmt.Errorf("delete kv entry %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry in the namespace.
func (s *KeyValueStore) Clear(ctx context.Context) error {
	query := `DELETE FROM kv_entries WHERE namespace = $1`

	if _, err := s.pool.Exec(ctx, query, s.namespace); err != nil {
		return fmt.Errorf("clear kv namespace %s: %w", s.namespace, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *KeyValueStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
