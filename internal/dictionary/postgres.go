package dictionary

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the user_dictionary table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS user_dictionary (
    word       TEXT PRIMARY KEY,
    added_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL table. The full word set
// is mirrored in memory so Contains stays a synchronous map lookup; Add
// writes through to the database before returning.
type PostgresStore struct {
	mu    sync.RWMutex
	db    DB
	words map[string]struct{}
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgresStore using the given connection or
// pool. Call [PostgresStore.Migrate] once before the first query.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{
		db:    db,
		words: make(map[string]struct{}),
	}
}

// Migrate executes the [Schema] DDL, creating the user_dictionary table if
// it does not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("dictionary: migrate: %w", err)
	}
	return nil
}

// Load implements [Store].
func (s *PostgresStore) Load(ctx context.Context) error {
	rows, err := s.db.Query(ctx, `SELECT word FROM user_dictionary`)
	if err != nil {
		return fmt.Errorf("dictionary: load: %w", err)
	}
	defer rows.Close()

	words := make(map[string]struct{})
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return fmt.Errorf("dictionary: scan: %w", err)
		}
		words[strings.ToLower(w)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("dictionary: load rows: %w", err)
	}

	s.mu.Lock()
	s.words = words
	s.mu.Unlock()
	return nil
}

// Contains implements [Store].
func (s *PostgresStore) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[strings.ToLower(word)]
	return ok
}

// Add implements [Store].
func (s *PostgresStore) Add(ctx context.Context, word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil
	}

	s.mu.RLock()
	_, exists := s.words[word]
	s.mu.RUnlock()
	if exists {
		return nil
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO user_dictionary (word) VALUES ($1) ON CONFLICT (word) DO NOTHING`,
		word,
	)
	if err != nil {
		return fmt.Errorf("dictionary: add %q: %w", word, err)
	}

	s.mu.Lock()
	s.words[word] = struct{}{}
	s.mu.Unlock()
	return nil
}
