package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Backend is a kv.Backend over the entries table.
type Backend struct {
	db *sql.DB
}

var _ kv.Backend = (*Backend)(nil)

// NewBackend wraps an initialized database.
func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// Get implements kv.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	return getEntry(ctx, b.db, key)
}

// Put implements kv.Backend.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	return putEntry(ctx, b.db, key, value)
}

// Delete implements kv.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PutMany implements kv.Backend. All entries are written in one transaction.
func (b *Backend) PutMany(ctx context.Context, entries map[string][]byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for key, value := range entries {
		if err := putEntry(ctx, tx, key, value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func getEntry(ctx context.Context, q Querier, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func putEntry(ctx context.Context, q Querier, key string, value []byte) error {
	query := `
		INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if value == nil {
		value = []byte{}
	}
	if _, err := q.ExecContext(ctx, query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
