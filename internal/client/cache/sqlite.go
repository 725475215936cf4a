package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msavina/craftmarket/internal/dbx"
)

// KV is the raw key-value slot over the fallback table. It works with
// either *sql.DB or *sql.Tx via dbx.DBTX.
type KV struct {
	db dbx.DBTX
}

func NewKV(db dbx.DBTX) *KV {
	return &KV{db: db}
}

// Get returns the stored value, or (nil, nil) when the key is absent.
func (r *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM fallback WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fallback[%s]: %w", key, err)
	}
	return value, nil
}

// Set overwrites the slot for key with value.
func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fallback (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set fallback[%s]: %w", key, err)
	}
	return nil
}

func (r *KV) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM fallback WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete fallback[%s]: %w", key, err)
	}
	return nil
}

func (r *KV) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM fallback`)
	if err != nil {
		return fmt.Errorf("failed to clear fallback: %w", err)
	}
	return nil
}
