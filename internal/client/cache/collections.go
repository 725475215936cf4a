package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/msavina/craftmarket/internal/client/models"
	"github.com/msavina/craftmarket/internal/dbx"
	"github.com/msavina/craftmarket/internal/logging"
)

// Collections serializes whole collections in and out of the KV slot.
// Keys are namespaced by user identity ("<collection>_<userID>") so
// switching accounts on one device never leaks another user's items.
//
// Writes are always full-collection overwrites; there are no partial or
// merge writes.
type Collections struct {
	db  *sql.DB
	log logging.Logger
}

func NewCollections(db *sql.DB, log logging.Logger) *Collections {
	return &Collections{db: db, log: log}
}

// Key builds the storage key for one user's collection.
func Key(collection, userID string) string {
	return collection + "_" + userID
}

// Load reads the cached collection. It reports ok=false for an absent
// key or an unreadable payload; callers degrade to an empty collection.
func (c *Collections) Load(ctx context.Context, collection, userID string) ([]models.CollectionItem, bool) {
	data, err := NewKV(c.db).Get(ctx, Key(collection, userID))
	if err != nil {
		c.log.Warn(ctx, "fallback read failed", "collection", collection, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var items []models.CollectionItem
	if err := json.Unmarshal(data, &items); err != nil {
		c.log.Warn(ctx, "fallback payload unreadable", "collection", collection, "error", err)
		return nil, false
	}
	return items, true
}

// Save overwrites the cached collection with items. Delete+insert runs
// in one transaction so a concurrent reader never observes a half-written
// slot.
func (c *Collections) Save(ctx context.Context, collection, userID string, items []models.CollectionItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode collection %q: %w", collection, err)
	}

	key := Key(collection, userID)
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fallback WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to drop fallback[%s]: %w", key, err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fallback (key, value, updated_at) VALUES (?, ?, ?)`,
			key, data, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to write fallback[%s]: %w", key, err)
		}
		return nil
	})
}

// Drop removes one user's cached collection.
func (c *Collections) Drop(ctx context.Context, collection, userID string) error {
	return NewKV(c.db).Delete(ctx, Key(collection, userID))
}
