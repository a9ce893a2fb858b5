package settings

import (
	"context"

	"github.com/maisonlune/boutique-api/internal/db"
)

// Store persists settings blobs in the key-value settings table.
type Store struct {
	db db.DBTX
}

// NewStore constructs a settings store.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{db: dbtx}
}

const getSetting = `
SELECT value FROM settings WHERE key = $1
`

// Get returns the raw JSON blob for a key. pgx.ErrNoRows is passed through so
// callers can treat absence as a valid state.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.QueryRow(ctx, getSetting, key).Scan(&value); err != nil {
		return nil, err
	}
	return value, nil
}

const upsertSetting = `
INSERT INTO settings (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`

// Upsert writes the raw JSON blob for a key.
func (s *Store) Upsert(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx, upsertSetting, key, value)
	return err
}
