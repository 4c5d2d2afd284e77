package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raj-engineer/EcomApp/internal/domain/kv"
)

const (
	getKVSQL = `SELECT value FROM kv WHERE key = $1`
	setKVSQL = `INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

var _ kv.Store = (*KVRepository)(nil)

// KVRepository implements kv.Store on the kv table.
type KVRepository struct {
	pool *pgxpool.Pool
}

func NewKVRepository(pool *pgxpool.Pool) *KVRepository {
	return &KVRepository{pool: pool}
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	if err := r.pool.QueryRow(ctx, getKVSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting key %q: %w", key, err)
	}
	return value, true, nil
}

func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := r.pool.Exec(ctx, setKVSQL, key, value); err != nil {
		return fmt.Errorf("setting key %q: %w", key, err)
	}
	return nil
}
