// Package bolt stores storefront state in a single local bbolt file.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/raj-engineer/EcomApp/internal/domain/kv"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
)

var (
	bucketKV       = []byte("kv")
	bucketOrders   = []byte("orders")
	bucketOrderIDs = []byte("order_ids")
)

// DB is an open bbolt database.
type DB struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketKV, bucketOrders, bucketOrderIDs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Ping fails once the database has been closed.
func (d *DB) Ping(context.Context) error {
	return d.db.View(func(*bolt.Tx) error { return nil })
}

// KV returns the key-value view of the database.
func (d *DB) KV() *KVRepository {
	return &KVRepository{db: d.db}
}

// Orders returns the order repository.
func (d *DB) Orders() *OrderRepository {
	return &OrderRepository{db: d.db}
}

// KVRepository implements kv.Store.
type KVRepository struct {
	db *bolt.DB
}

var _ kv.Store = (*KVRepository)(nil)

func (r *KVRepository) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketKV).Get([]byte(key)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return out, out != nil, nil
}

func (r *KVRepository) Set(_ context.Context, key string, value []byte) error {
	if err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), value)
	}); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// OrderRepository implements order.Repository. Orders are keyed by a
// monotonically increasing sequence so iteration runs in placement order.
type OrderRepository struct {
	db *bolt.DB
}

var _ order.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	if err := r.db.Update(func(tx *bolt.Tx) error {
		ids := tx.Bucket(bucketOrderIDs)
		if ids.Get([]byte(o.ID)) != nil {
			return fmt.Errorf("order %s already exists", o.ID)
		}
		orders := tx.Bucket(bucketOrders)
		seq, err := orders.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := orders.Put(key, data); err != nil {
			return err
		}
		return ids.Put([]byte(o.ID), key)
	}); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := r.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketOrderIDs).Get([]byte(id))
		if key == nil {
			return order.ErrNotFound
		}
		data := tx.Bucket(bucketOrders).Get(key)
		if data == nil {
			return order.ErrNotFound
		}
		return json.Unmarshal(data, &o)
	})
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &o, nil
}

func (r *OrderRepository) List(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketOrders).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var o order.Order
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("decode order %x: %w", k, err)
			}
			out = append(out, o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
