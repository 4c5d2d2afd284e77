// Package kv defines the key-value storage the cart and favorites stores
// persist themselves into.
package kv

import (
	"context"
	"fmt"
)

// Store reads and writes opaque values by key.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Op names the persistence step that failed.
type Op string

const (
	OpEncode Op = "encode"
	OpDecode Op = "decode"
	OpRead   Op = "read"
	OpWrite  Op = "write"
)

// PersistenceError reports a failure to save or restore a store's collection.
type PersistenceError struct {
	Op  Op
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
