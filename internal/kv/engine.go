package kv

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("costbook")

// ErrClosed is returned by engine operations after Close.
var ErrClosed = errors.New("kv: engine closed")

// Engine is a flat string-keyed byte store.
type Engine interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Put overwrites key.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns every key starting with prefix, in byte order.
	Keys(prefix string) ([]string, error)
	// Snapshot returns a copy of every key and value.
	Snapshot() (map[string][]byte, error)
	Close() error
}

// BoltEngine is the bbolt-backed Engine.
type BoltEngine struct {
	db *bolt.DB
}

// Compile-time interface check.
var _ Engine = (*BoltEngine)(nil)

// Open creates or opens a bbolt database at path, creating the parent
// directory if needed. A second process holding the file makes Open fail
// after a one second timeout.
func Open(path string) (*BoltEngine, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open kv database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltEngine{db: db}, nil
}

// Close releases the database file.
func (e *BoltEngine) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

func (e *BoltEngine) Get(key string) ([]byte, bool, error) {
	if e.db == nil {
		return nil, false, ErrClosed
	}
	var out []byte
	var found bool
	err := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return nil
		}
		// bbolt values are only valid for the life of the transaction
		out = append([]byte(nil), v...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return out, found, nil
}

func (e *BoltEngine) Put(key string, value []byte) error {
	if e.db == nil {
		return ErrClosed
	}
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

func (e *BoltEngine) Delete(key string) error {
	if e.db == nil {
		return ErrClosed
	}
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

func (e *BoltEngine) Keys(prefix string) ([]string, error) {
	if e.db == nil {
		return nil, ErrClosed
	}
	keys := []string{}
	p := []byte(prefix)
	err := e.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv keys %q: %w", prefix, err)
	}
	return keys, nil
}

func (e *BoltEngine) Snapshot() (map[string][]byte, error) {
	if e.db == nil {
		return nil, ErrClosed
	}
	out := make(map[string][]byte)
	err := e.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			out[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("kv snapshot: %w", err)
	}
	return out, nil
}
