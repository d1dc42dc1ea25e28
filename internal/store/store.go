// Package store provides a bbolt-backed key-value layer for undertow's
// versioned snapshot publication. Unlike a typical accumulator store,
// every key here is already self-describing (snap:<version>:indicators,
// latest:version, meta:last_updated, …), so the whole system lives in a
// single flat bucket rather than partitioned by entity type.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Current schema version. Bump when key format changes in a
// backwards-incompatible way.
const schemaVersion = 1

var (
	bucketData     = []byte("data")
	bucketInternal = []byte("_meta")
)

// Store wraps a bbolt database holding the single "data" bucket.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path, creating parent
// directories as needed and running schema migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// migrate ensures the data and _meta buckets exist and stamps the
// schema version on a fresh database.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketData, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			return meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339)))
		}
		return nil
	})
}

// ─── Raw Key-Value Access ─────────────────────────────────────────────────────

// Get returns the raw bytes stored at key, or (nil, false) if absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketData).Get([]byte(key))
		if raw != nil {
			v = append([]byte(nil), raw...)
		}
		return nil
	})
	return v, v != nil, err
}

// Put writes raw bytes at key.
func (s *Store) Put(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).Put([]byte(key), value)
	})
}

// Delete removes key, if present.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).Delete([]byte(key))
	})
}

// PutJSON marshals v and writes it at key.
func (s *Store) PutJSON(key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Put(key, b)
}

// GetJSON reads key and unmarshals it into out. Returns (false, nil) if
// the key is absent.
func (s *Store) GetJSON(key string, out interface{}) (bool, error) {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(v, out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// PutBatch writes multiple raw key-value pairs in a single transaction.
func (s *Store) PutBatch(entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketData)
		for k, v := range entries {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// Stats returns the row count and approximate byte size of the data
// bucket.
func (s *Store) Stats() (count int, bytes int64, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).ForEach(func(k, v []byte) error {
			count++
			bytes += int64(len(k) + len(v))
			return nil
		})
	})
	return count, bytes, err
}

// Compact rewrites the entire database to a new file, reclaiming disk
// space freed by prior deletions. The Store remains usable after
// Compact returns.
func (s *Store) Compact() (beforeBytes, afterBytes int64, err error) {
	path := s.db.Path()
	tmpPath := path + ".compact.tmp"

	if fi, err2 := os.Stat(path); err2 == nil {
		beforeBytes = fi.Size()
	}

	dst, err := bolt.Open(tmpPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return beforeBytes, 0, fmt.Errorf("opening temp db for compaction: %w", err)
	}

	if err = bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return beforeBytes, 0, fmt.Errorf("compacting db: %w", err)
	}
	dst.Close()

	if err = s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return beforeBytes, 0, fmt.Errorf("closing db before compaction swap: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		s.db, _ = bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
		return beforeBytes, 0, fmt.Errorf("replacing db with compacted copy: %w", err)
	}

	s.db, err = bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return beforeBytes, 0, fmt.Errorf("reopening compacted db: %w", err)
	}

	if fi, err2 := os.Stat(path); err2 == nil {
		afterBytes = fi.Size()
	}
	return beforeBytes, afterBytes, nil
}
