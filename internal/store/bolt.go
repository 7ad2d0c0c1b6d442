package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/additivelens/additivelens/internal/model"
)

// DefaultBucket holds catalog entries keyed by id
const DefaultBucket = "additives"

// BoltSource reads the catalog from a bbolt database. Each entry is stored as
// JSON under its id in a single bucket.
type BoltSource struct {
	path   string
	bucket string
}

// NewBoltSource creates a bbolt source
func NewBoltSource(path, bucket string) *BoltSource {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &BoltSource{path: path, bucket: bucket}
}

// Name returns the source name
func (s *BoltSource) Name() string { return KindBolt }

// FetchAll opens the database read-only and decodes every entry in key order.
// The database is not held open between loads so other processes can write it.
func (s *BoltSource) FetchAll(ctx context.Context) ([]model.AdditiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}

	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	defer db.Close()

	var entries []model.AdditiveEntry
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))
		if b == nil {
			return fmt.Errorf("%w: bucket %s", ErrNotFound, s.bucket)
		}
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e model.AdditiveEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry %s: %w", k, err)
			}
			if e.ID == "" {
				e.ID = string(k)
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// WriteBolt replaces the bucket contents with entries in one transaction
func WriteBolt(path, bucket string, entries []model.AdditiveEntry) error {
	if bucket == "" {
		bucket = DefaultBucket
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("bbolt open: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucket)) != nil {
			if err := tx.DeleteBucket([]byte(bucket)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(bucket))
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.ID == "" {
				return fmt.Errorf("entry %q has no id", e.Name)
			}
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode entry %s: %w", e.ID, err)
			}
			if err := b.Put([]byte(e.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}
