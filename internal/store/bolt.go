package store

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// snapshotBucket holds the persisted snapshot document
	snapshotBucket = "_snapshot"

	// documentKey is the single key the document is stored under
	documentKey = "latest"
)

// DefaultBoltPath is the database file used by the bolt backend.
const DefaultBoltPath = "badtemp_karlshamn.db"

// BoltStore keeps the snapshot document in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		path = DefaultBoltPath
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket)); err != nil {
			return fmt.Errorf("failed to create snapshot bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Load returns a copy of the stored document.
func (s *BoltStore) Load(_ context.Context) ([]byte, error) {
	var doc []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket not found")
		}

		data := bucket.Get([]byte(documentKey))
		if data == nil {
			return ErrNotFound
		}

		// data is only valid for the life of the transaction
		doc = append([]byte(nil), data...)
		return nil
	})
	return doc, err
}

// Save replaces the stored document.
func (s *BoltStore) Save(_ context.Context, document []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket not found")
		}
		return bucket.Put([]byte(documentKey), document)
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
