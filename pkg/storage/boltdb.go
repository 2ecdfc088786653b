package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/panel"
	bolt "go.etcd.io/bbolt"
)

// DatabaseFile is the name of the database inside the data directory
const DatabaseFile = "console.db"

var (
	// Bucket names
	bucketBlobs  = []byte("blobs")
	bucketPanels = []byte("panels")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlobs, bucketPanels} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// PutBlob stores a resource under key, replacing any previous value
func (s *BoltStore) PutBlob(key string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(key), data)
	})
}

// GetBlob returns a copy of the resource stored under key
func (s *BoltStore) GetBlob(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(key))
		if v == nil {
			return fmt.Errorf("blob %s: %w", key, ErrNotFound)
		}
		// BoltDB data is only valid during the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

// ListBlobs returns every cached key in byte order
func (s *BoltStore) ListBlobs() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// DeleteBlob removes a cached resource. Deleting a missing key is not an error.
func (s *BoltStore) DeleteBlob(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Delete([]byte(key))
	})
}

// SavePanel stores a panel layout (upsert)
func (s *BoltStore) SavePanel(layout *panel.Layout) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(layout)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketPanels).Put([]byte(layout.ID), data)
	})
}

func (s *BoltStore) GetPanel(id string) (*panel.Layout, error) {
	var layout panel.Layout
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPanels).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("panel %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &layout)
	})
	if err != nil {
		return nil, err
	}
	return &layout, nil
}

// ListPanels returns every saved layout, oldest first
func (s *BoltStore) ListPanels() ([]*panel.Layout, error) {
	var layouts []*panel.Layout
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPanels).ForEach(func(k, v []byte) error {
			var layout panel.Layout
			if err := json.Unmarshal(v, &layout); err != nil {
				return fmt.Errorf("panel %s: %w", k, err)
			}
			layouts = append(layouts, &layout)
			return nil
		})
	})
	sort.SliceStable(layouts, func(i, j int) bool {
		return layouts[i].Created.Before(layouts[j].Created)
	})
	return layouts, err
}

func (s *BoltStore) DeletePanel(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPanels).Delete([]byte(id))
	})
}

// Backup writes a consistent copy of the database to path
func (s *BoltStore) Backup(path string) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(path, 0600)
	})
}
