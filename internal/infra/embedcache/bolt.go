package embedcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketEmbeddings = []byte("embeddings")

// Bolt keeps embeddings in a local bbolt file.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the cache file at path.
func OpenBolt(path string) (*Bolt, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

// Get implements embedder.Cache.
func (b *Bolt) Get(_ context.Context, key string) ([]float32, bool, error) {
	var (
		vec []float32
		ok  bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get([]byte(key))
		if data == nil {
			return nil
		}
		decoded, err := decodeVector(data)
		if err != nil {
			return err
		}
		vec, ok = decoded, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return vec, ok, nil
}

// Put implements embedder.Cache.
func (b *Bolt) Put(_ context.Context, key string, vector []float32) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put([]byte(key), encodeVector(vector))
	})
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}
