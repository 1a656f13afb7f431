package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var stateBucket = []byte("lazyfilter")

// BoltProvider stores encoded states in a bbolt bucket
type BoltProvider struct {
	db    *bbolt.DB
	key   []byte
	codec *Codec
}

// NewBoltProvider opens (and creates if needed) the bolt file at path
func NewBoltProvider(path, key string) (*BoltProvider, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}

	codec, err := NewCodec()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltProvider{db: db, key: []byte(key), codec: codec}, nil
}

// Read loads the state stored under the provider key
func (p *BoltProvider) Read() (*State, error) {
	var blob []byte
	err := p.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(stateBucket).Get(p.key); v != nil {
			// v is only valid inside the transaction
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	if blob == nil {
		return nil, nil
	}
	return p.codec.Decode(blob)
}

// Write stores s under the provider key
func (p *BoltProvider) Write(s State) error {
	blob, err := p.codec.Encode(s)
	if err != nil {
		return err
	}
	err = p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put(p.key, blob)
	})
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Close closes the bolt file
func (p *BoltProvider) Close() error {
	_ = p.codec.Close()
	return p.db.Close()
}
