package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/timshannon/badgerhold/v4"
)

// record is the stored form of one cache entry.
type record struct {
	Key      string
	Value    []byte
	StoredAt time.Time
}

// Badger is a persistent domain.Cache backed by a badgerhold store. Almanac
// records are pure functions of the date, so entries never expire.
type Badger struct {
	store *badgerhold.Store
}

// OpenBadger opens (creating if needed) a badger database in dir.
func OpenBadger(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{store: store}, nil
}

// Get returns the value stored under key, or domain.ErrCacheMiss.
func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var rec record
	err := b.store.Get(key, &rec)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cache key %q: %w", key, err)
	}
	return rec.Value, nil
}

// Set stores value under key, replacing any previous value.
func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	rec := record{Key: key, Value: value, StoredAt: time.Now().UTC()}
	if err := b.store.Upsert(key, &rec); err != nil {
		return fmt.Errorf("set cache key %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (b *Badger) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
