// Package store persists the movie collection and the provider API key in a
// badger-backed key-value store. Both values use whole-value replace
// semantics: the collection is one JSON document under a single key.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ogero/filmoteca/internal/common"
	"github.com/ogero/filmoteca/pkg/catalog"
)

const (
	moviesKey = "catalog/movies"
	apiKeyKey = "config/api_key"
)

// Store is the persistence boundary of the catalog: whole-collection
// load/replace plus the provider API key as an independent single value.
type Store interface {
	// LoadMovies returns the persisted collection. Missing or unparseable
	// data degrades to an empty collection, never an error.
	LoadMovies() catalog.Collection
	// SaveMovies replaces the entire persisted collection.
	SaveMovies(movies catalog.Collection) error
	// APIKey returns the stored provider API key, or an empty string when
	// unset or unreadable.
	APIKey() string
	// SaveAPIKey persists the provider API key, replacing any previous value.
	SaveAPIKey(key string) error
	// Close flushes pending updates to disk. Closing more than once still
	// only closes the DB once.
	Close() error
}

type badgerStore struct {
	db *badger.DB
}

// Open opens (or creates) the badger-backed store at path.
func Open(path string) (Store, error) {

	db, err := badger.Open(
		badger.DefaultOptions(path).
			WithNumVersionsToKeep(0).
			WithValueLogFileSize(1024 * 1024 * 100).
			WithLogger(&badgerLogger{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to badger.Open: %w", err)
	}

	return &badgerStore{db: db}, nil
}

// LoadMovies returns the persisted collection, or an empty one when no valid
// persisted data exists.
func (s *badgerStore) LoadMovies() catalog.Collection {

	movies := catalog.Collection{}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(moviesKey))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &movies)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			common.Log.Warn("Failed to load movie collection, starting empty", "err", err)
		}
		return catalog.Collection{}
	}

	return movies
}

// SaveMovies replaces the entire persisted collection with the given one.
func (s *badgerStore) SaveMovies(movies catalog.Collection) error {

	err := s.db.Update(func(txn *badger.Txn) error {
		b, err := json.Marshal(movies)
		if err != nil {
			return fmt.Errorf("failed to json.Marshal: %w", err)
		}
		return txn.Set([]byte(moviesKey), b)
	})
	if err != nil {
		return fmt.Errorf("failed to persist movie collection: %w", err)
	}

	return nil
}

// APIKey returns the stored provider API key, or an empty string.
func (s *badgerStore) APIKey() string {

	var key string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(apiKeyKey))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			key = string(val)
			return nil
		})
	})
	if err != nil {
		return ""
	}

	return key
}

// SaveAPIKey persists the provider API key, replacing any previous value.
func (s *badgerStore) SaveAPIKey(key string) error {

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(apiKeyKey), []byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to persist api key: %w", err)
	}

	return nil
}

// Close flushes pending updates to disk.
func (s *badgerStore) Close() error {
	return s.db.Close()
}

type badgerLogger struct{}

func (l *badgerLogger) Errorf(s string, i ...interface{}) {
	common.Log.Error(fmt.Sprintf(s, i...))
}

func (l *badgerLogger) Warningf(s string, i ...interface{}) {
	common.Log.Warn(fmt.Sprintf(s, i...))
}

func (l *badgerLogger) Infof(s string, i ...interface{}) {
	common.Log.Info(fmt.Sprintf(s, i...))
}

func (l *badgerLogger) Debugf(s string, i ...interface{}) {
	common.Log.Debug(fmt.Sprintf(s, i...))
}
