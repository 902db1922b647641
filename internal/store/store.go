// Package store persists manuscripts, documents and user settings through a
// flat key-value backend. Each collection is one JSON value that is read,
// modified and written back whole.
package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
	"github.com/natasadenman-dotcom/authorsvoice/internal/search"
)

// Options configure a Store.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Index, if set, is kept in sync with the documents collection and
	// serves SearchDocuments.
	Index *search.Index

	// Now defaults to time.Now.
	Now func() time.Time
}

// Store is the document store.
type Store struct {
	backend kv.Backend
	logger  *slog.Logger
	index   *search.Index
	now     func() time.Time

	// mu serializes read-modify-write cycles within this process. Writers in
	// other processes are not coordinated; the last write wins.
	mu sync.Mutex
}

// New creates a Store over backend.
func New(backend kv.Backend, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		backend: backend,
		logger:  opts.Logger,
		index:   opts.Index,
		now:     opts.Now,
	}
}

// nowMillis returns the current time in epoch milliseconds.
func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// loadCollection reads and decodes the collection under key. An absent key
// is an empty collection.
func loadCollection[T any](ctx context.Context, b kv.Backend, key string) ([]T, error) {
	data, err := b.Get(ctx, key)
	if err != nil {
		return nil, errors.NewStorageUnavailable(err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.NewStorageUnavailable(fmt.Errorf("decode %s: %w", key, err))
	}
	return items, nil
}

func encodeCollection[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// saveCollection encodes items and writes them under key.
func saveCollection[T any](ctx context.Context, b kv.Backend, key string, items []T) error {
	data, err := encodeCollection(items)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := b.Put(ctx, key, data); err != nil {
		return errors.NewStorageUnavailable(err)
	}
	return nil
}

func (s *Store) loadManuscripts(ctx context.Context) ([]record.Manuscript, error) {
	return loadCollection[record.Manuscript](ctx, s.backend, kv.KeyManuscripts)
}

func (s *Store) loadDocuments(ctx context.Context) ([]record.Document, error) {
	return loadCollection[record.Document](ctx, s.backend, kv.KeyDocuments)
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// reindex updates the search index for doc. Index failures are logged; the
// store remains the source of truth.
func (s *Store) reindex(doc record.Document) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(doc); err != nil {
		s.logger.Warn("search index update failed", "document", doc.ID, "err", err)
	}
}

func (s *Store) unindex(ids ...string) {
	if s.index == nil {
		return
	}
	for _, id := range ids {
		if err := s.index.Delete(id); err != nil {
			s.logger.Warn("search index delete failed", "document", id, "err", err)
		}
	}
}

// RebuildIndex reindexes every stored document.
func (s *Store) RebuildIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return err
	}
	if err := s.index.Rebuild(docs); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
