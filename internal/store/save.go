package store

import (
	"context"
	"slices"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// resolveTimes applies the timestamp rules for an upsert: createdAt is kept
// from the existing record, or taken from the input (else now) on first
// insert; updatedAt is now, never earlier than the previous value.
func resolveTimes(now int64, existing *[2]int64, inputCreated int64) (created, updated int64) {
	if existing == nil {
		created = inputCreated
		if created <= 0 {
			created = now
		}
		return created, max(now, created)
	}
	return existing[0], max(now, existing[1])
}

// SaveManuscript inserts or overwrites a manuscript by id, storing its
// fields as given. An empty id gets a fresh ULID. Returns the stored record.
func (s *Store) SaveManuscript(ctx context.Context, m record.Manuscript) (*record.Manuscript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadManuscripts(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	if m.ID == "" {
		id, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		m.ID = id
	} else {
		idx = slices.IndexFunc(items, func(x record.Manuscript) bool { return x.ID == m.ID })
	}

	var existing *[2]int64
	if idx >= 0 {
		existing = &[2]int64{items[idx].CreatedAt, items[idx].UpdatedAt}
	}
	m.CreatedAt, m.UpdatedAt = resolveTimes(s.nowMillis(), existing, m.CreatedAt)

	if idx >= 0 {
		items[idx] = m
	} else {
		items = append(items, m)
	}
	if err := saveCollection(ctx, s.backend, kv.KeyManuscripts, items); err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveDocument inserts or overwrites a document by id, storing its fields as
// given. An empty id gets a fresh ULID. Returns the stored record.
func (s *Store) SaveDocument(ctx context.Context, d record.Document) (*record.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveDocumentLocked(ctx, d)
}

func (s *Store) saveDocumentLocked(ctx context.Context, d record.Document) (*record.Document, error) {
	items, err := s.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	if d.ID == "" {
		id, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		d.ID = id
	} else {
		idx = slices.IndexFunc(items, func(x record.Document) bool { return x.ID == d.ID })
	}

	var existing *[2]int64
	if idx >= 0 {
		existing = &[2]int64{items[idx].CreatedAt, items[idx].UpdatedAt}
	}
	d.CreatedAt, d.UpdatedAt = resolveTimes(s.nowMillis(), existing, d.CreatedAt)

	if idx >= 0 {
		items[idx] = d
	} else {
		items = append(items, d)
	}
	if err := saveCollection(ctx, s.backend, kv.KeyDocuments, items); err != nil {
		return nil, err
	}

	s.reindex(d)
	return &d, nil
}
