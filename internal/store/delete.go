package store

import (
	"context"
	"slices"

	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// DeleteDocument removes the document with id. Deleting an absent document
// is not an error.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadDocuments(ctx)
	if err != nil {
		return err
	}
	n := len(items)
	items = slices.DeleteFunc(items, func(d record.Document) bool { return d.ID == id })
	if len(items) == n {
		return nil
	}
	if err := saveCollection(ctx, s.backend, kv.KeyDocuments, items); err != nil {
		return err
	}
	s.unindex(id)
	return nil
}

// DeleteManuscriptOutput reports what a cascade delete removed.
type DeleteManuscriptOutput struct {
	ID               string `json:"id"`
	Deleted          bool   `json:"deleted"`
	DocumentsRemoved int    `json:"documents_removed"`
}

// DeleteManuscript removes the manuscript, then every document that belongs
// to it. The two writes are separate: a failure between them leaves orphaned
// documents, which no manuscript listing will surface.
func (s *Store) DeleteManuscript(ctx context.Context, id string) (*DeleteManuscriptOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &DeleteManuscriptOutput{ID: id}

	manuscripts, err := s.loadManuscripts(ctx)
	if err != nil {
		return nil, err
	}
	n := len(manuscripts)
	manuscripts = slices.DeleteFunc(manuscripts, func(m record.Manuscript) bool { return m.ID == id })
	if len(manuscripts) != n {
		if err := saveCollection(ctx, s.backend, kv.KeyManuscripts, manuscripts); err != nil {
			return nil, err
		}
		out.Deleted = true
	}

	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	var removed []string
	docs = slices.DeleteFunc(docs, func(d record.Document) bool {
		if d.ManuscriptID != nil && *d.ManuscriptID == id {
			removed = append(removed, d.ID)
			return true
		}
		return false
	})
	if len(removed) > 0 {
		if err := saveCollection(ctx, s.backend, kv.KeyDocuments, docs); err != nil {
			return nil, err
		}
		s.unindex(removed...)
	}
	out.DocumentsRemoved = len(removed)

	s.logger.Info("manuscript deleted", "manuscript", id, "documents", len(removed))
	return out, nil
}
