package store

import (
	"context"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// ListManuscripts returns every manuscript in stored order. An unavailable
// backend yields an empty list.
func (s *Store) ListManuscripts(ctx context.Context) []record.Manuscript {
	items, err := s.loadManuscripts(ctx)
	if err != nil {
		s.logger.Warn("list manuscripts: degraded to empty", "err", err)
		return []record.Manuscript{}
	}
	if items == nil {
		return []record.Manuscript{}
	}
	return items
}

// ListDocuments returns every document in stored order. An unavailable
// backend yields an empty list.
func (s *Store) ListDocuments(ctx context.Context) []record.Document {
	items, err := s.loadDocuments(ctx)
	if err != nil {
		s.logger.Warn("list documents: degraded to empty", "err", err)
		return []record.Document{}
	}
	if items == nil {
		return []record.Document{}
	}
	return items
}

// ListDocumentsByManuscript returns the documents of one manuscript. A nil
// id selects standalone notes.
func (s *Store) ListDocumentsByManuscript(ctx context.Context, manuscriptID *string) []record.Document {
	out := []record.Document{}
	for _, d := range s.ListDocuments(ctx) {
		if d.InManuscript(manuscriptID) {
			out = append(out, d)
		}
	}
	return out
}

// GetManuscript returns the manuscript with id, or NOT_FOUND.
func (s *Store) GetManuscript(ctx context.Context, id string) (*record.Manuscript, error) {
	for _, m := range s.ListManuscripts(ctx) {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, errors.NewNotFound("manuscript", id)
}

// GetDocument returns the document with id, or NOT_FOUND.
func (s *Store) GetDocument(ctx context.Context, id string) (*record.Document, error) {
	for _, d := range s.ListDocuments(ctx) {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, errors.NewNotFound("document", id)
}
