package store

import (
	"context"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// Polisher cleans up dictated text.
type Polisher interface {
	Polish(ctx context.Context, text string) (string, error)
}

// PolishDocument runs polisher over the document's raw text and saves the
// result as its polished text. On failure the document is left untouched.
func (s *Store) PolishDocument(ctx context.Context, id string, polisher Polisher) (*record.Document, error) {
	if polisher == nil {
		return nil, errors.NewCapabilityUnavailable("polish", nil)
	}

	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.RawText == "" {
		return nil, errors.NewInvalidRequest("document has no raw text to polish")
	}

	polished, err := polisher.Polish(ctx, doc.RawText)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-read so edits made while the model was running are not lost.
	current, err := s.findDocumentLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	current.PolishedText = polished
	return s.saveDocumentLocked(ctx, *current)
}

func (s *Store) findDocumentLocked(ctx context.Context, id string) (*record.Document, error) {
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, errors.NewNotFound("document", id)
}
