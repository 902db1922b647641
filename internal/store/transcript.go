package store

import (
	"context"
	"strings"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// SaveTranscriptInput hands a finished dictation to the store.
type SaveTranscriptInput struct {
	// DocumentID updates an existing document when set; otherwise a new one
	// is created.
	DocumentID   string
	ManuscriptID *string
	Title        string
	Text         string
	Tags         []string
}

// SaveTranscript stores dictated text as a document's raw text. A new
// document is tidied like typed input, so its title defaults to the first
// words. Updating an existing document keeps its polished text, and its
// title and tags unless new ones are given.
func (s *Store) SaveTranscript(ctx context.Context, input SaveTranscriptInput) (*record.Document, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.NewInvalidRequest("transcript is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if input.DocumentID == "" {
		doc := record.TidyDocument(record.Document{
			Title:        input.Title,
			ManuscriptID: input.ManuscriptID,
			RawText:      text,
			Tags:         input.Tags,
		})
		return s.saveDocumentLocked(ctx, doc)
	}

	existing, err := s.findDocumentLocked(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	doc := *existing
	if title := record.CollapseSpaces(input.Title); title != "" {
		doc.Title = title
	}
	if input.ManuscriptID != nil {
		doc.ManuscriptID = input.ManuscriptID
	}
	if tags := record.CleanTags(input.Tags); len(tags) > 0 {
		doc.Tags = tags
	}
	doc.RawText = text

	return s.saveDocumentLocked(ctx, doc)
}
