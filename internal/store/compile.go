package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

// Chapter is one titled block of a compiled manuscript.
type Chapter struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CompileOutput is a compiled manuscript. It is never persisted.
type CompileOutput struct {
	ManuscriptID string    `json:"manuscript_id"`
	Title        string    `json:"title"`
	Chapters     []Chapter `json:"chapters"`
	Text         string    `json:"text"`
	WordCount    int       `json:"word_count"`
}

// CompileManuscript concatenates a manuscript's chapters in ascending
// createdAt order (ties keep stored order), each as a titled block using the
// polished text when present. A missing manuscript yields an empty result.
func (s *Store) CompileManuscript(ctx context.Context, manuscriptID string) (*CompileOutput, error) {
	out := &CompileOutput{ManuscriptID: manuscriptID, Chapters: []Chapter{}}

	m, err := s.GetManuscript(ctx, manuscriptID)
	if errors.Is(err, errors.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Title = m.Title

	docs := s.ListDocumentsByManuscript(ctx, &manuscriptID)
	slices.SortStableFunc(docs, func(a, b record.Document) int {
		switch {
		case a.CreatedAt < b.CreatedAt:
			return -1
		case a.CreatedAt > b.CreatedAt:
			return 1
		}
		return 0
	})

	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		body := d.Body()
		out.Chapters = append(out.Chapters, Chapter{ID: d.ID, Title: d.Title, Body: body})
		out.WordCount += record.CountWords(body)
		blocks = append(blocks, fmt.Sprintf("## %s\n\n%s", d.Title, strings.TrimSpace(body)))
	}
	out.Text = strings.Join(blocks, "\n\n")
	return out, nil
}
