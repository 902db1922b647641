package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

type polishFunc func(ctx context.Context, text string) (string, error)

func (f polishFunc) Polish(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

func TestPolishDocument(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	doc, err := s.SaveDocument(ctx, record.Document{Title: "rough", RawText: "so um the cat sat"})
	require.NoError(t, err)

	var seen string
	polished, err := s.PolishDocument(ctx, doc.ID, polishFunc(func(_ context.Context, text string) (string, error) {
		seen = text
		return "The cat sat.", nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "so um the cat sat", seen)
	assert.Equal(t, "The cat sat.", polished.PolishedText)
	assert.Equal(t, "so um the cat sat", polished.RawText)
	assert.Equal(t, doc.CreatedAt, polished.CreatedAt)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.", got.Body())
}

func TestPolishDocument_FailureLeavesDocument(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	doc, err := s.SaveDocument(ctx, record.Document{Title: "rough", RawText: "text"})
	require.NoError(t, err)
	before := backend.Snapshot()

	_, err = s.PolishDocument(ctx, doc.ID, polishFunc(func(context.Context, string) (string, error) {
		return "", errors.NewCapabilityUnavailable("polish", fmt.Errorf("connection refused"))
	}))
	assert.True(t, errors.Is(err, errors.ErrCapabilityUnavailable))
	assert.Equal(t, before, backend.Snapshot())

	_, err = s.PolishDocument(ctx, doc.ID, nil)
	assert.True(t, errors.Is(err, errors.ErrCapabilityUnavailable))

	_, err = s.PolishDocument(ctx, "missing", polishFunc(func(context.Context, string) (string, error) { return "x", nil }))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSaveTranscript(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTranscript(ctx, SaveTranscriptInput{Text: "   "})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	created, err := s.SaveTranscript(ctx, SaveTranscriptInput{Text: "hello world ", Tags: []string{"dictation"}})
	require.NoError(t, err)
	assert.Equal(t, "hello world", created.RawText)
	assert.Equal(t, "hello world", created.Title)
	assert.Equal(t, []string{"dictation"}, created.Tags)

	// Continue dictating into the same document.
	_, err = s.SaveDocument(ctx, record.Document{ID: created.ID, Title: "Greeting", RawText: created.RawText, PolishedText: "Hello, world.", Tags: created.Tags})
	require.NoError(t, err)

	updated, err := s.SaveTranscript(ctx, SaveTranscriptInput{DocumentID: created.ID, Text: "hello world again"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Greeting", updated.Title)
	assert.Equal(t, "hello world again", updated.RawText)
	assert.Equal(t, "Hello, world.", updated.PolishedText)
	assert.Equal(t, []string{"dictation"}, updated.Tags)
	assert.Len(t, s.ListDocuments(ctx), 1)

	_, err = s.SaveTranscript(ctx, SaveTranscriptInput{DocumentID: "missing", Text: "x"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSearchDocuments(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	doc, err := s.SaveDocument(ctx, record.Document{Title: "Sea", RawText: "the albatross circled"})
	require.NoError(t, err)

	hits, err := s.SearchDocuments("albatross", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, doc.ID, hits[0].ID)

	_, err = s.SearchDocuments("  ", 5)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRebuildIndex(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveDocument(ctx, record.Document{Title: "t", RawText: "marigold"})
	require.NoError(t, err)
	require.NoError(t, s.RebuildIndex(ctx))

	hits, err := s.SearchDocuments("marigold", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
