package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natasadenman-dotcom/authorsvoice/internal/db"
	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
	"github.com/natasadenman-dotcom/authorsvoice/internal/search"
)

// fakeClock advances one millisecond per reading unless pinned.
type fakeClock struct {
	ms     int64
	frozen bool
}

func (c *fakeClock) Now() time.Time {
	if !c.frozen {
		c.ms++
	}
	return time.UnixMilli(c.ms)
}

func stringPtr(s string) *string {
	return &s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *kv.MemoryBackend, *fakeClock) {
	t.Helper()
	backend := kv.NewMemoryBackend()
	clock := &fakeClock{ms: 1_000}
	idx, err := search.New()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	s := New(backend, Options{Logger: quietLogger(), Index: idx, Now: clock.Now})
	return s, backend, clock
}

func TestSaveDocument_RoundTrip(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveDocument(ctx, record.Document{
		ManuscriptID: stringPtr("ms1"),
		Title:        "Chapter One",
		RawText:      "it was a dark and stormy night",
		PolishedText: "It was a dark and stormy night.",
		Tags:         []string{"draft", "opening"},
	})
	require.NoError(t, err)
	require.Len(t, saved.ID, 26, "ULID")
	require.NotZero(t, saved.CreatedAt)
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	got, err := s.GetDocument(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, *saved, *got)

	prevUpdated := got.UpdatedAt
	got.RawText = "it was a bright cold day"
	got.CreatedAt = 1
	again, err := s.SaveDocument(ctx, *got)
	require.NoError(t, err)

	assert.Equal(t, saved.CreatedAt, again.CreatedAt, "createdAt is set only on first insert")
	assert.GreaterOrEqual(t, again.UpdatedAt, prevUpdated)
	assert.Equal(t, "it was a bright cold day", again.RawText)
	assert.Equal(t, []string{"draft", "opening"}, again.Tags)
	assert.Equal(t, "ms1", *again.ManuscriptID)
	assert.Len(t, s.ListDocuments(ctx), 1)
}

func TestSaveDocument_UpdatedAtNeverDecreases(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveDocument(ctx, record.Document{Title: "t", RawText: "x"})
	require.NoError(t, err)

	// Clock steps backwards.
	clock.ms -= 500
	clock.frozen = true
	again, err := s.SaveDocument(ctx, *saved)
	require.NoError(t, err)
	assert.Equal(t, saved.UpdatedAt, again.UpdatedAt)
}

func TestSaveDocument_StoresFieldsVerbatim(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveDocument(ctx, record.Document{
		ManuscriptID: stringPtr(""),
		Title:        "  Draft  ",
		RawText:      " one two ",
		Tags:         []string{" a ", "", "b"},
	})
	require.NoError(t, err)

	got, err := s.GetDocument(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "  Draft  ", got.Title)
	assert.Equal(t, " one two ", got.RawText)
	assert.Equal(t, []string{" a ", "", "b"}, got.Tags)
	require.NotNil(t, got.ManuscriptID)
	assert.Equal(t, "", *got.ManuscriptID)

	empty, err := s.SaveDocument(ctx, record.Document{})
	require.NoError(t, err)
	assert.Equal(t, "", empty.Title)
	assert.Len(t, empty.ID, 26)
}

func TestSaveDocument_ExplicitIDInsertKeepsCreatedAt(t *testing.T) {
	s, _, _ := newTestStore(t)

	saved, err := s.SaveDocument(context.Background(), record.Document{ID: "fixed", Title: "t", CreatedAt: 42})
	require.NoError(t, err)
	assert.Equal(t, "fixed", saved.ID)
	assert.Equal(t, int64(42), saved.CreatedAt)
	assert.GreaterOrEqual(t, saved.UpdatedAt, saved.CreatedAt)
}

func TestSaveManuscript(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	blank, err := s.SaveManuscript(ctx, record.Manuscript{Title: "   "})
	require.NoError(t, err)
	assert.Equal(t, "   ", blank.Title)
	_, err = s.DeleteManuscript(ctx, blank.ID)
	require.NoError(t, err)

	m, err := s.SaveManuscript(ctx, record.Manuscript{Title: "  The Novel "})
	require.NoError(t, err)
	assert.Equal(t, "  The Novel ", m.Title)

	m.Title = "The Renamed Novel"
	updated, err := s.SaveManuscript(ctx, *m)
	require.NoError(t, err)
	assert.Equal(t, m.CreatedAt, updated.CreatedAt)
	assert.Greater(t, updated.UpdatedAt, m.UpdatedAt)

	list := s.ListManuscripts(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "The Renamed Novel", list[0].Title)
}

func TestGet_NotFound(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetDocument(ctx, "nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = s.GetManuscript(ctx, "nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListDocumentsByManuscript(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveDocument(ctx, record.Document{Title: "in a", ManuscriptID: stringPtr("a")})
	require.NoError(t, err)
	_, err = s.SaveDocument(ctx, record.Document{Title: "in b", ManuscriptID: stringPtr("b")})
	require.NoError(t, err)
	_, err = s.SaveDocument(ctx, record.Document{Title: "note"})
	require.NoError(t, err)

	inA := s.ListDocumentsByManuscript(ctx, stringPtr("a"))
	require.Len(t, inA, 1)
	assert.Equal(t, "in a", inA[0].Title)

	notes := s.ListDocumentsByManuscript(ctx, nil)
	require.Len(t, notes, 1)
	assert.Equal(t, "note", notes[0].Title)

	assert.Empty(t, s.ListDocumentsByManuscript(ctx, stringPtr("missing")))
}

func TestDeleteDocument(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	doc, err := s.SaveDocument(ctx, record.Document{Title: "gone", RawText: "quince"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))
	assert.Empty(t, s.ListDocuments(ctx))

	hits, err := s.SearchDocuments("quince", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Absent id is a no-op.
	before := backend.Snapshot()
	require.NoError(t, s.DeleteDocument(ctx, doc.ID))
	assert.Equal(t, before, backend.Snapshot())
}

func TestDeleteManuscript_Cascades(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	keep, err := s.SaveManuscript(ctx, record.Manuscript{Title: "Keep"})
	require.NoError(t, err)
	drop, err := s.SaveManuscript(ctx, record.Manuscript{Title: "Drop"})
	require.NoError(t, err)

	for _, title := range []string{"one", "two"} {
		_, err := s.SaveDocument(ctx, record.Document{Title: title, ManuscriptID: &drop.ID})
		require.NoError(t, err)
	}
	kept, err := s.SaveDocument(ctx, record.Document{Title: "kept", ManuscriptID: &keep.ID})
	require.NoError(t, err)
	note, err := s.SaveDocument(ctx, record.Document{Title: "note"})
	require.NoError(t, err)

	out, err := s.DeleteManuscript(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.Equal(t, 2, out.DocumentsRemoved)

	manuscripts := s.ListManuscripts(ctx)
	require.Len(t, manuscripts, 1)
	assert.Equal(t, keep.ID, manuscripts[0].ID)

	docs := s.ListDocuments(ctx)
	require.Len(t, docs, 2)
	assert.Equal(t, kept.ID, docs[0].ID)
	assert.Equal(t, note.ID, docs[1].ID)
}

func TestDeleteManuscript_Missing(t *testing.T) {
	s, _, _ := newTestStore(t)

	out, err := s.DeleteManuscript(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, out.Deleted)
	assert.Zero(t, out.DocumentsRemoved)
}

func TestCompileManuscript_OrdersByCreatedAt(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	m, err := s.SaveManuscript(ctx, record.Manuscript{Title: "Book"})
	require.NoError(t, err)

	chapters := []struct {
		title    string
		created  int64
		raw      string
		polished string
	}{
		{"A", 300, "raw a", ""},
		{"B", 100, "raw b", "Polished B."},
		{"C", 200, "raw c", ""},
	}
	for _, c := range chapters {
		_, err := s.SaveDocument(ctx, record.Document{
			Title:        c.title,
			ManuscriptID: &m.ID,
			RawText:      c.raw,
			PolishedText: c.polished,
			CreatedAt:    c.created,
		})
		require.NoError(t, err)
	}
	_, err = s.SaveDocument(ctx, record.Document{Title: "Other", RawText: "not in book"})
	require.NoError(t, err)

	out, err := s.CompileManuscript(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Book", out.Title)
	require.Len(t, out.Chapters, 3)
	assert.Equal(t, "B", out.Chapters[0].Title)
	assert.Equal(t, "C", out.Chapters[1].Title)
	assert.Equal(t, "A", out.Chapters[2].Title)
	assert.Equal(t, "Polished B.", out.Chapters[0].Body)
	assert.Equal(t, "## B\n\nPolished B.\n\n## C\n\nraw c\n\n## A\n\nraw a", out.Text)
	assert.Equal(t, 6, out.WordCount)
}

func TestCompileManuscript_StableForTies(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	m, err := s.SaveManuscript(ctx, record.Manuscript{Title: "Book"})
	require.NoError(t, err)
	for _, title := range []string{"first", "second", "third"} {
		_, err := s.SaveDocument(ctx, record.Document{Title: title, ManuscriptID: &m.ID, CreatedAt: 500})
		require.NoError(t, err)
	}

	out, err := s.CompileManuscript(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, out.Chapters, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{out.Chapters[0].Title, out.Chapters[1].Title, out.Chapters[2].Title})
}

func TestCompileManuscript_Missing(t *testing.T) {
	s, _, _ := newTestStore(t)

	out, err := s.CompileManuscript(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, out.Chapters)
	assert.Empty(t, out.Text)
}

func TestSettings(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, record.UserSettings{}, s.Settings(ctx))

	want := record.UserSettings{UserName: "Ada", HasCompletedOnboarding: true}
	require.NoError(t, s.SaveSettings(ctx, want))
	assert.Equal(t, want, s.Settings(ctx))
}

func TestUnavailableBackend(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveDocument(ctx, record.Document{Title: "before"})
	require.NoError(t, err)
	require.NoError(t, s.SaveSettings(ctx, record.UserSettings{UserName: "Ada"}))

	backend.Unavailable = true

	// Reads degrade to empty.
	assert.Empty(t, s.ListDocuments(ctx))
	assert.Empty(t, s.ListManuscripts(ctx))
	assert.Equal(t, record.UserSettings{}, s.Settings(ctx))

	// Writes fail.
	_, err = s.SaveDocument(ctx, record.Document{Title: "after"})
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	_, err = s.SaveManuscript(ctx, record.Manuscript{Title: "after"})
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	err = s.SaveSettings(ctx, record.UserSettings{})
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	err = s.DeleteDocument(ctx, "x")
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	_, err = s.DeleteManuscript(ctx, "x")
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
	_, err = s.CreateBackup(ctx)
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))

	backend.Unavailable = false
	assert.Len(t, s.ListDocuments(ctx), 1)
}

func TestCorruptCollectionDegradesReads(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, kv.KeyDocuments, []byte(`{not an array`)))
	assert.Empty(t, s.ListDocuments(ctx))

	_, err := s.SaveDocument(ctx, record.Document{Title: "x"})
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

func TestStore_SQLiteBackend(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	s := New(db.NewBackend(database), Options{Logger: quietLogger()})
	ctx := context.Background()

	m, err := s.SaveManuscript(ctx, record.Manuscript{Title: "Persisted"})
	require.NoError(t, err)
	_, err = s.SaveDocument(ctx, record.Document{Title: "ch", ManuscriptID: &m.ID, RawText: "words"})
	require.NoError(t, err)

	out, err := s.DeleteManuscript(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.DocumentsRemoved)
	assert.Empty(t, s.ListDocuments(ctx))

	_, err = s.SearchDocuments("words", 10)
	assert.True(t, errors.Is(err, errors.ErrCapabilityUnavailable), "no index configured")
}
