package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
)

func seedStore(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	m, err := s.SaveManuscript(ctx, record.Manuscript{Title: "Book"})
	require.NoError(t, err)
	_, err = s.SaveDocument(ctx, record.Document{Title: "ch1", ManuscriptID: &m.ID, RawText: "first", Tags: []string{"x"}})
	require.NoError(t, err)
	_, err = s.SaveDocument(ctx, record.Document{Title: "note", RawText: "loose"})
	require.NoError(t, err)
	require.NoError(t, s.SaveSettings(ctx, record.UserSettings{UserName: "Ada", HasCompletedOnboarding: true}))
}

func TestCreateBackup_Format(t *testing.T) {
	s, _, _ := newTestStore(t)
	seedStore(t, s)

	blob, err := s.CreateBackup(context.Background())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &raw))
	for _, field := range []string{"manuscripts", "documents", "userSettings", "version", "timestamp"} {
		assert.Contains(t, raw, field)
	}

	var b record.Backup
	require.NoError(t, json.Unmarshal(blob, &b))
	assert.Equal(t, 1, b.Version)
	assert.NotZero(t, b.Timestamp)
	assert.Len(t, b.Manuscripts, 1)
	assert.Len(t, b.Documents, 2)
	require.NotNil(t, b.UserSettings)
	assert.Equal(t, "Ada", b.UserSettings.UserName)
}

func TestCreateBackup_EmptyStore(t *testing.T) {
	s, _, _ := newTestStore(t)

	blob, err := s.CreateBackup(context.Background())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &raw))
	assert.JSONEq(t, `[]`, string(raw["manuscripts"]))
	assert.JSONEq(t, `[]`, string(raw["documents"]))
	assert.JSONEq(t, `null`, string(raw["userSettings"]))
}

func TestBackupRestore_IsNoOp(t *testing.T) {
	s, backend, _ := newTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	before := backend.Snapshot()
	blob, err := s.CreateBackup(ctx)
	require.NoError(t, err)

	out, err := s.RestoreBackup(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Manuscripts)
	assert.Equal(t, 2, out.Documents)
	assert.True(t, out.SettingsRestored)

	assert.Equal(t, before, backend.Snapshot())
}

func TestRestoreBackup_ReplacesStore(t *testing.T) {
	source, _, _ := newTestStore(t)
	seedStore(t, source)
	ctx := context.Background()
	blob, err := source.CreateBackup(ctx)
	require.NoError(t, err)

	target, _, _ := newTestStore(t)
	_, err = target.SaveDocument(ctx, record.Document{Title: "will vanish", RawText: "ephemeral"})
	require.NoError(t, err)

	_, err = target.RestoreBackup(ctx, blob)
	require.NoError(t, err)

	docs := target.ListDocuments(ctx)
	require.Len(t, docs, 2)
	assert.Equal(t, "ch1", docs[0].Title)
	assert.Equal(t, "Ada", target.Settings(ctx).UserName)

	// The search index follows the restored documents.
	hits, err := target.SearchDocuments("ephemeral", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = target.SearchDocuments("loose", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestRestoreBackup_NullSettingsLeavesSettings(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSettings(ctx, record.UserSettings{UserName: "Keep"}))

	for _, blob := range []string{
		`{"manuscripts": [], "documents": [], "userSettings": null, "version": 1, "timestamp": 5}`,
		`{"manuscripts": [], "documents": []}`,
	} {
		out, err := s.RestoreBackup(ctx, []byte(blob))
		require.NoError(t, err)
		assert.False(t, out.SettingsRestored)
		assert.Equal(t, "Keep", s.Settings(ctx).UserName)
	}
}

func TestRestoreBackup_MalformedLeavesStoreUntouched(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"invalid JSON", `{"manuscripts": [`},
		{"not an object", `[1, 2, 3]`},
		{"missing documents", `{"manuscripts": [], "userSettings": {"userName": "Eve"}, "version": 1}`},
		{"missing manuscripts", `{"documents": []}`},
		{"documents not array", `{"manuscripts": [], "documents": {"id": "x"}}`},
		{"documents null", `{"manuscripts": [], "documents": null}`},
		{"manuscripts string", `{"manuscripts": "[]", "documents": []}`},
		{"unreadable record", `{"manuscripts": [], "documents": [{"title": 7}]}`},
		{"settings not object", `{"manuscripts": [], "documents": [], "userSettings": [1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend, _ := newTestStore(t)
			seedStore(t, s)
			before := backend.Snapshot()

			_, err := s.RestoreBackup(context.Background(), []byte(tt.blob))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedBackup), "got %v", err)
			assert.Equal(t, before, backend.Snapshot())
		})
	}
}

func TestRestoreBackup_Unavailable(t *testing.T) {
	s, backend, _ := newTestStore(t)
	backend.Unavailable = true

	_, err := s.RestoreBackup(context.Background(), []byte(`{"manuscripts": [], "documents": []}`))
	assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
}

func TestRestoreBackup_KeysWritten(t *testing.T) {
	s, backend, _ := newTestStore(t)

	_, err := s.RestoreBackup(context.Background(), []byte(`{"manuscripts": [{"id": "m", "title": "T", "createdAt": 1, "updatedAt": 2}], "documents": []}`))
	require.NoError(t, err)

	snap := backend.Snapshot()
	assert.JSONEq(t, `[{"id": "m", "title": "T", "createdAt": 1, "updatedAt": 2}]`, string(snap[kv.KeyManuscripts]))
	assert.JSONEq(t, `[]`, string(snap[kv.KeyDocuments]))
	assert.NotContains(t, snap, kv.KeyUserSettings)
}

// interleavingBackend runs hook once, in the background, the first time the
// manuscripts collection is read, and gives it a moment to finish.
type interleavingBackend struct {
	*kv.MemoryBackend
	once sync.Once
	hook func()
	wg   sync.WaitGroup
}

func (b *interleavingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.MemoryBackend.Get(ctx, key)
	if key == kv.KeyManuscripts {
		b.once.Do(func() {
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.hook()
			}()
			time.Sleep(50 * time.Millisecond)
		})
	}
	return data, err
}

func TestCreateBackup_ConsistentWithConcurrentDelete(t *testing.T) {
	ctx := context.Background()
	backend := &interleavingBackend{MemoryBackend: kv.NewMemoryBackend()}
	s := New(backend, Options{Logger: quietLogger()})

	m, err := s.SaveManuscript(ctx, record.Manuscript{Title: "Book"})
	require.NoError(t, err)
	_, err = s.SaveDocument(ctx, record.Document{Title: "Ch 1", ManuscriptID: &m.ID, RawText: "text"})
	require.NoError(t, err)

	backend.once = sync.Once{}
	backend.hook = func() {
		_, _ = s.DeleteManuscript(ctx, m.ID)
	}

	blob, err := s.CreateBackup(ctx)
	require.NoError(t, err)
	backend.wg.Wait()

	var b record.Backup
	require.NoError(t, json.Unmarshal(blob, &b))
	ids := make(map[string]bool)
	for _, ms := range b.Manuscripts {
		ids[ms.ID] = true
	}
	for _, d := range b.Documents {
		if d.ManuscriptID != nil {
			assert.True(t, ids[*d.ManuscriptID], "document %s points at a manuscript missing from the backup", d.ID)
		}
	}
	assert.Len(t, b.Manuscripts, 1)
	assert.Len(t, b.Documents, 1)
	assert.Empty(t, s.ListManuscripts(ctx), "delete runs after the backup")
}
