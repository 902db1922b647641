package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/natasadenman-dotcom/authorsvoice/internal/config"
	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/files"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/search"
	"github.com/natasadenman-dotcom/authorsvoice/internal/store"
)

type polishFunc func(ctx context.Context, text string) (string, error)

func (f polishFunc) Polish(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

type testEnv struct {
	h       *Handlers
	backend *kv.MemoryBackend
	dir     string
	cfg     *config.Config
}

func testSetup(t *testing.T) *testEnv {
	t.Helper()

	idx, err := search.New()
	if err != nil {
		t.Fatalf("search.New() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	backend := kv.NewMemoryBackend()
	st := store.New(backend, store.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Index:  idx,
	})

	dir := t.TempDir()
	guard, err := files.NewGuard(nil, dir)
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	upper := polishFunc(func(_ context.Context, text string) (string, error) {
		return strings.ToUpper(text), nil
	})
	return &testEnv{
		h:       NewHandlers(st, upper, guard),
		backend: backend,
		dir:     dir,
		cfg:     config.DefaultConfig(),
	}
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want TextContent", r.Content[0])
	}
	return text.Text
}

func decodeResult[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	if r.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	return out
}

func errorCode(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if !r.IsError {
		t.Fatalf("expected error result, got %s", resultText(t, r))
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(resultText(t, r)), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload.Error.Code
}

type idOutput struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ManuscriptID *string  `json:"manuscriptId"`
	RawText      string   `json:"rawText"`
	PolishedText string   `json:"polishedText"`
	Tags         []string `json:"tags"`
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	r, err := handler(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	return r
}

func TestHandleManuscriptSaveAndList(t *testing.T) {
	env := testSetup(t)

	t.Run("blank title", func(t *testing.T) {
		r := call(t, env.h.HandleManuscriptSave, map[string]any{"title": "  "})
		if code := errorCode(t, r); code != string(errors.ErrInvalidRequest) {
			t.Errorf("code = %s, want INVALID_REQUEST", code)
		}
	})

	saved := decodeResult[idOutput](t, call(t, env.h.HandleManuscriptSave, map[string]any{"title": " Novel "}))
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}
	if saved.Title != "Novel" {
		t.Errorf("Title = %q, want %q", saved.Title, "Novel")
	}

	renamed := decodeResult[idOutput](t, call(t, env.h.HandleManuscriptSave, map[string]any{"id": saved.ID, "title": "Renamed"}))
	if renamed.ID != saved.ID {
		t.Errorf("ID = %q, want %q", renamed.ID, saved.ID)
	}

	list := decodeResult[struct {
		Manuscripts []idOutput `json:"manuscripts"`
	}](t, call(t, env.h.HandleManuscriptList, nil))
	if len(list.Manuscripts) != 1 || list.Manuscripts[0].Title != "Renamed" {
		t.Errorf("Manuscripts = %+v, want one titled Renamed", list.Manuscripts)
	}
}

func TestHandleDocumentLifecycle(t *testing.T) {
	env := testSetup(t)

	ms := decodeResult[idOutput](t, call(t, env.h.HandleManuscriptSave, map[string]any{"title": "Novel"}))

	doc := decodeResult[idOutput](t, call(t, env.h.HandleDocumentSave, map[string]any{
		"manuscript_id": ms.ID,
		"raw_text":      "the lighthouse keeper counted ships every night",
		"tags":          []any{"sea", "", "sea"},
	}))
	if doc.Title != "the lighthouse keeper counted ships every…" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.ManuscriptID == nil || *doc.ManuscriptID != ms.ID {
		t.Errorf("ManuscriptID = %v, want %s", doc.ManuscriptID, ms.ID)
	}
	if len(doc.Tags) != 2 {
		t.Errorf("Tags = %v, want [sea sea]", doc.Tags)
	}

	note := decodeResult[idOutput](t, call(t, env.h.HandleDocumentSave, map[string]any{"title": "Loose note", "raw_text": "remember the ending"}))

	got := decodeResult[idOutput](t, call(t, env.h.HandleDocumentGet, map[string]any{"id": doc.ID}))
	if got.RawText != doc.RawText {
		t.Errorf("RawText = %q, want %q", got.RawText, doc.RawText)
	}

	type listOut struct {
		Documents []idOutput `json:"documents"`
	}
	all := decodeResult[listOut](t, call(t, env.h.HandleDocumentList, nil))
	if len(all.Documents) != 2 {
		t.Errorf("all documents = %d, want 2", len(all.Documents))
	}
	chapters := decodeResult[listOut](t, call(t, env.h.HandleDocumentList, map[string]any{"manuscript_id": ms.ID}))
	if len(chapters.Documents) != 1 || chapters.Documents[0].ID != doc.ID {
		t.Errorf("chapters = %+v", chapters.Documents)
	}
	standalone := decodeResult[listOut](t, call(t, env.h.HandleDocumentList, map[string]any{"standalone": true}))
	if len(standalone.Documents) != 1 || standalone.Documents[0].ID != note.ID {
		t.Errorf("standalone = %+v", standalone.Documents)
	}

	r := call(t, env.h.HandleDocumentList, map[string]any{"standalone": true, "manuscript_id": ms.ID})
	if code := errorCode(t, r); code != string(errors.ErrInvalidRequest) {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}

	polished := decodeResult[idOutput](t, call(t, env.h.HandleDocumentPolish, map[string]any{"id": note.ID}))
	if polished.PolishedText != "REMEMBER THE ENDING" {
		t.Errorf("PolishedText = %q", polished.PolishedText)
	}

	decodeResult[map[string]any](t, call(t, env.h.HandleDocumentDelete, map[string]any{"id": note.ID}))
	// Deleting again is not an error.
	decodeResult[map[string]any](t, call(t, env.h.HandleDocumentDelete, map[string]any{"id": note.ID}))

	r = call(t, env.h.HandleDocumentGet, map[string]any{"id": note.ID})
	if code := errorCode(t, r); code != string(errors.ErrNotFound) {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestHandleDocumentPolish_NoPolisher(t *testing.T) {
	env := testSetup(t)
	env.h.polisher = nil

	doc := decodeResult[idOutput](t, call(t, env.h.HandleDocumentSave, map[string]any{"raw_text": "hello"}))
	r := call(t, env.h.HandleDocumentPolish, map[string]any{"id": doc.ID})
	if code := errorCode(t, r); code != string(errors.ErrCapabilityUnavailable) {
		t.Errorf("code = %s, want CAPABILITY_UNAVAILABLE", code)
	}
}

func TestHandleManuscriptCompileAndDelete(t *testing.T) {
	env := testSetup(t)

	ms := decodeResult[idOutput](t, call(t, env.h.HandleManuscriptSave, map[string]any{"title": "Novel"}))
	for _, title := range []string{"One", "Two"} {
		call(t, env.h.HandleDocumentSave, map[string]any{"manuscript_id": ms.ID, "title": title, "raw_text": "text of " + title})
	}

	compiled := decodeResult[store.CompileOutput](t, call(t, env.h.HandleManuscriptCompile, map[string]any{"id": ms.ID}))
	if len(compiled.Chapters) != 2 {
		t.Fatalf("Chapters = %d, want 2", len(compiled.Chapters))
	}
	want := "## One\n\ntext of One\n\n## Two\n\ntext of Two"
	if compiled.Text != want {
		t.Errorf("Text = %q, want %q", compiled.Text, want)
	}

	deleted := decodeResult[store.DeleteManuscriptOutput](t, call(t, env.h.HandleManuscriptDelete, map[string]any{"id": ms.ID}))
	if deleted.DocumentsRemoved != 2 {
		t.Errorf("DocumentsRemoved = %d, want 2", deleted.DocumentsRemoved)
	}

	r := call(t, env.h.HandleManuscriptDelete, map[string]any{})
	if code := errorCode(t, r); code != string(errors.ErrInvalidRequest) {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}
}

func TestHandleDocumentSearch(t *testing.T) {
	env := testSetup(t)
	call(t, env.h.HandleDocumentSave, map[string]any{"title": "Harbor", "raw_text": "the fishing boats came home at dusk"})
	call(t, env.h.HandleDocumentSave, map[string]any{"title": "Desert", "raw_text": "sand as far as anyone could see"})

	out := decodeResult[struct {
		Hits []search.Hit `json:"hits"`
	}](t, call(t, env.h.HandleDocumentSearch, map[string]any{"query": "boats"}))
	if len(out.Hits) != 1 || out.Hits[0].Title != "Harbor" {
		t.Errorf("Hits = %+v, want Harbor", out.Hits)
	}

	r := call(t, env.h.HandleDocumentSearch, map[string]any{"query": ""})
	if code := errorCode(t, r); code != string(errors.ErrInvalidRequest) {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}
}

func TestHandleBackupRoundTrip(t *testing.T) {
	env := testSetup(t)
	call(t, env.h.HandleDocumentSave, map[string]any{"title": "Keep me", "raw_text": "kept"})

	path := filepath.Join(env.dir, "backup.json")
	created := decodeResult[struct {
		Path  string `json:"path"`
		Bytes int    `json:"bytes"`
	}](t, call(t, env.h.HandleBackupCreate, map[string]any{"path": path}))
	if created.Bytes == 0 {
		t.Error("expected non-empty backup")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	call(t, env.h.HandleDocumentSave, map[string]any{"title": "Drop me", "raw_text": "dropped"})

	restored := decodeResult[store.RestoreOutput](t, call(t, env.h.HandleBackupRestore, map[string]any{"path": path}))
	if restored.Documents != 1 {
		t.Errorf("Documents = %d, want 1", restored.Documents)
	}

	r := call(t, env.h.HandleBackupRestore, map[string]any{"backup": `{"documents": {}}`})
	if code := errorCode(t, r); code != string(errors.ErrMalformedBackup) {
		t.Errorf("code = %s, want MALFORMED_BACKUP", code)
	}

	r = call(t, env.h.HandleBackupRestore, map[string]any{})
	if code := errorCode(t, r); code != string(errors.ErrInvalidRequest) {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}

	r = call(t, env.h.HandleBackupCreate, map[string]any{"path": filepath.Join(env.dir, "backup.txt")})
	if code := errorCode(t, r); code != string(errors.ErrInvalidRequest) {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}
}

func TestHandleBackupCreate_Inline(t *testing.T) {
	env := testSetup(t)

	out := decodeResult[struct {
		Backup json.RawMessage `json:"backup"`
	}](t, call(t, env.h.HandleBackupCreate, nil))

	restored := decodeResult[store.RestoreOutput](t, call(t, env.h.HandleBackupRestore, map[string]any{"backup": string(out.Backup)}))
	if restored.Manuscripts != 0 || restored.Documents != 0 {
		t.Errorf("restored = %+v, want empty", restored)
	}
}

func TestHandleSettings(t *testing.T) {
	env := testSetup(t)

	initial := decodeResult[map[string]any](t, call(t, env.h.HandleSettingsGet, nil))
	if initial["userName"] != "" || initial["hasCompletedOnboarding"] != false {
		t.Errorf("initial settings = %v, want zero value", initial)
	}

	call(t, env.h.HandleSettingsSave, map[string]any{"user_name": " Ada ", "has_completed_onboarding": true})

	got := decodeResult[map[string]any](t, call(t, env.h.HandleSettingsGet, nil))
	if got["userName"] != "Ada" || got["hasCompletedOnboarding"] != true {
		t.Errorf("settings = %v", got)
	}
}

func TestHandleStorageUnavailable(t *testing.T) {
	env := testSetup(t)
	env.backend.Unavailable = true

	r := call(t, env.h.HandleManuscriptSave, map[string]any{"title": "Novel"})
	if code := errorCode(t, r); code != string(errors.ErrStorageUnavailable) {
		t.Errorf("code = %s, want STORAGE_UNAVAILABLE", code)
	}

	// Reads degrade to empty.
	list := decodeResult[struct {
		Manuscripts []idOutput `json:"manuscripts"`
	}](t, call(t, env.h.HandleManuscriptList, nil))
	if list.Manuscripts == nil || len(list.Manuscripts) != 0 {
		t.Errorf("Manuscripts = %v, want empty list", list.Manuscripts)
	}
}

func TestServerRegistration(t *testing.T) {
	env := testSetup(t)

	s := NewServer(env.h, env.cfg, "test")
	tools := s.ListTools()

	expected := AllToolNames()
	if len(tools) != len(expected) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expected))
	}
	for _, name := range expected {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	env := testSetup(t)

	env.cfg.DisabledTools = []string{"backup_restore", "manuscript_delete", "backup_restore"}
	s := NewServer(env.h, env.cfg, "test")
	tools := s.ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"backup_restore", "manuscript_delete"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"backup_restore", "document_delete"}, 0},
		{"one unknown", []string{"backup_restore", "fake_tool"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unknown := ValidateDisabledTools(tt.input); len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 14 {
		t.Errorf("AllToolNames() returned %d names, want 14", len(names))
	}
	if names[0] != "backup_create" {
		t.Errorf("names[0] = %q, want sorted order", names[0])
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(fmt.Errorf("open /tmp/secret.db: permission denied"))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(resultText(t, r)), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"]
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if strings.Contains(errObj["message"].(string), "secret") {
		t.Errorf("message leaks cause: %v", errObj["message"])
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	r := errorResult(fmt.Errorf("chapter 2: %w", errors.NewNotFound("document", "abc")))

	var payload map[string]map[string]any
	if err := json.Unmarshal([]byte(resultText(t, r)), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"]
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if msg := errObj["message"].(string); !strings.Contains(msg, "chapter 2") {
		t.Errorf("message should keep wrapper context, got: %s", msg)
	}
	if _, ok := errObj["details"]; !ok {
		t.Error("expected details for NOT_FOUND")
	}
}
