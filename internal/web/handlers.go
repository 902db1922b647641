package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/export"
	"github.com/natasadenman-dotcom/authorsvoice/internal/files"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
	"github.com/natasadenman-dotcom/authorsvoice/internal/store"
)

// maxUploadBytes caps a restore upload.
const maxUploadBytes = files.MaxReadBytes

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *store.Store
	polisher store.Polisher
	renderer *Renderer
	logger   *slog.Logger
}

// HandleDocuments handles GET /documents. ?manuscript=id narrows to one
// manuscript's chapters; ?standalone=true to notes.
func (h *Handlers) HandleDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := r.URL.Query().Get("manuscript")
	standalone := parseBoolParam(r, "standalone")

	var docs []record.Document
	switch {
	case standalone:
		docs = h.store.ListDocumentsByManuscript(ctx, nil)
	case filter != "":
		docs = h.store.ListDocumentsByManuscript(ctx, &filter)
	default:
		docs = h.store.ListDocuments(ctx)
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"documents": docs})
		return
	}

	titles := make(map[string]string)
	for _, m := range h.store.ListManuscripts(ctx) {
		titles[m.ID] = m.Title
	}

	h.renderer.renderPage(w, r, "documents", DocumentsPageData{
		PageData:    h.renderer.page("Documents", "documents"),
		Documents:   docs,
		Manuscripts: titles,
		Filter:      filter,
		Standalone:  standalone,
	})
}

// HandleNewDocument handles GET /documents/new.
func (h *Handlers) HandleNewDocument(w http.ResponseWriter, r *http.Request) {
	doc := record.Document{}
	if ms := r.URL.Query().Get("manuscript"); ms != "" {
		doc.ManuscriptID = &ms
	}
	h.renderer.renderPage(w, r, "document", DocumentPageData{
		PageData:    h.renderer.page("New document", "documents"),
		Document:    doc,
		IsNew:       true,
		Manuscripts: h.store.ListManuscripts(r.Context()),
	})
}

// HandleDocument handles GET /documents/{id}.
func (h *Handlers) HandleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, doc)
		return
	}

	h.renderer.renderPage(w, r, "document", DocumentPageData{
		PageData:     h.renderer.page(doc.Title, "documents"),
		Document:     *doc,
		Manuscripts:  h.store.ListManuscripts(r.Context()),
		RenderedHTML: export.RenderMarkdown(doc.Body()),
		Tags:         strings.Join(doc.Tags, ", "),
		Words:        record.CountWords(doc.Body()),
		Chars:        record.CountChars(doc.Body()),
	})
}

// HandleSaveDocument handles POST /documents and POST /documents/{id}. The
// form carries every field; the stored document is replaced wholesale.
func (h *Handlers) HandleSaveDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	doc := record.TidyDocument(record.Document{
		ID:           r.PathValue("id"),
		Title:        r.FormValue("title"),
		RawText:      r.FormValue("raw_text"),
		PolishedText: r.FormValue("polished_text"),
		Tags:         splitTags(r.FormValue("tags")),
		ManuscriptID: ptrString(r.FormValue("manuscript_id")),
	})

	saved, err := h.store.SaveDocument(r.Context(), doc)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, saved)
		return
	}
	redirect(w, r, "/documents/"+saved.ID)
}

// HandleDeleteDocument handles DELETE /documents/{id} and
// POST /documents/{id}/delete.
func (h *Handlers) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteDocument(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
		return
	}
	redirect(w, r, "/documents")
}

// HandlePolishDocument handles POST /documents/{id}/polish.
func (h *Handlers) HandlePolishDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.PolishDocument(r.Context(), r.PathValue("id"), h.polisher)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, doc)
		return
	}
	redirect(w, r, "/documents/"+doc.ID)
}

// HandleExportDocument handles GET /documents/{id}/export?format=.
func (h *Handlers) HandleExportDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.sendExport(w, r, doc.Title, []export.Chapter{{Title: doc.Title, Body: doc.Body()}})
}

// HandleManuscripts handles GET /manuscripts.
func (h *Handlers) HandleManuscripts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	manuscripts := h.store.ListManuscripts(ctx)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"manuscripts": manuscripts})
		return
	}

	chapters := make(map[string]int)
	for _, d := range h.store.ListDocuments(ctx) {
		if d.ManuscriptID != nil {
			chapters[*d.ManuscriptID]++
		}
	}

	h.renderer.renderPage(w, r, "manuscripts", ManuscriptsPageData{
		PageData:    h.renderer.page("Manuscripts", "manuscripts"),
		Manuscripts: manuscripts,
		Chapters:    chapters,
	})
}

// HandleSaveManuscript handles POST /manuscripts and POST /manuscripts/{id}.
func (h *Handlers) HandleSaveManuscript(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("title is required"))
		return
	}

	saved, err := h.store.SaveManuscript(r.Context(), record.Manuscript{
		ID:    r.PathValue("id"),
		Title: title,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, saved)
		return
	}
	redirect(w, r, "/manuscripts/"+saved.ID)
}

// HandleManuscript handles GET /manuscripts/{id}: the compiled view.
func (h *Handlers) HandleManuscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.store.GetManuscript(ctx, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	compiled, err := h.store.CompileManuscript(ctx, m.ID)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, compiled)
		return
	}

	h.renderer.renderPage(w, r, "manuscript", ManuscriptPageData{
		PageData:     h.renderer.page(m.Title, "manuscripts"),
		Manuscript:   *m,
		Compiled:     compiled,
		RenderedHTML: export.RenderMarkdown(compiled.Text),
	})
}

// HandleDeleteManuscript handles DELETE /manuscripts/{id} and
// POST /manuscripts/{id}/delete. Chapters are removed with it.
func (h *Handlers) HandleDeleteManuscript(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.DeleteManuscript(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	redirect(w, r, "/manuscripts")
}

// HandleExportManuscript handles GET /manuscripts/{id}/export?format=.
func (h *Handlers) HandleExportManuscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.store.GetManuscript(ctx, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	compiled, err := h.store.CompileManuscript(ctx, m.ID)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	chapters := make([]export.Chapter, 0, len(compiled.Chapters))
	for _, c := range compiled.Chapters {
		chapters = append(chapters, export.Chapter{Title: c.Title, Body: c.Body})
	}
	h.sendExport(w, r, m.Title, chapters)
}

func (h *Handlers) sendExport(w http.ResponseWriter, r *http.Request, title string, chapters []export.Chapter) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(err.Error()))
		return
	}
	data, err := export.Render(format, title, chapters)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if format == export.FormatHTML {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, files.SafeName(title), format.Ext()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleSearch handles GET /search?q=.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	data := SearchPageData{
		PageData: h.renderer.page("Search", "search"),
		Query:    query,
		HasQuery: query != "",
	}

	if query != "" {
		hits, err := h.store.SearchDocuments(query, parseIntParam(r, "limit", 0))
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Hits = hits
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"query": query, "hits": data.Hits})
		return
	}
	h.renderer.renderPage(w, r, "search", data)
}

// HandleSettings handles GET /settings.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.store.Settings(r.Context())
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, settings)
		return
	}
	h.renderer.renderPage(w, r, "settings", SettingsPageData{
		PageData: h.renderer.page("Settings", "settings"),
		Settings: settings,
		Message:  r.URL.Query().Get("msg"),
	})
}

// HandleSaveSettings handles POST /settings.
func (h *Handlers) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	settings := record.UserSettings{
		UserName:               strings.TrimSpace(r.FormValue("user_name")),
		HasCompletedOnboarding: r.FormValue("has_completed_onboarding") == "true",
	}
	if err := h.store.SaveSettings(r.Context(), settings); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, settings)
		return
	}
	redirect(w, r, "/settings?msg=Settings+saved")
}

// HandleBackup handles GET /backup: the whole store as a download.
func (h *Handlers) HandleBackup(w http.ResponseWriter, r *http.Request) {
	blob, err := h.store.CreateBackup(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="authorsvoice-backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// HandleRestore handles POST /backup/restore. The backup arrives as the
// "backup" file of a multipart form, or as the raw request body.
func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var blob []byte
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, ferr := r.FormFile("backup")
		if ferr != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("backup file is required"))
			return
		}
		defer f.Close()
		blob, err = io.ReadAll(f)
	} else {
		blob, err = io.ReadAll(r.Body)
	}
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("read backup: %v", err)))
		return
	}

	out, err := h.store.RestoreBackup(r.Context(), blob)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.logger.Info("backup restored", "manuscripts", out.Manuscripts, "documents", out.Documents)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}
	msg := fmt.Sprintf("Restored %d manuscripts and %d documents", out.Manuscripts, out.Documents)
	redirect(w, r, "/settings?msg="+strings.ReplaceAll(msg, " ", "+"))
}

// redirect sends htmx clients an HX-Redirect and everyone else a 303.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// splitTags parses a comma-separated tag field.
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
