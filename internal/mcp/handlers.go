package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/files"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
	"github.com/natasadenman-dotcom/authorsvoice/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store    *store.Store
	polisher store.Polisher
	guard    *files.Guard
}

// NewHandlers creates handlers over st. polisher and guard may be nil; the
// tools that need them then fail with CAPABILITY_UNAVAILABLE.
func NewHandlers(st *store.Store, polisher store.Polisher, guard *files.Guard) *Handlers {
	return &Handlers{store: st, polisher: polisher, guard: guard}
}

// decode converts MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	if args == nil {
		return result, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, err
	}
	return result, nil
}

// Request types

type idRequest struct {
	ID string `json:"id"`
}

type manuscriptSaveRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

type documentListRequest struct {
	ManuscriptID string `json:"manuscript_id,omitempty"`
	Standalone   bool   `json:"standalone,omitempty"`
}

type documentSaveRequest struct {
	ID           string   `json:"id,omitempty"`
	ManuscriptID string   `json:"manuscript_id,omitempty"`
	Title        string   `json:"title,omitempty"`
	RawText      string   `json:"raw_text,omitempty"`
	PolishedText string   `json:"polished_text,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

type documentSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type backupCreateRequest struct {
	Path string `json:"path,omitempty"`
}

type backupRestoreRequest struct {
	Path   string `json:"path,omitempty"`
	Backup string `json:"backup,omitempty"`
}

type settingsSaveRequest struct {
	UserName               string `json:"user_name"`
	HasCompletedOnboarding bool   `json:"has_completed_onboarding"`
}

// Response types

type manuscriptListResponse struct {
	Manuscripts []record.Manuscript `json:"manuscripts"`
}

type documentListResponse struct {
	Documents []record.Document `json:"documents"`
}

type deleteDocumentResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type searchResponse struct {
	Query string `json:"query"`
	Hits  any    `json:"hits"`
}

type backupCreateResponse struct {
	Path   string          `json:"path,omitempty"`
	Bytes  int             `json:"bytes"`
	Backup json.RawMessage `json:"backup,omitempty"`
}

func (h *Handlers) HandleManuscriptList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(manuscriptListResponse{Manuscripts: h.store.ListManuscripts(ctx)})
}

func (h *Handlers) HandleManuscriptSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[manuscriptSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return errorResult(errors.NewInvalidRequest("title is required")), nil
	}

	saved, err := h.store.SaveManuscript(ctx, record.Manuscript{ID: strings.TrimSpace(input.ID), Title: title})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(saved)
}

func (h *Handlers) HandleManuscriptDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[idRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	out, err := h.store.DeleteManuscript(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

func (h *Handlers) HandleManuscriptCompile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[idRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	out, err := h.store.CompileManuscript(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

func (h *Handlers) HandleDocumentList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[documentListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Standalone && input.ManuscriptID != "" {
		return errorResult(errors.NewInvalidRequest("manuscript_id and standalone are mutually exclusive")), nil
	}

	var docs []record.Document
	switch {
	case input.Standalone:
		docs = h.store.ListDocumentsByManuscript(ctx, nil)
	case input.ManuscriptID != "":
		docs = h.store.ListDocumentsByManuscript(ctx, &input.ManuscriptID)
	default:
		docs = h.store.ListDocuments(ctx)
	}
	return successResult(documentListResponse{Documents: docs})
}

func (h *Handlers) HandleDocumentGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[idRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	doc, err := h.store.GetDocument(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(doc)
}

func (h *Handlers) HandleDocumentSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[documentSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	doc := record.TidyDocument(record.Document{
		ID:           strings.TrimSpace(input.ID),
		Title:        input.Title,
		RawText:      input.RawText,
		PolishedText: input.PolishedText,
		Tags:         input.Tags,
		ManuscriptID: &input.ManuscriptID,
	})

	saved, err := h.store.SaveDocument(ctx, doc)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(saved)
}

func (h *Handlers) HandleDocumentDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[idRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.store.DeleteDocument(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(deleteDocumentResponse{ID: input.ID, Deleted: true})
}

func (h *Handlers) HandleDocumentPolish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[idRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	doc, err := h.store.PolishDocument(ctx, input.ID, h.polisher)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(doc)
}

func (h *Handlers) HandleDocumentSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[documentSearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must be positive")), nil
	}

	hits, err := h.store.SearchDocuments(input.Query, input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(searchResponse{Query: input.Query, Hits: hits})
}

func (h *Handlers) HandleBackupCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[backupCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	blob, err := h.store.CreateBackup(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Path == "" {
		return successResult(backupCreateResponse{Bytes: len(blob), Backup: blob})
	}
	if h.guard == nil {
		return errorResult(errors.NewCapabilityUnavailable("file access", nil)), nil
	}

	path, err := h.guard.WriteFile(input.Path, blob, ".json")
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(backupCreateResponse{Path: path, Bytes: len(blob)})
}

func (h *Handlers) HandleBackupRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[backupRestoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var blob []byte
	switch {
	case input.Path != "" && input.Backup != "":
		return errorResult(errors.NewInvalidRequest("path and backup are mutually exclusive")), nil
	case input.Path != "":
		if h.guard == nil {
			return errorResult(errors.NewCapabilityUnavailable("file access", nil)), nil
		}
		blob, err = h.guard.ReadFile(input.Path, ".json")
		if err != nil {
			return errorResult(err), nil
		}
	case input.Backup != "":
		blob = []byte(input.Backup)
	default:
		return errorResult(errors.NewInvalidRequest("path or backup is required")), nil
	}

	out, err := h.store.RestoreBackup(ctx, blob)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.store.Settings(ctx))
}

func (h *Handlers) HandleSettingsSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[settingsSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	us := record.UserSettings{
		UserName:               strings.TrimSpace(input.UserName),
		HasCompletedOnboarding: input.HasCompletedOnboarding,
	}
	if err := h.store.SaveSettings(ctx, us); err != nil {
		return errorResult(err), nil
	}
	return successResult(us)
}

// errorResult converts an error to an MCP error result. IsError is set so
// clients see the failure; INTERNAL errors never carry details.
func errorResult(err error) *mcp.CallToolResult {
	errObj := map[string]any{
		"code":    errors.ErrInternal,
		"message": "an internal error occurred",
		"status":  500,
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		errObj["code"] = appErr.Code
		errObj["status"] = appErr.Status
		// A wrapping error keeps its context in the message.
		errObj["message"] = appErr.Message
		if err != error(appErr) {
			errObj["message"] = err.Error()
		}
		if appErr.Code != errors.ErrInternal && appErr.Details != nil {
			errObj["details"] = appErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult converts a value to an MCP success result.
func successResult(v any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(v)
}
