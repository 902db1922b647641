// Package mcp exposes the document store as MCP tools over stdio.
package mcp

import (
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/natasadenman-dotcom/authorsvoice/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"manuscript_list": {
		def:     manuscriptListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleManuscriptList },
	},
	"manuscript_save": {
		def:     manuscriptSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleManuscriptSave },
	},
	"manuscript_delete": {
		def:     manuscriptDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleManuscriptDelete },
	},
	"manuscript_compile": {
		def:     manuscriptCompileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleManuscriptCompile },
	},
	"document_list": {
		def:     documentListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocumentList },
	},
	"document_get": {
		def:     documentGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocumentGet },
	},
	"document_save": {
		def:     documentSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocumentSave },
	},
	"document_delete": {
		def:     documentDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocumentDelete },
	},
	"document_polish": {
		def:     documentPolishToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocumentPolish },
	},
	"document_search": {
		def:     documentSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocumentSearch },
	},
	"backup_create": {
		def:     backupCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupCreate },
	},
	"backup_restore": {
		def:     backupRestoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupRestore },
	},
	"settings_get": {
		def:     settingsGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsGet },
	},
	"settings_save": {
		def:     settingsSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsSave },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns the names in the list that are not tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with every tool not listed in
// cfg.DisabledTools.
func NewServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"authorsvoice",
		version,
		server.WithToolCapabilities(true),
	)

	for name, entry := range toolRegistry {
		if slices.Contains(cfg.DisabledTools, name) {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves MCP over stdio until stdin closes.
func Run(h *Handlers, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(h, cfg, version))
}
