package mcp

import "github.com/mark3labs/mcp-go/mcp"

var manuscriptListToolDef = mcp.NewTool("manuscript_list",
	mcp.WithDescription("List all manuscripts."),
)

var manuscriptSaveToolDef = mcp.NewTool("manuscript_save",
	mcp.WithDescription("Create a manuscript, or overwrite one by id. Returns the stored record."),
	mcp.WithString("id", mcp.Description("Manuscript id; omit to create")),
	mcp.WithString("title", mcp.Required(), mcp.Description("Manuscript title")),
)

var manuscriptDeleteToolDef = mcp.NewTool("manuscript_delete",
	mcp.WithDescription("Delete a manuscript and every chapter that belongs to it."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Manuscript id")),
)

var manuscriptCompileToolDef = mcp.NewTool("manuscript_compile",
	mcp.WithDescription("Concatenate a manuscript's chapters, oldest first, into one text."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Manuscript id")),
)

var documentListToolDef = mcp.NewTool("document_list",
	mcp.WithDescription("List documents. Filter by manuscript, or list standalone notes."),
	mcp.WithString("manuscript_id", mcp.Description("Only chapters of this manuscript")),
	mcp.WithBoolean("standalone", mcp.Description("Only documents that belong to no manuscript")),
)

var documentGetToolDef = mcp.NewTool("document_get",
	mcp.WithDescription("Fetch one document by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
)

var documentSaveToolDef = mcp.NewTool("document_save",
	mcp.WithDescription("Create a document, or overwrite one by id. All fields are replaced."),
	mcp.WithString("id", mcp.Description("Document id; omit to create")),
	mcp.WithString("manuscript_id", mcp.Description("Owning manuscript; omit for a standalone note")),
	mcp.WithString("title", mcp.Description("Title; derived from the text when empty")),
	mcp.WithString("raw_text", mcp.Description("Dictated or typed text")),
	mcp.WithString("polished_text", mcp.Description("Cleaned-up text")),
	mcp.WithArray("tags", mcp.Description("Ordered tags"), mcp.WithStringItems()),
)

var documentDeleteToolDef = mcp.NewTool("document_delete",
	mcp.WithDescription("Delete a document. Deleting a missing document succeeds."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
)

var documentPolishToolDef = mcp.NewTool("document_polish",
	mcp.WithDescription("Clean up a document's raw text with the configured language model and store the result as its polished text."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
)

var documentSearchToolDef = mcp.NewTool("document_search",
	mcp.WithDescription("Full-text search over document titles, text and tags."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Query string; supports quotes, +/- and field:value")),
	mcp.WithNumber("limit", mcp.Description("Maximum hits (default 20)")),
)

var backupCreateToolDef = mcp.NewTool("backup_create",
	mcp.WithDescription("Serialize the whole store. Writes to path when given, else returns the backup inline."),
	mcp.WithString("path", mcp.Description("Destination .json file in an allowed directory")),
)

var backupRestoreToolDef = mcp.NewTool("backup_restore",
	mcp.WithDescription("Replace the whole store with a backup. Malformed backups are rejected without changes."),
	mcp.WithString("path", mcp.Description("Backup .json file in an allowed directory")),
	mcp.WithString("backup", mcp.Description("Backup JSON, when no path is given")),
)

var settingsGetToolDef = mcp.NewTool("settings_get",
	mcp.WithDescription("Read the user settings."),
)

var settingsSaveToolDef = mcp.NewTool("settings_save",
	mcp.WithDescription("Overwrite the user settings."),
	mcp.WithString("user_name", mcp.Description("Author name")),
	mcp.WithBoolean("has_completed_onboarding", mcp.Description("Whether onboarding was completed")),
)
