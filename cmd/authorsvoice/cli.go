package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
	"github.com/natasadenman-dotcom/authorsvoice/internal/export"
	"github.com/natasadenman-dotcom/authorsvoice/internal/files"
	"github.com/natasadenman-dotcom/authorsvoice/internal/record"
	"github.com/natasadenman-dotcom/authorsvoice/internal/web"
)

// newCLIApp creates the CLI application with all commands. e may be nil
// for help and version output.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "authorsvoice",
		Usage:   "Dictate, polish and compile manuscripts",
		Version: Version,
		Commands: []*cli.Command{
			manuscriptCmd(e),
			docCmd(e),
			searchCmd(e),
			settingsCmd(e),
			backupCmd(e),
			exportCmd(e),
			dictateCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func manuscriptCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "manuscript",
		Usage: "Manage manuscripts",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List manuscripts",
				Action: func(c *cli.Context) error {
					return outputJSON(c, e.store.ListManuscripts(c.Context))
				},
			},
			{
				Name:  "save",
				Usage: "Create a manuscript, or rename one with --id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Manuscript ID to overwrite"},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Title"},
				},
				Action: func(c *cli.Context) error {
					title := strings.TrimSpace(c.String("title"))
					if title == "" {
						return outputError(errors.NewInvalidRequest("title is required"))
					}
					m, err := e.store.SaveManuscript(c.Context, record.Manuscript{
						ID:    strings.TrimSpace(c.String("id")),
						Title: title,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, m)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a manuscript and its chapters",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "manuscript ID")
					if err != nil {
						return outputError(err)
					}
					out, err := e.store.DeleteManuscript(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				},
			},
			{
				Name:      "compile",
				Usage:     "Concatenate a manuscript's chapters, oldest first",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "text", Usage: "Print only the compiled text"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "manuscript ID")
					if err != nil {
						return outputError(err)
					}
					out, err := e.store.CompileManuscript(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					if c.Bool("text") {
						_, err := fmt.Fprintln(c.App.Writer, out.Text)
						return err
					}
					return outputJSON(c, out)
				},
			},
		},
	}
}

func docCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "doc",
		Usage: "Manage documents (chapters and notes)",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List documents",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "manuscript", Aliases: []string{"m"}, Usage: "Only chapters of this manuscript"},
					&cli.BoolFlag{Name: "standalone", Usage: "Only documents outside any manuscript"},
				},
				Action: func(c *cli.Context) error {
					ms := c.String("manuscript")
					switch {
					case ms != "" && c.Bool("standalone"):
						return outputError(errors.NewInvalidRequest("--manuscript and --standalone are mutually exclusive"))
					case ms != "":
						return outputJSON(c, e.store.ListDocumentsByManuscript(c.Context, &ms))
					case c.Bool("standalone"):
						return outputJSON(c, e.store.ListDocumentsByManuscript(c.Context, nil))
					}
					return outputJSON(c, e.store.ListDocuments(c.Context))
				},
			},
			{
				Name:      "show",
				Usage:     "Show a document",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "document ID")
					if err != nil {
						return outputError(err)
					}
					doc, err := e.store.GetDocument(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, doc)
				},
			},
			{
				Name:  "save",
				Usage: "Create or overwrite a document (raw text from --text or stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Document ID to overwrite"},
					&cli.StringFlag{Name: "manuscript", Aliases: []string{"m"}, Usage: "Owning manuscript ID"},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title (derived from the text when empty)"},
					&cli.StringFlag{Name: "text", Usage: "Raw text"},
					&cli.StringFlag{Name: "polished", Usage: "Polished text"},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
				},
				Action: func(c *cli.Context) error {
					text := c.String("text")
					if !c.IsSet("text") && stdinHasData() {
						var err error
						if text, err = readStdin(); err != nil {
							return outputError(errors.NewInternal(err))
						}
					}

					doc := record.Document{
						ID:           strings.TrimSpace(c.String("id")),
						Title:        c.String("title"),
						RawText:      text,
						PolishedText: c.String("polished"),
						Tags:         parseTags(c.String("tags")),
					}
					if ms := c.String("manuscript"); ms != "" {
						doc.ManuscriptID = &ms
					}

					saved, err := e.store.SaveDocument(c.Context, record.TidyDocument(doc))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, saved)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "document ID")
					if err != nil {
						return outputError(err)
					}
					if err := e.store.DeleteDocument(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"id": id, "deleted": true})
				},
			},
			{
				Name:      "polish",
				Usage:     "Clean up a document's raw text with the configured model",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "document ID")
					if err != nil {
						return outputError(err)
					}
					doc, err := e.store.PolishDocument(c.Context, id, e.polisher)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, doc)
				},
			},
		},
	}
}

func searchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over documents",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum hits (default 20)"},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			hits, err := e.store.SearchDocuments(query, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, hits)
		},
	}
}

func settingsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change user settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show user settings",
				Action: func(c *cli.Context) error {
					return outputJSON(c, e.store.Settings(c.Context))
				},
			},
			{
				Name:  "save",
				Usage: "Update user settings; unset flags keep their value",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Author name"},
					&cli.BoolFlag{Name: "onboarded", Usage: "Mark onboarding as completed"},
				},
				Action: func(c *cli.Context) error {
					us := e.store.Settings(c.Context)
					if c.IsSet("name") {
						us.UserName = strings.TrimSpace(c.String("name"))
					}
					if c.IsSet("onboarded") {
						us.HasCompletedOnboarding = c.Bool("onboarded")
					}
					if err := e.store.SaveSettings(c.Context, us); err != nil {
						return outputError(err)
					}
					return outputJSON(c, us)
				},
			},
		},
	}
}

func backupCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Create or restore a whole-store backup",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Write a backup file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output .json path (default ~/.authorsvoice/backups/authorsvoice-<time>.json)"},
				},
				Action: func(c *cli.Context) error {
					blob, err := e.store.CreateBackup(c.Context)
					if err != nil {
						return outputError(err)
					}
					path := c.String("path")
					if path == "" {
						name := fmt.Sprintf("authorsvoice-%s.json", time.Now().UTC().Format("20060102-150405"))
						path = filepath.Join(e.baseDir, "backups", name)
					}
					abs, err := e.backups.WriteFile(path, blob, ".json")
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"path": abs, "bytes": len(blob)})
				},
			},
			{
				Name:      "restore",
				Usage:     "Replace the whole store with a backup file",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					path, err := requireArg(c, "backup path")
					if err != nil {
						return outputError(err)
					}
					blob, err := e.backups.ReadFile(path, ".json")
					if err != nil {
						return outputError(err)
					}
					out, err := e.store.RestoreBackup(c.Context, blob)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, out)
				},
			},
		},
	}
}

func exportCmd(e *env) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "markdown", Usage: "markdown|html"},
		&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default ~/.authorsvoice/exports/<title>.<ext>)"},
	}
	return &cli.Command{
		Name:  "export",
		Usage: "Export a document or a compiled manuscript",
		Subcommands: []*cli.Command{
			{
				Name:      "doc",
				Usage:     "Export one document",
				ArgsUsage: "<id>",
				Flags:     flags,
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "document ID")
					if err != nil {
						return outputError(err)
					}
					doc, err := e.store.GetDocument(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return writeExport(c, e, doc.Title, []export.Chapter{{Title: doc.Title, Body: doc.Body()}})
				},
			},
			{
				Name:      "manuscript",
				Usage:     "Export a compiled manuscript",
				ArgsUsage: "<id>",
				Flags:     flags,
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, "manuscript ID")
					if err != nil {
						return outputError(err)
					}
					m, err := e.store.GetManuscript(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					out, err := e.store.CompileManuscript(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					chapters := make([]export.Chapter, 0, len(out.Chapters))
					for _, ch := range out.Chapters {
						chapters = append(chapters, export.Chapter{Title: ch.Title, Body: ch.Body})
					}
					return writeExport(c, e, m.Title, chapters)
				},
			},
		},
	}
}

func writeExport(c *cli.Context, e *env, title string, chapters []export.Chapter) error {
	format, err := export.ParseFormat(c.String("format"))
	if err != nil {
		return outputError(errors.NewInvalidRequest(err.Error()))
	}
	data, err := export.Render(format, title, chapters)
	if err != nil {
		return outputError(errors.NewInternal(err))
	}

	path := c.String("path")
	if path == "" {
		path = filepath.Join(e.baseDir, "exports", files.SafeName(title)+format.Ext())
	}
	abs, err := e.exports.WriteFile(path, data, format.Ext())
	if err != nil {
		return outputError(err)
	}
	return outputJSON(c, map[string]any{"path": abs, "format": format, "chapters": len(chapters), "bytes": len(data)})
}

func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8420, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(e.store, web.Options{
				Version:  Version,
				Bind:     c.String("bind"),
				Port:     c.Int("port"),
				Polisher: e.polisher,
				Logger:   e.logger,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, e.logger)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats err for the CLI as "[CODE] message". Errors that
// carry no code report as INTERNAL.
func outputError(err error) error {
	msg := err.Error()
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		msg = appErr.Message
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", errors.CodeOf(err), msg), 1)
}

func requireArg(c *cli.Context, what string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", errors.NewInvalidRequest(what + " is required")
	}
	return arg, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
