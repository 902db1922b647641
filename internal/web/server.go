// Package web serves the browser UI for documents, manuscripts, search and
// backups.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/natasadenman-dotcom/authorsvoice/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures the web server.
type Options struct {
	Version  string
	Bind     string
	Port     int
	Polisher store.Polisher
	Logger   *slog.Logger
}

// NewServer creates the HTTP server for the web UI.
func NewServer(st *store.Store, opts Options) (*http.Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	h := &Handlers{
		store:    st,
		polisher: opts.Polisher,
		renderer: NewRenderer(templateSub, opts.Version, opts.Logger),
		logger:   opts.Logger,
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           securityHeaders(routes(h, staticSub)),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func routes(h *Handlers, static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/documents", http.StatusFound)
	})

	mux.HandleFunc("GET /documents", h.HandleDocuments)
	mux.HandleFunc("GET /documents/new", h.HandleNewDocument)
	mux.HandleFunc("POST /documents", h.HandleSaveDocument)
	mux.HandleFunc("GET /documents/{id}", h.HandleDocument)
	mux.HandleFunc("POST /documents/{id}", h.HandleSaveDocument)
	mux.HandleFunc("DELETE /documents/{id}", h.HandleDeleteDocument)
	mux.HandleFunc("POST /documents/{id}/delete", h.HandleDeleteDocument)
	mux.HandleFunc("POST /documents/{id}/polish", h.HandlePolishDocument)
	mux.HandleFunc("GET /documents/{id}/export", h.HandleExportDocument)

	mux.HandleFunc("GET /manuscripts", h.HandleManuscripts)
	mux.HandleFunc("POST /manuscripts", h.HandleSaveManuscript)
	mux.HandleFunc("GET /manuscripts/{id}", h.HandleManuscript)
	mux.HandleFunc("POST /manuscripts/{id}", h.HandleSaveManuscript)
	mux.HandleFunc("DELETE /manuscripts/{id}", h.HandleDeleteManuscript)
	mux.HandleFunc("POST /manuscripts/{id}/delete", h.HandleDeleteManuscript)
	mux.HandleFunc("GET /manuscripts/{id}/export", h.HandleExportManuscript)

	mux.HandleFunc("GET /search", h.HandleSearch)
	mux.HandleFunc("GET /settings", h.HandleSettings)
	mux.HandleFunc("POST /settings", h.HandleSaveSettings)
	mux.HandleFunc("GET /backup", h.HandleBackup)
	mux.HandleFunc("POST /backup/restore", h.HandleRestore)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("web UI running", "url", "http://"+srv.Addr)
	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.HasPrefix(srv.Addr, "[::]:") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn("server is binding to all interfaces and may be reachable from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
