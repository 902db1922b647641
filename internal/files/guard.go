// Package files guards reads and writes of user-named files (backups and
// exports) and writes them atomically.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natasadenman-dotcom/authorsvoice/internal/config"
	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
)

// Mode says whether a path is about to be read or written.
type Mode int

const (
	Read Mode = iota
	Write
)

// Guard restricts file access to a set of directories. A file must sit
// directly in one of them: nested paths are refused so that no intermediate
// directory can be swapped for a symlink between the check and the open.
type Guard struct {
	dirs        []string
	allowUnsafe bool
}

// NewGuard allows defaultDir plus cfg.AllowedPaths. Relative allowed paths
// are ignored. Symlinked allowed directories are resolved.
func NewGuard(cfg *config.Config, defaultDir string) (*Guard, error) {
	dirs := []string{defaultDir}
	g := &Guard{}
	if cfg != nil {
		g.allowUnsafe = cfg.AllowUnsafePaths
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		if !slices.Contains(g.dirs, abs) {
			g.dirs = append(g.dirs, abs)
		}
	}
	return g, nil
}

// Dirs returns the allowed directories.
func (g *Guard) Dirs() []string {
	return slices.Clone(g.dirs)
}

// Check validates path for mode and returns its absolute form. The
// extension must be one of exts.
func (g *Guard) Check(path string, mode Mode, exts ...string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if hasTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if len(exts) > 0 && !slices.Contains(exts, strings.ToLower(filepath.Ext(cleaned))) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path must have one of the extensions %v", exts))
	}

	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if !g.allowUnsafe {
		parent := filepath.Dir(abs)
		if !slices.Contains(g.dirs, parent) {
			return "", errors.NewInvalidRequest(
				fmt.Sprintf("file must be directly in an allowed directory; allowed: %v", g.dirs))
		}
		if info, err := os.Lstat(parent); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return "", errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	info, err := os.Lstat(abs)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		// Refused even with allow_unsafe_paths.
		return "", errors.NewInvalidRequest("path must not be a symlink")
	case os.IsNotExist(err) && mode == Read:
		return "", errors.NewNotFound("file", path)
	}
	return abs, nil
}

// hasTraversal reports whether any path component is "..".
func hasTraversal(path string) bool {
	split := func(r rune) bool { return r == '/' || r == filepath.Separator }
	return slices.Contains(strings.FieldsFunc(path, split), "..")
}

// SafeName turns a title into a filename stem.
func SafeName(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r < 32 || r == 127:
			continue
		case r == '/' || r == '\\' || r == '.' || r == ' ' || r == ':':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		default:
			b.WriteRune(r)
			dash = false
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "untitled"
	}
	return name
}
