package files

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
)

// MaxReadBytes caps how much ReadFile will load.
const MaxReadBytes = 64 << 20

// WriteFile checks path and writes data through a temp file that is renamed
// into place, so an existing file survives a failed write.
func (g *Guard) WriteFile(path string, data []byte, exts ...string) (string, error) {
	abs, err := g.Check(path, Write, exts...)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
		return "", errors.NewInternal(fmt.Errorf("create directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", errors.NewInternal(fmt.Errorf("temp file name: %w", err))
	}
	tmp := abs + "." + hex.EncodeToString(suffix) + ".tmp"

	f, err := openNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("create temp file: %w", err))
	}
	done := false
	defer func() {
		if f != nil {
			f.Close()
		}
		if !done {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return "", errors.NewInternal(err)
	}
	if err := f.Sync(); err != nil {
		return "", errors.NewInternal(err)
	}
	if err := f.Close(); err != nil {
		return "", errors.NewInternal(fmt.Errorf("close temp file: %w", err))
	}
	f = nil

	// os.Rename would follow a symlink planted since the check.
	if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return "", errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tmp, abs); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(abs); statErr == nil {
				return "", errors.NewInvalidRequest("destination already exists; choose a new path")
			}
		}
		return "", errors.NewInternal(fmt.Errorf("finalize %s: %w", abs, err))
	}

	done = true
	return abs, nil
}

// ReadFile checks path and reads it without following a symlink.
func (g *Guard) ReadFile(path string, exts ...string) ([]byte, error) {
	abs, err := g.Check(path, Read, exts...)
	if err != nil {
		return nil, err
	}
	f, err := openNoFollowRead(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxReadBytes+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if len(data) > MaxReadBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("file exceeds %d bytes", MaxReadBytes))
	}
	return data, nil
}
