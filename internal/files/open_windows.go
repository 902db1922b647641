//go:build windows

package files

import (
	"os"

	"github.com/natasadenman-dotcom/authorsvoice/internal/errors"
)

// openNoFollow has no O_NOFOLLOW on Windows; Check has already refused
// symlinks.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

func openNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("file", path)
	}
	return f, err
}
