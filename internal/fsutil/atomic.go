// Package fsutil holds small file-system helpers shared by the exporters.
package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

const filePerm = 0o644

// AtomicWrite writes the output of fn to path through a pending file in the
// same directory and renames it into place. A reader never observes a
// partially written file; on failure the pending file is removed.
func AtomicWrite(path string, fn func(w io.Writer) error) error {
	dir, err := ensureDir(path)
	if err != nil {
		return err
	}

	t, err := renameio.NewPendingFile(path, renameio.WithTempDir(dir), renameio.WithPermissions(filePerm))
	if err != nil {
		return errors.Wrapf(err, "create pending file for %s", path)
	}
	defer func() { _ = t.Cleanup() }()

	if err := fn(t); err != nil {
		return err
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}

// AtomicWriteBytes is AtomicWrite for an in-memory payload.
func AtomicWriteBytes(path string, data []byte) error {
	dir, err := ensureDir(path)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, filePerm, renameio.WithTempDir(dir)); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func ensureDir(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create directory %s", dir)
	}
	return dir, nil
}
