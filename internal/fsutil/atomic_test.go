package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "table.csv")

	require.NoError(t, AtomicWriteBytes(path, []byte("a,b\n1,2\n")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not remain")
}

func TestAtomicWriteFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	err := AtomicWrite(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return fmt.Errorf("renderer failed")
	})
	require.Error(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWritePermissions(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		write func(path string) error
	}{
		{"bytes", func(p string) error { return AtomicWriteBytes(p, []byte("x")) }},
		{"writer", func(p string) error {
			return AtomicWrite(p, func(w io.Writer) error {
				_, err := io.WriteString(w, "x")
				return err
			})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".txt")
			require.NoError(t, tt.write(path))
			info, err := os.Stat(path)
			require.NoError(t, err)
			// umask は書き込み権限を落とすことしかない
			assert.Equal(t, os.FileMode(0), info.Mode().Perm()&^os.FileMode(0o644))
			assert.NotZero(t, info.Mode().Perm()&0o400)
		})
	}
}

func TestAtomicWriteOverTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, AtomicWriteBytes(path, []byte("old")))
	require.NoError(t, AtomicWriteBytes(path, []byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
