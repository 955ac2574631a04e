package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestCreateDirIfNotExist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	require.NoError(t, CreateDirIfNotExist(dir))
	require.NoError(t, CreateDirIfNotExist(dir))
	assert.True(t, FileExist(dir))
}

func TestWriteFileAtomic(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "healthdesk.db")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0600))

	t.Run("replaces contents", func(t *testing.T) {
		require.NoError(t, WriteFileAtomic(dest, strings.NewReader("new")))

		content, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "new", string(content))
	})

	t.Run("keeps destination on failure", func(t *testing.T) {
		assert.Error(t, WriteFileAtomic(dest, failingReader{}))

		content, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "new", string(content))

		entries, err := os.ReadDir(filepath.Dir(dest))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
