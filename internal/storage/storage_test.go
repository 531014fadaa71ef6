package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "profile_pics"))
	require.NoError(t, err)

	err = store.Save("avatar.png", bytes.NewBufferString("png bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(store.Dir(), "avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestLocalStorageCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "profile_pics")

	_, err := NewLocalStorage(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorageStripsPathComponents(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = store.Save("../../etc/passwd", bytes.NewBufferString("nope"))
	require.NoError(t, err)

	// the file lands inside the upload dir under its base name only
	_, err = os.Stat(filepath.Join(store.Dir(), "passwd"))
	assert.NoError(t, err)
}

func TestLocalStorageURL(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/static/profile_pics/abc.png", store.URL("abc.png"))
	assert.Equal(t, "/static/profile_pics/abc.png", store.URL("../abc.png"))
}
