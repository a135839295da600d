package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	m := NewMemoryFileSystem()

	w, err := m.Create("/out/clip.silent.mp4")
	require.NoError(t, err)
	_, err = w.Write([]byte("frame"))
	require.NoError(t, err)

	data, err := m.ReadFile("/out/clip.silent.mp4")
	require.NoError(t, err)
	assert.Empty(t, data, "bytes land on Close")

	require.NoError(t, w.Close())
	data, err = m.ReadFile("/out/clip.silent.mp4")
	require.NoError(t, err)
	assert.Equal(t, []byte("frame"), data)

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, fs.ErrClosed)
	assert.ErrorIs(t, w.Close(), fs.ErrClosed)
}

func TestMemoryFileSystem_ReadWrite(t *testing.T) {
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	src := []byte("abc")
	require.NoError(t, m.WriteFile("a/../b.txt", src, 0o644))
	src[0] = 'z'

	data, err := m.ReadFile("b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data, "WriteFile copies its input")

	data[0] = 'q'
	again, _ := m.ReadFile("b.txt")
	assert.Equal(t, []byte("abc"), again, "ReadFile returns a copy")
	assert.Equal(t, []string{"b.txt"}, m.Files())
}

func TestMemoryFileSystem_Dirs(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/reports/run1/previews", 0o755))

	assert.True(t, m.Exists("/reports"))
	assert.True(t, m.Exists("/reports/run1"))
	assert.True(t, m.Exists("/reports/run1/previews/"))

	require.NoError(t, m.WriteFile("/reports/run1/previews/f.png", nil, 0o644))
	err := m.Remove("/reports/run1/previews")
	assert.ErrorIs(t, err, fs.ErrExist, "non-empty directory")

	require.NoError(t, m.Remove("/reports/run1/previews/f.png"))
	require.NoError(t, m.Remove("/reports/run1/previews"))
	assert.False(t, m.Exists("/reports/run1/previews"))

	err = m.Remove("/reports/run1/previews")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = m.Create("/reports/run1")
	assert.Error(t, err, "cannot create a file over a directory")

	require.NoError(t, m.WriteFile("/plain", nil, 0o644))
	assert.Error(t, m.MkdirAll("/plain/sub", 0o755))
}

func TestOSFileSystem(t *testing.T) {
	var osfs OSFileSystem
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	require.NoError(t, osfs.MkdirAll(dir, 0o755))
	assert.True(t, osfs.Exists(dir))

	path := filepath.Join(dir, "out.txt")
	w, err := osfs.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := osfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, osfs.WriteFile(path, []byte("bye"), 0o644))
	data, err = osfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))

	require.NoError(t, osfs.Remove(path))
	assert.False(t, osfs.Exists(path))
}

var (
	_ FileSystem = OSFileSystem{}
	_ FileSystem = (*MemoryFileSystem)(nil)
)
