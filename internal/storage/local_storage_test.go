package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	tempDir := t.TempDir() + "/nested/blobs"

	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)
	require.NotNil(t, storage)
	require.Equal(t, tempDir, storage.basePath)

	_, err = os.Stat(tempDir)
	require.NoError(t, err, "Base directory should be created")
}

func TestLocalStorage_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "V1StGXR8_Z5jdHi6B-myT"
	content := "Hello, world!"

	err = storage.Save(ctx, key, strings.NewReader(content))
	require.NoError(t, err)

	expectedPath := storage.pathFor(key)
	require.Contains(t, expectedPath, "V1/St/"+key)
	fileInfo, err := os.Stat(expectedPath)
	require.NoError(t, err, "File should exist after save")
	require.Equal(t, int64(len(content)), fileInfo.Size())

	readCloser, err := storage.Get(ctx, key)
	require.NoError(t, err)
	retrieved, err := io.ReadAll(readCloser)
	require.NoError(t, err)
	require.NoError(t, readCloser.Close())
	require.Equal(t, content, string(retrieved))

	err = storage.Delete(ctx, key)
	require.NoError(t, err)

	_, err = os.Stat(expectedPath)
	require.True(t, os.IsNotExist(err), "File should not exist after delete")
}

func TestLocalStorage_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "overwrite_key_0001"
	require.NoError(t, storage.Save(ctx, key, strings.NewReader("first")))
	require.NoError(t, storage.Save(ctx, key, strings.NewReader("second")))

	rc, err := storage.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
}

func TestLocalStorage_GetNonExistent(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = storage.Get(context.Background(), "non_existent_id")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_DeleteNonExistent(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, storage.Delete(context.Background(), "non_existent_id"))
}

func TestLocalStorage_RejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "abc", "../../etc/passwd", "ab/cdef", `ab\cdef`, "abcd.txt"} {
		err := storage.Save(ctx, key, strings.NewReader("x"))
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestLocalStorage_SaveWithLargeData(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := "large_file_id"
	largeContent := bytes.Repeat([]byte{'a'}, 1024*1024)

	err = storage.Save(context.Background(), key, bytes.NewReader(largeContent))
	require.NoError(t, err)

	fileInfo, err := os.Stat(storage.pathFor(key))
	require.NoError(t, err)
	require.Equal(t, int64(len(largeContent)), fileInfo.Size())
}

func TestNewKey(t *testing.T) {
	a, err := NewKey()
	require.NoError(t, err)
	b, err := NewKey()
	require.NoError(t, err)

	require.Len(t, a, KeyLength)
	require.NotEqual(t, a, b)
	require.NoError(t, validateKey(a))
}
