package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Objects are fanned out over two directory levels taken from the key prefix.
func (ls *LocalStorage) pathFor(key string) string {
	return filepath.Join(ls.basePath, key[0:2], key[2:4], key)
}

func (ls *LocalStorage) Save(_ context.Context, key string, data io.Reader) error {
	if err := validateKey(key); err != nil {
		return err
	}
	filePath := ls.pathFor(key)

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), key+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filePath)
}

func (ls *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	file, err := os.Open(ls.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", key, ErrNotFound)
		}
		return nil, err
	}

	return file, nil
}

// Delete is idempotent: removing a missing object is not an error.
func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := os.Remove(ls.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}
