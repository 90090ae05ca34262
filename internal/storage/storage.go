// Package storage keeps uploaded file content and avatars under opaque keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"fileshare/internal/config"

	"github.com/jaevor/go-nanoid"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type Storage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

const KeyLength = 21

// NewKey returns a fresh random object key.
func NewKey() (string, error) {
	gen, err := nanoid.Standard(KeyLength)
	if err != nil {
		return "", fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}
	return gen(), nil
}

// New builds the driver selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal:
		return NewLocalStorage(cfg.Path)
	case config.StorageDriverS3:
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func validateKey(key string) error {
	if len(key) < 4 || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
