package storage

import (
	"context"
	"io"
	"time"
)

// Storage abstracts the receipt object store
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PublicURL(key string) string
}
