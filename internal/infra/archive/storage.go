package archive

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("archive: object not found")

// StoredObject describes an uploaded blob.
type StoredObject struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

// ObjectStorage abstracts the blob store behind the archive.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
