package storage

import (
	"context"
	"io"
)

// Reader provides read access to stored images
type Reader interface {
	// GetReader returns a reader for the image at the given key
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
}

// Metadata contains storage object metadata
type Metadata struct {
	Size int64
}

// ReaderWithMetadata provides read access with metadata
type ReaderWithMetadata interface {
	Reader

	// GetMetadata returns metadata for the image at the given key
	GetMetadata(ctx context.Context, key string) (*Metadata, error)
}

// Lister enumerates keys in a flat directory
type Lister interface {
	List(ctx context.Context, match func(name string) bool) ([]string, error)
}

// Writer stores derived images
type Writer interface {
	// PutAtomic streams write's output into key, replacing any existing
	// object only once write has succeeded. Returns the bytes written.
	PutAtomic(ctx context.Context, key string, write func(w io.Writer) error) (int64, error)
}
