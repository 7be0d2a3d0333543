package storage

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"
)

// ImageDescriptor describes a PNG file held by storage.
type ImageDescriptor struct {
	Name   string
	Size   int64
	Digest digest.Digest // empty when the content has not been hashed
}

// Storage abstracts reading and replacing whole PNG files.
type Storage interface {
	Stat(ctx context.Context, name string) (ImageDescriptor, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Write replaces the content stored under name.
	Write(ctx context.Context, name string, data []byte) (ImageDescriptor, error)
}
