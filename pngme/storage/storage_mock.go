package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/opencontainers/go-digest"
)

// MockStorage is a simple in-memory Storage implementation for tests.
type MockStorage struct {
	mu     sync.RWMutex
	images map[string][]byte
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage constructs an empty MockStorage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		images: make(map[string][]byte),
	}
}

// Stat returns the descriptor of a stored image, digest included.
func (m *MockStorage) Stat(ctx context.Context, name string) (ImageDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.images[name]
	if !ok {
		return ImageDescriptor{}, pngerrors.NewImageNotFoundError(name, nil)
	}
	return ImageDescriptor{
		Name:   name,
		Size:   int64(len(data)),
		Digest: digest.FromBytes(data),
	}, nil
}

// Open returns a reader over a stored image.
func (m *MockStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.images[name]
	if !ok {
		return nil, pngerrors.NewImageNotFoundError(name, nil)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Write stores a copy of data under name.
func (m *MockStorage) Write(ctx context.Context, name string, data []byte) (ImageDescriptor, error) {
	m.AddImage(name, data)
	return ImageDescriptor{
		Name:   name,
		Size:   int64(len(data)),
		Digest: digest.FromBytes(data),
	}, nil
}

// AddImage adds image content to the mock storage.
func (m *MockStorage) AddImage(name string, data []byte) digest.Digest {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.images[name] = append([]byte(nil), data...)
	return digest.FromBytes(data)
}

// Image returns a copy of the content stored under name.
func (m *MockStorage) Image(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.images[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}
