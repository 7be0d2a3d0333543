package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/opencontainers/go-digest"
)

func readAll(t *testing.T, s Storage, name string) []byte {
	t.Helper()
	rc, err := s.Open(context.Background(), name)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll(%s) error = %v", name, err)
	}
	return data
}

func TestLocalStorage_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir)
	ctx := context.Background()

	data := []byte("\x89PNG\r\n\x1a\nnot really")
	desc, err := s.Write(ctx, "nested/out.png", data)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if desc.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", desc.Size, len(data))
	}
	if desc.Digest != digest.FromBytes(data) {
		t.Errorf("Digest = %s, want %s", desc.Digest, digest.FromBytes(data))
	}

	if got := readAll(t, s, "nested/out.png"); string(got) != string(data) {
		t.Errorf("read back %q, want %q", got, data)
	}

	stat, err := s.Stat(ctx, "nested/out.png")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Size != int64(len(data)) {
		t.Errorf("Stat().Size = %d, want %d", stat.Size, len(data))
	}

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (temporary file left behind?)", len(entries))
	}
}

func TestLocalStorage_WriteKeepsMode(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "image.png")
	if err := os.WriteFile(target, []byte("old"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := NewLocalStorage("")
	if _, err := s.Write(context.Background(), target, []byte("new")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLocalStorage_WriteThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	realPath := filepath.Join(dir, "real.png")
	link := filepath.Join(dir, "link.png")
	if err := os.WriteFile(realPath, []byte("old"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Symlink(realPath, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	s := NewLocalStorage(dir)
	if _, err := s.Write(context.Background(), "link.png", []byte("new")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat() error = %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("link.png was replaced by a regular file")
	}
	got, err := os.ReadFile(realPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "new" {
		t.Errorf("real.png = %q, want new", got)
	}
}

func TestLocalStorage_NotFound(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	if _, err := s.Open(ctx, "missing.png"); !errors.Is(err, pngerrors.ErrImageNotFound) {
		t.Errorf("Open() error = %v, want ErrImageNotFound", err)
	}
	if _, err := s.Stat(ctx, "missing.png"); !errors.Is(err, pngerrors.ErrImageNotFound) {
		t.Errorf("Stat() error = %v, want ErrImageNotFound", err)
	}
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Write(ctx, "x.png", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
}

func TestMockStorage(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	data := []byte("image bytes")
	dgst := m.AddImage("a.png", data)
	if dgst != digest.FromBytes(data) {
		t.Errorf("AddImage() = %s, want %s", dgst, digest.FromBytes(data))
	}

	desc, err := m.Stat(ctx, "a.png")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if desc.Digest != dgst || desc.Size != int64(len(data)) {
		t.Errorf("Stat() = %+v", desc)
	}

	if got := readAll(t, m, "a.png"); string(got) != "image bytes" {
		t.Errorf("Open() content = %q", got)
	}

	if _, err := m.Write(ctx, "a.png", []byte("replaced")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got, _ := m.Image("a.png"); string(got) != "replaced" {
		t.Errorf("Image() = %q, want replaced", got)
	}

	if _, err := m.Open(ctx, "b.png"); !errors.Is(err, pngerrors.ErrImageNotFound) {
		t.Errorf("Open() error = %v, want ErrImageNotFound", err)
	}
}
