package pngme

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/flaneur2020/pngme/pngme/pngutil"
	"github.com/flaneur2020/pngme/pngme/storage"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// printConcurrency caps how many files Print loads at once.
const printConcurrency = 4

// ProgressCallback is called while a file is read from storage
// current: bytes read so far
// total: total size of all files being read
type ProgressCallback func(current int64, total int64)

// EncodeArgs describes a message to hide in a PNG file.
type EncodeArgs struct {
	Path      string
	ChunkType string
	Message   string
	// Output is where the result is written; empty means Path.
	Output   string
	Compress bool
	Progress ProgressCallback
}

// DecodeArgs selects the chunk whose message is returned.
type DecodeArgs struct {
	Path       string
	ChunkType  string
	Compressed bool
	Progress   ProgressCallback
}

// RemoveArgs selects the chunk to drop from a PNG file.
type RemoveArgs struct {
	Path      string
	ChunkType string
	Progress  ProgressCallback
}

// PrintArgs lists the files to summarise.
type PrintArgs struct {
	Paths    []string
	Progress ProgressCallback
}

type Commands interface {
	// Encode appends a chunk holding the message and writes the file.
	Encode(ctx context.Context, args EncodeArgs) (storage.ImageDescriptor, error)
	// Decode returns the message of the first chunk of the given type.
	Decode(ctx context.Context, args DecodeArgs) (string, error)
	// Remove drops the first chunk of the given type, rewrites the file and
	// returns the removed chunk.
	Remove(ctx context.Context, args RemoveArgs) (*pngutil.Chunk, error)
	// Print loads every file concurrently and returns summaries in input order.
	Print(ctx context.Context, args PrintArgs) ([]*ImageSummary, error)
}

type commands struct {
	storage storage.Storage
}

func NewCommands(store storage.Storage) Commands {
	return &commands{
		storage: store,
	}
}

func (c *commands) Encode(ctx context.Context, args EncodeArgs) (storage.ImageDescriptor, error) {
	chunkType, err := pngutil.ParseChunkType(args.ChunkType)
	if err != nil {
		return storage.ImageDescriptor{}, err
	}
	if chunkType.IsCritical() {
		logger.Warn("Chunk type %s is critical; decoders that do not know it will reject the image", chunkType)
	}
	if !chunkType.IsValid() {
		logger.Warn("Chunk type %s has the reserved bit set", chunkType)
	}

	png, _, err := c.load(ctx, args.Path, c.newTracker(ctx, []string{args.Path}, args.Progress))
	if err != nil {
		return storage.ImageDescriptor{}, err
	}

	payload := []byte(args.Message)
	if args.Compress {
		payload, err = deflatePayload(payload)
		if err != nil {
			return storage.ImageDescriptor{}, err
		}
		logger.Debug("Compressed %d message bytes to %d", len(args.Message), len(payload))
	}

	chunk := pngutil.NewChunk(chunkType, payload)
	png.AppendChunk(chunk)
	logger.Info("Appended %s to %s", chunk, args.Path)

	output := args.Output
	if output == "" {
		output = args.Path
	}
	return c.storage.Write(ctx, output, png.Bytes())
}

func (c *commands) Decode(ctx context.Context, args DecodeArgs) (string, error) {
	chunkType, err := pngutil.ParseChunkType(args.ChunkType)
	if err != nil {
		return "", err
	}

	png, _, err := c.load(ctx, args.Path, c.newTracker(ctx, []string{args.Path}, args.Progress))
	if err != nil {
		return "", err
	}

	chunk := png.ChunkByType(chunkType.String())
	if chunk == nil {
		return "", chunkNotFound(chunkType, args.Path)
	}
	logger.Debug("Found %s in %s", chunk, args.Path)

	if args.Compressed {
		inflated, err := inflatePayload(chunk.Data())
		if err != nil {
			return "", err
		}
		chunk = pngutil.NewChunk(chunkType, inflated)
	}
	return chunk.DataString()
}

func (c *commands) Remove(ctx context.Context, args RemoveArgs) (*pngutil.Chunk, error) {
	chunkType, err := pngutil.ParseChunkType(args.ChunkType)
	if err != nil {
		return nil, err
	}

	png, _, err := c.load(ctx, args.Path, c.newTracker(ctx, []string{args.Path}, args.Progress))
	if err != nil {
		return nil, err
	}

	removed, err := png.RemoveFirstChunk(chunkType.String())
	if err != nil {
		return nil, chunkNotFound(chunkType, args.Path)
	}

	if _, err := c.storage.Write(ctx, args.Path, png.Bytes()); err != nil {
		return nil, err
	}
	logger.Info("Removed %s from %s", removed, args.Path)
	return removed, nil
}

func (c *commands) Print(ctx context.Context, args PrintArgs) ([]*ImageSummary, error) {
	tracker := c.newTracker(ctx, args.Paths, args.Progress)

	summaries := make([]*ImageSummary, len(args.Paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(printConcurrency)

	for i, name := range args.Paths {
		g.Go(func() error {
			png, desc, err := c.load(gctx, name, tracker)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			summary := &ImageSummary{ImageDescriptor: desc}
			for _, chunk := range png.Chunks() {
				summary.Chunks = append(summary.Chunks, summarizeChunk(chunk))
			}
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// load reads a whole file through storage and parses it.
func (c *commands) load(ctx context.Context, name string, tracker *progressTracker) (*pngutil.Png, storage.ImageDescriptor, error) {
	desc, err := c.storage.Stat(ctx, name)
	if err != nil {
		return nil, storage.ImageDescriptor{}, err
	}

	rc, err := c.storage.Open(ctx, name)
	if err != nil {
		return nil, storage.ImageDescriptor{}, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if tracker != nil {
		r = &progressReader{
			reader:  rc,
			tracker: tracker,
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, storage.ImageDescriptor{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	desc.Size = int64(len(data))
	desc.Digest = digest.FromBytes(data)
	logger.Debug("Loaded %s (%d bytes, %s)", name, desc.Size, desc.Digest)

	png, err := pngutil.ReadPng(bytes.NewReader(data))
	if err != nil {
		logger.Error("Failed to parse %s: %v", name, err)
		return nil, storage.ImageDescriptor{}, err
	}
	return png, desc, nil
}

// newTracker sums the sizes of names so that progress is reported against
// all of them. It returns nil when callback is nil.
func (c *commands) newTracker(ctx context.Context, names []string, callback ProgressCallback) *progressTracker {
	if callback == nil {
		return nil
	}
	tracker := &progressTracker{callback: callback}
	for _, name := range names {
		if desc, err := c.storage.Stat(ctx, name); err == nil {
			tracker.total += desc.Size
		}
	}
	return tracker
}

func chunkNotFound(chunkType pngutil.ChunkType, name string) error {
	return pngerrors.ErrChunkNotFound.
		WithDetail("chunkType", chunkType.String()).
		WithDetail("path", name)
}

// progressTracker accumulates bytes read by concurrent loads.
type progressTracker struct {
	mu       sync.Mutex
	current  int64
	total    int64
	callback ProgressCallback
}

func (t *progressTracker) add(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current += n
	t.callback(t.current, t.total)
}

// progressReader wraps an io.Reader to report read progress
type progressReader struct {
	reader  io.Reader
	tracker *progressTracker
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.tracker.add(int64(n))
	}
	return n, err
}
