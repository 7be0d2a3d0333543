package pngme

import (
	"bytes"
	"fmt"
	"io"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/klauspost/compress/zlib"
)

// maxInflatedSize bounds how much a compressed payload may expand to.
var maxInflatedSize = 64 << 20

// deflatePayload zlib-compresses a message before it is stored in a chunk.
func deflatePayload(message []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := zw.Write(message); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish compressed payload: %w", err)
	}
	return buf.Bytes(), nil
}

// inflatePayload reverses deflatePayload.
func inflatePayload(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, pngerrors.ErrInvalidCompressedPayload.WithCause(err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(maxInflatedSize)+1))
	if err != nil {
		return nil, pngerrors.ErrInvalidCompressedPayload.WithCause(err)
	}
	if len(out) > maxInflatedSize {
		return nil, pngerrors.ErrInvalidCompressedPayload.
			WithMessage(fmt.Sprintf("decompressed payload exceeds %d bytes", maxInflatedSize))
	}
	return out, nil
}
