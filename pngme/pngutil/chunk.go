package pngutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"unicode/utf8"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
)

const (
	// LengthFieldSize is the width of the big-endian length prefix.
	LengthFieldSize = 4
	// CRCFieldSize is the width of the big-endian CRC suffix.
	CRCFieldSize = 4
	// ChunkOverhead is the number of bytes a chunk occupies besides its data.
	ChunkOverhead = LengthFieldSize + ChunkTypeSize + CRCFieldSize

	dataOffset = LengthFieldSize + ChunkTypeSize
)

// Chunk is a single length-prefixed, CRC-protected PNG record. It is immutable
// once built.
type Chunk struct {
	length    uint32
	chunkType ChunkType
	data      []byte
	checksum  uint32
}

// NewChunk builds a chunk from a type and payload. The chunk takes ownership
// of data; callers must not modify it afterwards. NewChunk panics if data is
// longer than a 32-bit length field can describe.
func NewChunk(chunkType ChunkType, data []byte) *Chunk {
	if uint64(len(data)) > math.MaxUint32 {
		panic(fmt.Sprintf("pngutil: chunk data of %d bytes exceeds the length field", len(data)))
	}
	return &Chunk{
		length:    uint32(len(data)),
		chunkType: chunkType,
		data:      data,
		checksum:  checksum(chunkType, data),
	}
}

// checksum is CRC-32/IEEE over the type bytes followed by the data. The
// length field is not covered.
func checksum(chunkType ChunkType, data []byte) uint32 {
	digest := crc32.NewIEEE()
	typeBytes := chunkType.Bytes()
	digest.Write(typeBytes[:])
	digest.Write(data)
	return digest.Sum32()
}

// ParseChunk decodes the chunk at the start of b. Bytes past the end of the
// chunk are ignored. The returned chunk does not alias b.
func ParseChunk(b []byte) (*Chunk, error) {
	if len(b) < ChunkOverhead {
		return nil, pngerrors.NewBufferTooShortError(ChunkOverhead, len(b))
	}

	length := binary.BigEndian.Uint32(b[0:LengthFieldSize])

	// 64-bit arithmetic so a huge length cannot wrap the bounds check.
	need := uint64(ChunkOverhead) + uint64(length)
	if uint64(len(b)) < need {
		return nil, pngerrors.NewBufferTooShortError(need, len(b))
	}

	var typeBytes [ChunkTypeSize]byte
	copy(typeBytes[:], b[LengthFieldSize:dataOffset])
	chunkType, err := ChunkTypeFromBytes(typeBytes)
	if err != nil {
		return nil, err
	}

	dataEnd := dataOffset + int(length)
	data := make([]byte, length)
	copy(data, b[dataOffset:dataEnd])
	crc := binary.BigEndian.Uint32(b[dataEnd : dataEnd+CRCFieldSize])

	return verify(length, chunkType, data, crc)
}

// ReadChunk reads exactly one chunk from r. It returns io.EOF only when r is
// exhausted before the first byte of the chunk.
func ReadChunk(r io.Reader) (*Chunk, error) {
	var header [dataOffset]byte
	n, err := io.ReadFull(r, header[:])
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case err == io.ErrUnexpectedEOF:
		return nil, pngerrors.NewBufferTooShortError(ChunkOverhead, n)
	case err != nil:
		return nil, fmt.Errorf("failed to read chunk header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[0:LengthFieldSize])

	var typeBytes [ChunkTypeSize]byte
	copy(typeBytes[:], header[LengthFieldSize:])
	chunkType, err := ChunkTypeFromBytes(typeBytes)
	if err != nil {
		return nil, err
	}

	// The buffer grows with what r actually delivers.
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r, int64(length)+CRCFieldSize)
	if err != nil {
		if err == io.EOF {
			return nil, pngerrors.NewBufferTooShortError(uint64(ChunkOverhead)+uint64(length), dataOffset+int(copied))
		}
		return nil, fmt.Errorf("failed to read chunk %s: %w", chunkType, err)
	}

	rest := buf.Bytes()
	data := rest[:length:length]
	crc := binary.BigEndian.Uint32(rest[length:])

	return verify(length, chunkType, data, crc)
}

// verify rebuilds the chunk from its parsed type and data and checks it
// against the length and CRC read from the input.
func verify(length uint32, chunkType ChunkType, data []byte, crc uint32) (*Chunk, error) {
	chunk := NewChunk(chunkType, data)
	if chunk.checksum != crc {
		return nil, pngerrors.NewChecksumMismatchError(chunk.checksum, crc)
	}
	if chunk.length != length {
		return nil, pngerrors.NewLengthMismatchError(chunk.length, length)
	}
	return chunk, nil
}

// Length returns the number of data bytes.
func (c *Chunk) Length() uint32 {
	return c.length
}

// OverallLength returns the encoded size of the chunk, data plus the length,
// type and CRC fields.
func (c *Chunk) OverallLength() uint64 {
	return uint64(c.length) + ChunkOverhead
}

// Type returns the chunk type.
func (c *Chunk) Type() ChunkType {
	return c.chunkType
}

// Data returns the payload. The slice must not be modified.
func (c *Chunk) Data() []byte {
	return c.data
}

// DataString returns the payload as text. It fails if the payload is not
// valid UTF-8.
func (c *Chunk) DataString() (string, error) {
	if !utf8.Valid(c.data) {
		return "", pngerrors.ErrInvalidUTF8.WithDetail("chunkType", c.chunkType.String())
	}
	return string(c.data), nil
}

// CRC returns the chunk checksum.
func (c *Chunk) CRC() uint32 {
	return c.checksum
}

// Bytes encodes the chunk: length, type, data and CRC.
func (c *Chunk) Bytes() []byte {
	out := make([]byte, 0, c.OverallLength())
	out = binary.BigEndian.AppendUint32(out, c.length)
	typeBytes := c.chunkType.Bytes()
	out = append(out, typeBytes[:]...)
	out = append(out, c.data...)
	out = binary.BigEndian.AppendUint32(out, c.checksum)
	return out
}

// WriteTo writes the encoded chunk to w.
func (c *Chunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Bytes())
	return int64(n), err
}

// String summarises the chunk without decoding its payload, which is often
// binary.
func (c *Chunk) String() string {
	return fmt.Sprintf("%s (length=%d, crc=0x%08x)", c.chunkType, c.length, c.checksum)
}
