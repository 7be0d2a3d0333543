package pngutil

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
)

// Signature is the eight-byte header every PNG datastream starts with.
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Png is a PNG datastream viewed as its signature followed by a chunk list.
// Pixel data is never decoded.
type Png struct {
	chunks []*Chunk
}

// NewPng wraps chunks, which are kept in order.
func NewPng(chunks []*Chunk) *Png {
	return &Png{chunks: chunks}
}

// ParsePng decodes a complete PNG held in memory.
func ParsePng(b []byte) (*Png, error) {
	return ReadPng(bytes.NewReader(b))
}

// ReadPng checks the signature and then reads chunks until r is exhausted.
// A malformed chunk aborts the read; the error names its index and offset.
func ReadPng(r io.Reader) (*Png, error) {
	br := bufio.NewReader(r)

	var sig [len(Signature)]byte
	if _, err := io.ReadFull(br, sig[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, pngerrors.ErrInvalidSignature.WithCause(err)
		}
		return nil, fmt.Errorf("failed to read signature: %w", err)
	}
	if sig != Signature {
		return nil, pngerrors.ErrInvalidSignature.WithDetail("signature", fmt.Sprintf("% x", sig[:]))
	}

	p := &Png{}
	offset := uint64(len(Signature))
	for {
		chunk, err := ReadChunk(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chunk %d at offset %d: %w", len(p.chunks), offset, err)
		}
		p.chunks = append(p.chunks, chunk)
		offset += chunk.OverallLength()
	}
	return p, nil
}

// Header returns the PNG signature.
func (p *Png) Header() [8]byte {
	return Signature
}

// Chunks returns the chunks in file order.
func (p *Png) Chunks() []*Chunk {
	return p.chunks
}

// AppendChunk adds chunk at the end of the chunk list.
func (p *Png) AppendChunk(chunk *Chunk) {
	p.chunks = append(p.chunks, chunk)
}

// ChunkByType returns the first chunk whose type is chunkType, or nil.
func (p *Png) ChunkByType(chunkType string) *Chunk {
	for _, c := range p.chunks {
		if c.chunkType.String() == chunkType {
			return c
		}
	}
	return nil
}

// RemoveFirstChunk removes and returns the first chunk whose type is
// chunkType.
func (p *Png) RemoveFirstChunk(chunkType string) (*Chunk, error) {
	for i, c := range p.chunks {
		if c.chunkType.String() != chunkType {
			continue
		}
		p.chunks = append(p.chunks[:i:i], p.chunks[i+1:]...)
		return c, nil
	}
	return nil, pngerrors.NewChunkNotFoundError(chunkType)
}

// Bytes encodes the signature followed by every chunk.
func (p *Png) Bytes() []byte {
	size := uint64(len(Signature))
	for _, c := range p.chunks {
		size += c.OverallLength()
	}
	out := make([]byte, 0, size)
	out = append(out, Signature[:]...)
	for _, c := range p.chunks {
		out = append(out, c.Bytes()...)
	}
	return out
}

// WriteTo writes the encoded PNG to w.
func (p *Png) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(Signature[:])
	total := int64(n)
	if err != nil {
		return total, err
	}
	for _, c := range p.chunks {
		m, err := c.WriteTo(w)
		total += m
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String lists the chunks one per line.
func (p *Png) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PNG with %d chunks\n", len(p.chunks))
	for i, c := range p.chunks {
		fmt.Fprintf(&sb, "  %d: %s\n", i, c)
	}
	return sb.String()
}
