package pngutil

import (
	"fmt"
	"iter"

	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
)

// ChunkTypeSize is the width of the type field of a chunk.
const ChunkTypeSize = 4

// propertyBit is bit 5 of a type byte, the lower-case bit in ASCII.
const propertyBit = 0x20

// ChunkType is the four-letter code identifying a chunk. The case of each
// letter carries one property bit. ChunkType values are comparable with ==.
type ChunkType struct {
	typeBytes [ChunkTypeSize]byte
}

// ChunkTypeFromBytes validates b and wraps it. Every byte must be an ASCII
// letter.
func ChunkTypeFromBytes(b [ChunkTypeSize]byte) (ChunkType, error) {
	for _, c := range b {
		if !isTypeLetter(c) {
			return ChunkType{}, pngerrors.NewInvalidChunkTypeError(b[:])
		}
	}
	return ChunkType{typeBytes: b}, nil
}

// ParseChunkType builds a ChunkType from a four-byte string such as "IHDR".
// Strings of any other byte length are rejected, never truncated.
func ParseChunkType(s string) (ChunkType, error) {
	if len(s) != ChunkTypeSize {
		return ChunkType{}, pngerrors.ErrInvalidChunkType.
			WithDetail("bytes", fmt.Sprintf("%q", s)).
			WithDetail("length", len(s))
	}
	var b [ChunkTypeSize]byte
	copy(b[:], s)
	return ChunkTypeFromBytes(b)
}

// MustParseChunkType is like ParseChunkType but panics on error.
func MustParseChunkType(s string) ChunkType {
	t, err := ParseChunkType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func isTypeLetter(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

// Bytes returns a copy of the four type bytes.
func (t ChunkType) Bytes() [ChunkTypeSize]byte {
	return t.typeBytes
}

// IsValid reports whether the type passes the reserved-bit rule. The other
// property bits do not affect validity.
func (t ChunkType) IsValid() bool {
	return t.IsReservedBitValid()
}

// IsCritical reports whether the ancillary bit (byte 0) is clear.
func (t ChunkType) IsCritical() bool {
	return t.typeBytes[0]&propertyBit == 0
}

// IsPublic reports whether the private bit (byte 1) is clear.
func (t ChunkType) IsPublic() bool {
	return t.typeBytes[1]&propertyBit == 0
}

// IsReservedBitValid reports whether the reserved bit (byte 2) is clear.
func (t ChunkType) IsReservedBitValid() bool {
	return t.typeBytes[2]&propertyBit == 0
}

// IsSafeToCopy reports whether the safe-to-copy bit (byte 3) is set.
func (t ChunkType) IsSafeToCopy() bool {
	return t.typeBytes[3]&propertyBit != 0
}

// All yields the type bytes in order.
func (t ChunkType) All() iter.Seq[byte] {
	return func(yield func(byte) bool) {
		for _, b := range t.typeBytes {
			if !yield(b) {
				return
			}
		}
	}
}

// String returns the type as its four ASCII characters.
func (t ChunkType) String() string {
	return string(t.typeBytes[:])
}
