package pngme

import (
	"github.com/flaneur2020/pngme/pngme/pngutil"
	"github.com/flaneur2020/pngme/pngme/storage"
)

// ImageSummary describes one PNG file and its chunk list.
type ImageSummary struct {
	storage.ImageDescriptor
	Chunks []ChunkSummary
}

// ChunkSummary is the printable view of one chunk.
type ChunkSummary struct {
	Type       string
	Length     uint32
	CRC        uint32
	Critical   bool
	Public     bool
	SafeToCopy bool
	Valid      bool
}

func summarizeChunk(c *pngutil.Chunk) ChunkSummary {
	t := c.Type()
	return ChunkSummary{
		Type:       t.String(),
		Length:     c.Length(),
		CRC:        c.CRC(),
		Critical:   t.IsCritical(),
		Public:     t.IsPublic(),
		SafeToCopy: t.IsSafeToCopy(),
		Valid:      t.IsValid(),
	}
}
