// Package compression provides the chunk compressors used by the exr package.
//
// The byte-oriented codecs (RLE, ZIP) work on an opaque buffer. PXR24 and
// HTJ2K need to know how the raw chunk is laid out, which a Layout
// describes: for every scanline in the chunk, each channel that is sampled
// on that line contributes Width samples of its pixel type, channels in
// name order.
package compression

// Pixel types, numbered as in the OpenEXR file format.
const (
	PixelTypeUint  = 0
	PixelTypeHalf  = 1
	PixelTypeFloat = 2
)

// ChannelInfo describes one channel of a chunk.
type ChannelInfo struct {
	Type      int // PixelTypeUint, PixelTypeHalf or PixelTypeFloat
	Width     int // samples per sampled line
	YSampling int
}

// Layout describes the raw byte layout of a block of scanlines.
type Layout struct {
	MinY     int // image y of the first line
	Lines    int
	Channels []ChannelInfo
}

func sampleSize(t int) int {
	if t == PixelTypeHalf {
		return 2
	}
	return 4
}

// Sampled reports whether channel c has samples on image line y.
func (l Layout) Sampled(c, y int) bool {
	s := l.Channels[c].YSampling
	if s <= 1 {
		return true
	}
	return ((y%s)+s)%s == 0
}

// RawSize returns the size in bytes of the uncompressed chunk.
func (l Layout) RawSize() int {
	n := 0
	for y := l.MinY; y < l.MinY+l.Lines; y++ {
		for c, ch := range l.Channels {
			if l.Sampled(c, y) {
				n += ch.Width * sampleSize(ch.Type)
			}
		}
	}
	return n
}
