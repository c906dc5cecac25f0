package exr

import (
	"fmt"

	"github.com/mrjoshuak/exrpremiere/compression"
	"github.com/mrjoshuak/exrpremiere/internal/interleave"
	"github.com/mrjoshuak/exrpremiere/internal/predictor"
)

// chunkLayout describes the raw bytes of the chunk starting at line y0.
func chunkLayout(channels []Channel, dw Box2i, y0, lines int) compression.Layout {
	l := compression.Layout{
		MinY:     y0,
		Lines:    lines,
		Channels: make([]compression.ChannelInfo, len(channels)),
	}
	w := dw.Width()
	for i, c := range channels {
		l.Channels[i] = compression.ChannelInfo{
			Type:      int(c.Type),
			Width:     w / int(c.XSampling),
			YSampling: int(c.YSampling),
		}
	}
	return l
}

// compressChunk encodes a raw chunk. When the encoded form is not smaller
// than the raw data, the raw data is returned instead, as readers treat a
// chunk whose size equals the raw size as uncompressed.
func compressChunk(c Compression, raw []byte, layout compression.Layout) ([]byte, error) {
	var out []byte
	var err error
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionRLE:
		tmp := make([]byte, len(raw))
		interleave.Split(tmp, raw)
		predictor.Encode(tmp)
		out = compression.RLECompress(tmp)
	case CompressionZIPS, CompressionZIP:
		tmp := make([]byte, len(raw))
		interleave.Split(tmp, raw)
		predictor.Encode(tmp)
		out, err = compression.ZIPCompress(tmp)
	case CompressionPXR24:
		out, err = compression.PXR24Compress(raw, layout)
	case CompressionHTJ2K256:
		out, err = compression.HTJ2KCompress(raw, layout, 128)
	case CompressionHTJ2K32:
		out, err = compression.HTJ2KCompress(raw, layout, 32)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
	if err != nil {
		return nil, err
	}
	if len(out) >= len(raw) {
		return raw, nil
	}
	return out, nil
}

// decompressChunk decodes src into a new buffer of layout.RawSize() bytes.
func decompressChunk(c Compression, src []byte, layout compression.Layout) ([]byte, error) {
	rawSize := layout.RawSize()
	if len(src) == rawSize {
		return src, nil
	}
	if len(src) > rawSize {
		return nil, fmt.Errorf("%w: %d bytes for %d byte chunk", ErrCorruptChunk, len(src), rawSize)
	}

	out := make([]byte, rawSize)
	var err error
	switch c {
	case CompressionNone:
		err = fmt.Errorf("uncompressed chunk has %d bytes, want %d", len(src), rawSize)
	case CompressionRLE:
		tmp := make([]byte, rawSize)
		if err = compression.RLEDecompressTo(tmp, src); err == nil {
			predictor.Decode(tmp)
			interleave.Merge(out, tmp)
		}
	case CompressionZIPS, CompressionZIP:
		tmp := make([]byte, rawSize)
		if err = compression.ZIPDecompressTo(tmp, src); err == nil {
			predictor.Decode(tmp)
			interleave.Merge(out, tmp)
		}
	case CompressionPXR24:
		err = compression.PXR24Decompress(out, src, layout)
	case CompressionHTJ2K256, CompressionHTJ2K32:
		err = compression.HTJ2KDecompress(out, src, layout)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptChunk, err)
	}
	return out, nil
}
