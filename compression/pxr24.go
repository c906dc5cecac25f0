package compression

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrPXR24Corrupted is returned when PXR24 data does not match its layout.
var ErrPXR24Corrupted = errors.New("compression: corrupted PXR24 data")

// floatToFloat24 rounds a float32 to the 24-bit form PXR24 stores:
// sign, exponent and the top 15 mantissa bits.
func floatToFloat24(f float32) uint32 {
	bits := math.Float32bits(f)
	s := bits & 0x80000000
	e := bits & 0x7f800000
	m := bits & 0x007fffff

	var i uint32
	switch {
	case e == 0x7f800000 && m != 0:
		// NaN must stay NaN after the shift
		m >>= 8
		i = e>>8 | m
		if m == 0 {
			i |= 1
		}
	case e == 0x7f800000:
		i = e >> 8
	default:
		i = ((e | m) + (m & 0x80)) >> 8
		if i >= 0x7f8000 {
			i = (e | m) >> 8
		}
	}
	return s>>8 | i
}

// planeCount is the number of byte planes a sample of type t is split into.
func planeCount(t int) int {
	switch t {
	case PixelTypeHalf:
		return 2
	case PixelTypeFloat:
		return 3
	default:
		return 4
	}
}

// PXR24Compress encodes a raw chunk with the PXR24 scheme: floats are
// rounded to 24 bits, each channel line is delta encoded and split into
// byte planes, and the result is deflated.
func PXR24Compress(raw []byte, layout Layout) ([]byte, error) {
	if len(raw) != layout.RawSize() {
		return nil, ErrPXR24Corrupted
	}
	out := make([]byte, 0, len(raw))
	in := 0
	for y := layout.MinY; y < layout.MinY+layout.Lines; y++ {
		for c, ch := range layout.Channels {
			if !layout.Sampled(c, y) {
				continue
			}
			w := ch.Width
			np := planeCount(ch.Type)
			start := len(out)
			out = append(out, make([]byte, w*np)...)
			planes := out[start:]

			var prev uint32
			for x := 0; x < w; x++ {
				var pixel uint32
				switch ch.Type {
				case PixelTypeHalf:
					pixel = uint32(binary.LittleEndian.Uint16(raw[in:]))
					in += 2
				case PixelTypeFloat:
					pixel = floatToFloat24(math.Float32frombits(binary.LittleEndian.Uint32(raw[in:])))
					in += 4
				default:
					pixel = binary.LittleEndian.Uint32(raw[in:])
					in += 4
				}
				diff := pixel - prev
				prev = pixel
				for p := 0; p < np; p++ {
					planes[p*w+x] = byte(diff >> (8 * uint(np-1-p)))
				}
			}
		}
	}
	return ZIPCompress(out)
}

// PXR24Decompress decodes src into dst, which must be layout.RawSize() bytes.
func PXR24Decompress(dst, src []byte, layout Layout) error {
	if len(dst) != layout.RawSize() {
		return ErrPXR24Corrupted
	}
	planeSize := 0
	for y := layout.MinY; y < layout.MinY+layout.Lines; y++ {
		for c, ch := range layout.Channels {
			if layout.Sampled(c, y) {
				planeSize += ch.Width * planeCount(ch.Type)
			}
		}
	}
	planesBuf := make([]byte, planeSize)
	if err := ZIPDecompressTo(planesBuf, src); err != nil {
		return err
	}

	in, out := 0, 0
	for y := layout.MinY; y < layout.MinY+layout.Lines; y++ {
		for c, ch := range layout.Channels {
			if !layout.Sampled(c, y) {
				continue
			}
			w := ch.Width
			np := planeCount(ch.Type)
			planes := planesBuf[in : in+w*np]
			in += w * np

			var pixel uint32
			for x := 0; x < w; x++ {
				var diff uint32
				for p := 0; p < np; p++ {
					diff = diff<<8 | uint32(planes[p*w+x])
				}
				pixel += diff
				switch ch.Type {
				case PixelTypeHalf:
					binary.LittleEndian.PutUint16(dst[out:], uint16(pixel))
					out += 2
				case PixelTypeFloat:
					binary.LittleEndian.PutUint32(dst[out:], pixel<<8)
					out += 4
				default:
					binary.LittleEndian.PutUint32(dst[out:], pixel)
					out += 4
				}
			}
		}
	}
	return nil
}
