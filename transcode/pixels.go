package transcode

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/half"
)

// Premultiply scales the colour of each BGRA pixel of px by its alpha.
// Pixels with alpha exactly 1 are left untouched.
func Premultiply[T constraints.Float](px []T) {
	for i := 0; i+3 < len(px); i += 4 {
		if a := px[i+3]; a != 1 {
			px[i] *= a
			px[i+1] *= a
			px[i+2] *= a
		}
	}
}

// premultiplyHalf is Premultiply on half pixels. Alpha is compared and
// colour scaled at half precision, each product rounded back to half.
func premultiplyHalf(px []half.Half) {
	for i := 0; i+3 < len(px); i += 4 {
		a := px[i+3].Float32()
		if a == 1 {
			continue
		}
		for c := i; c < i+3; c++ {
			px[c] = half.FromFloat32(px[c].Float32() * a)
		}
	}
}

// NarrowToHalf rounds every value of px, 4 channel pixels with alpha
// last, to half precision in place. With premultiply the colour is then
// scaled by the rounded alpha, as Export does for a half buffer.
func NarrowToHalf(px []float32, premultiply bool) {
	h := make([]half.Half, len(px))
	half.ConvertBatch32(h, px)
	if premultiply {
		premultiplyHalf(h)
	}
	half.ConvertBatchToFloat32(px, h)
}

// Unpremultiply divides the colour of each BGRA pixel of px by its alpha
// when alpha is strictly between 0 and 1.
func Unpremultiply[T constraints.Float](px []T) {
	for i := 0; i+3 < len(px); i += 4 {
		if a := px[i+3]; a > 0 && a < 1 {
			px[i] /= a
			px[i+1] /= a
			px[i+2] /= a
		}
	}
}

// premultiplyPartial undoes Unpremultiply: only pixels with alpha strictly
// between 0 and 1 are scaled.
func premultiplyPartial[T constraints.Float](px []T) {
	for i := 0; i+3 < len(px); i += 4 {
		if a := px[i+3]; a > 0 && a < 1 {
			px[i] *= a
			px[i+1] *= a
			px[i+2] *= a
		}
	}
}

// Fill sets the colour channels of every pixel to colour and the alpha
// channel, if any, to alpha.
func (t *Transcoder) Fill(buf *PixelBuffer, colour, alpha float32) {
	if buf.Empty() {
		return
	}
	px := make([]float32, buf.Channels)
	for i := range px {
		px[i] = colour
	}
	if buf.Channels == 4 {
		px[3] = alpha
	}
	hpx := make([]half.Half, buf.Channels)
	half.ConvertBatch32(hpx, px)

	t.par.For(buf.Height, func(y int) {
		if buf.Type == exr.PixelTypeFloat {
			fillRow(buf.RowFloat(y), px)
		} else {
			fillRow(buf.RowHalf(y), hpx)
		}
	})
}

func fillRow[T any](row, px []T) {
	for i := 0; i < len(row); i += len(px) {
		copy(row[i:], px)
	}
}

// Copy copies src into dst, which must have the same format.
func (t *Transcoder) Copy(dst, src *PixelBuffer) error {
	if !dst.SameFormat(src) {
		return fmt.Errorf("%w: copy %dx%d %d channel %s to %dx%d %d channel %s", ErrFormatMismatch,
			src.Width, src.Height, src.Channels, src.Type, dst.Width, dst.Height, dst.Channels, dst.Type)
	}
	if dst.Empty() {
		return nil
	}
	t.par.For(dst.Height, func(y int) {
		if dst.Type == exr.PixelTypeFloat {
			copy(dst.RowFloat(y), src.RowFloat(y))
		} else {
			copy(dst.RowHalf(y), src.RowHalf(y))
		}
	})
	return nil
}

// Export converts a float BGRA host buffer to dst, a half or float buffer
// of B, G, R and, with 4 channels, A. With premultiply the written colour
// is scaled by alpha, except where alpha is 1; src is not modified.
// Narrowing to half rounds to nearest and happens before premultiplying,
// so a half buffer is scaled by its stored alpha.
func (t *Transcoder) Export(src, dst *PixelBuffer, premultiply bool) error {
	if src.Type != exr.PixelTypeFloat || src.Channels != 4 {
		return fmt.Errorf("%w: export source must be 4 channel float", ErrFormatMismatch)
	}
	if src.Width != dst.Width || src.Height != dst.Height {
		return fmt.Errorf("%w: export %dx%d to %dx%d", ErrFormatMismatch, src.Width, src.Height, dst.Width, dst.Height)
	}
	if dst.Empty() {
		return nil
	}
	n := dst.Channels
	t.par.For(src.Height, func(y int) {
		in := src.RowFloat(y)
		switch dst.Type {
		case exr.PixelTypeFloat:
			if premultiply {
				in = append([]float32(nil), in...)
				Premultiply(in)
			}
			out := dst.RowFloat(y)
			if n == 4 {
				copy(out, in)
				return
			}
			for x := 0; x < src.Width; x++ {
				copy(out[x*3:x*3+3], in[x*4:x*4+3])
			}
		case exr.PixelTypeHalf:
			out := dst.RowHalf(y)
			h := out
			if n != 4 {
				h = make([]half.Half, len(in))
			}
			half.ConvertBatch32(h, in)
			if premultiply {
				premultiplyHalf(h)
			}
			if n == 4 {
				return
			}
			for x := 0; x < src.Width; x++ {
				copy(out[x*3:x*3+3], h[x*4:x*4+3])
			}
		}
	})
	return nil
}

// Import converts src, a half or float buffer of R, G, B and optionally A
// as produced by exr's RGBA front end, to dst, a float BGRA buffer. A
// missing alpha becomes 1. Nothing is premultiplied.
func (t *Transcoder) Import(src, dst *PixelBuffer) error {
	if dst.Type != exr.PixelTypeFloat || dst.Channels != 4 {
		return fmt.Errorf("%w: import destination must be 4 channel float", ErrFormatMismatch)
	}
	if src.Width != dst.Width || src.Height != dst.Height {
		return fmt.Errorf("%w: import %dx%d to %dx%d", ErrFormatMismatch, src.Width, src.Height, dst.Width, dst.Height)
	}
	if dst.Empty() {
		return nil
	}
	n := src.Channels
	t.par.For(dst.Height, func(y int) {
		out := dst.RowFloat(y)
		var in []float32
		if src.Type == exr.PixelTypeFloat {
			in = src.RowFloat(y)
		} else {
			in = make([]float32, src.Width*n)
			half.ConvertBatchToFloat32(in, src.RowHalf(y))
		}
		for x := 0; x < dst.Width; x++ {
			p, q := in[x*n:], out[x*4:]
			q[0], q[1], q[2] = p[2], p[1], p[0]
			if n == 4 {
				q[3] = p[3]
			} else {
				q[3] = 1
			}
		}
	})
	return nil
}

// SetAlpha stores a in the alpha channel of every pixel of a 4 channel
// float buffer.
func (t *Transcoder) SetAlpha(buf *PixelBuffer, a float32) {
	if buf.Type != exr.PixelTypeFloat || buf.Channels != 4 || buf.Empty() {
		return
	}
	t.par.For(buf.Height, func(y int) {
		row := buf.RowFloat(y)
		for i := 3; i < len(row); i += 4 {
			row[i] = a
		}
	})
}
