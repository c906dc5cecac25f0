package transcode

import (
	"fmt"

	"github.com/mrjoshuak/exrpremiere/exr"
)

// ExpandSubsampled turns every subsampled slice of fb, built with
// exr.Slice.Compact over dw, into full resolution data in place. Each pixel
// takes the sample of the block it falls in.
//
// Pixels are visited from the last row and column backwards, so a sample is
// always read before the full resolution write that could overwrite it.
// Only float and uint slices can be expanded; any other type panics.
func ExpandSubsampled(fb *exr.FrameBuffer, dw exr.Box2i) {
	for _, name := range fb.Names() {
		s := fb.Get(name)
		if s.XSampling == 1 && s.YSampling == 1 {
			continue
		}
		full := s.Expanded(dw)
		switch s.Type {
		case exr.PixelTypeFloat:
			expand(s.Float, s, &full, dw)
		case exr.PixelTypeUint:
			expand(s.Uint, s, &full, dw)
		default:
			panic(fmt.Sprintf("transcode: cannot expand subsampled %s channel %q", s.Type, name))
		}
	}
}

func expand[T float32 | uint32](data []T, sub, full *exr.Slice, dw exr.Box2i) {
	for y := int(dw.Max.Y); y >= int(dw.Min.Y); y-- {
		for x := int(dw.Max.X); x >= int(dw.Min.X); x-- {
			data[full.Index(x, y)] = data[sub.Index(x, y)]
		}
	}
}
