package transcode

import "github.com/mrjoshuak/exrpremiere/exr"

// ResolveDuplicates copies every sample of dw from each pair's Src to its
// Dst, addressing each through its own strides. It must run after the
// source channels are decoded and expanded.
//
// A pair whose slices have different pixel types is skipped without error.
func ResolveDuplicates(dups DupSet, dw exr.Box2i) {
	for i := range dups {
		src, dst := &dups[i].Src, &dups[i].Dst
		if src.Type != dst.Type {
			continue
		}
		switch src.Type {
		case exr.PixelTypeFloat:
			copySamples(dst.Float, src.Float, dst, src, dw)
		case exr.PixelTypeHalf:
			copySamples(dst.Half, src.Half, dst, src, dw)
		case exr.PixelTypeUint:
			copySamples(dst.Uint, src.Uint, dst, src, dw)
		}
	}
}

func copySamples[T any](dstData, srcData []T, dst, src *exr.Slice, dw exr.Box2i) {
	for y := int(dw.Min.Y); y <= int(dw.Max.Y); y++ {
		for x := int(dw.Min.X); x <= int(dw.Max.X); x++ {
			dstData[dst.Index(x, y)] = srcData[src.Index(x, y)]
		}
	}
}
