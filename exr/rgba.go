package exr

import (
	"fmt"
	"io"
)

// rgbaSlice returns a slice addressing component c of interleaved RGBA
// float rows covering dw, stride elements apart.
func rgbaSlice(pix []float32, stride int, dw Box2i, c int, fill float64) Slice {
	return Slice{
		Type:      PixelTypeFloat,
		Float:     pix,
		Origin:    c - int(dw.Min.X)*4 - int(dw.Min.Y)*stride,
		XStride:   4,
		YStride:   stride,
		XSampling: 1,
		YSampling: 1,
		FillValue: fill,
	}
}

// ReadRGBA decodes the file into pix as interleaved R, G, B, A float rows,
// stride elements apart, covering DataWindow() top to bottom.
//
// RGB files fill missing colour channels with 0 and missing alpha with 1.
// Luminance files are converted to RGB with Rec. 709 weights; chroma
// samples are replicated to the pixels they cover, and a file without
// chroma becomes grey.
func (f *InputFile) ReadRGBA(pix []float32, stride int, par ParallelConfig) error {
	dw := f.DataWindow()
	if need := (dw.Height()-1)*stride + dw.Width()*4; len(pix) < need || stride < dw.Width()*4 {
		return fmt.Errorf("%w: RGBA buffer of %d elements, stride %d, for %dx%d pixels",
			ErrInvalidSlice, len(pix), stride, dw.Width(), dw.Height())
	}
	cl := f.Channels()
	present := ChannelsIn(cl)
	luma := present.IsLuminanceChroma()

	names := []string{"R", "G", "B", "A"}
	if luma {
		names = []string{"Y", "RY", "BY", "A"}
	}

	fb := NewFrameBuffer()
	// subsampled channels decode into their own storage first
	side := map[int]*Slice{}
	for i, name := range names {
		fill := 0.0
		if i == 3 {
			fill = 1
		}
		ch := cl.Get(name)
		var s Slice
		switch {
		case luma && (i == 1 || i == 2):
			xs, ys := 1, 1
			if ch != nil {
				xs, ys = int(ch.XSampling), int(ch.YSampling)
			}
			s = AllocateSlice(PixelTypeFloat, dw, xs, ys)
		case ch != nil && (ch.XSampling != 1 || ch.YSampling != 1):
			s = AllocateSlice(PixelTypeFloat, dw, int(ch.XSampling), int(ch.YSampling))
			side[i] = &s
		default:
			s = rgbaSlice(pix, stride, dw, i, fill)
		}
		s.FillValue = fill
		if err := fb.Insert(name, s); err != nil {
			return err
		}
	}

	f.SetFrameBuffer(fb)
	if err := f.ReadPixels(par); err != nil {
		return err
	}

	minX, minY := int(dw.Min.X), int(dw.Min.Y)
	w := dw.Width()
	hasChroma := present&WriteC != 0
	par.For(dw.Height(), func(row int) {
		y := minY + row
		line := pix[row*stride : row*stride+w*4]
		for i, s := range side {
			for x := 0; x < w; x++ {
				line[4*x+i] = s.Float32At(minX+x, y)
			}
		}
		if !luma {
			return
		}
		ry, by := fb.Get("RY"), fb.Get("BY")
		for x := 0; x < w; x++ {
			yy := line[4*x]
			if !hasChroma {
				line[4*x+1], line[4*x+2] = yy, yy
				continue
			}
			r, g, b := YCToRGB(yy, ry.Float32At(minX+x, y), by.Float32At(minX+x, y), Rec709Weights)
			line[4*x], line[4*x+1], line[4*x+2] = r, g, b
		}
	})
	return nil
}

// NewRGBAHeader returns a scanline header for the RGBA front end channels.
// Chroma channels are sampled 2x2, so with WriteC the data window must
// start on even coordinates and have even dimensions.
func NewRGBAHeader(displayWindow, dataWindow Box2i, channels RGBAChannels, pt PixelType, c Compression) *Header {
	h := NewScanlineHeader(1, 1)
	h.SetDisplayWindow(displayWindow)
	h.SetDataWindow(dataWindow)
	h.SetCompression(c)

	cl := NewChannelList()
	for _, ch := range []struct {
		bit  RGBAChannels
		name string
	}{{WriteR, "R"}, {WriteG, "G"}, {WriteB, "B"}, {WriteA, "A"}, {WriteY, "Y"}} {
		if channels&ch.bit != 0 {
			cl.Add(NewChannel(ch.name, pt))
		}
	}
	if channels&WriteC != 0 {
		for _, name := range []string{"RY", "BY"} {
			c := NewChannel(name, pt)
			c.XSampling, c.YSampling = 2, 2
			cl.Add(c)
		}
	}
	h.SetChannels(cl)
	return h
}

// WriteRGBA writes pix, interleaved R, G, B, A float rows stride elements
// apart covering h's data window, as a complete file. A header with
// luminance channels gets Y computed per pixel and RY/BY averaged over
// each 2x2 block.
func WriteRGBA(w io.WriteSeeker, h *Header, pix []float32, stride int, par ParallelConfig) error {
	dw := h.DataWindow()
	present := ChannelsIn(h.Channels())
	fb := NewFrameBuffer()

	if present.IsLuminanceChroma() {
		yPlane := AllocateSlice(PixelTypeFloat, dw, 1, 1)
		var ry, by Slice
		if present&WriteC != 0 {
			ry = AllocateSlice(PixelTypeFloat, dw, 2, 2)
			by = AllocateSlice(PixelTypeFloat, dw, 2, 2)
		}
		fillYC(pix, stride, dw, &yPlane, &ry, &by, present&WriteC != 0, par)
		if err := fb.Insert("Y", yPlane); err != nil {
			return err
		}
		if present&WriteC != 0 {
			if err := fb.Insert("RY", ry); err != nil {
				return err
			}
			if err := fb.Insert("BY", by); err != nil {
				return err
			}
		}
	} else {
		for i, name := range []string{"R", "G", "B"} {
			if err := fb.Insert(name, rgbaSlice(pix, stride, dw, i, 0)); err != nil {
				return err
			}
		}
	}
	if err := fb.Insert("A", rgbaSlice(pix, stride, dw, 3, 1)); err != nil {
		return err
	}

	out, err := NewOutputFile(w, h)
	if err != nil {
		return err
	}
	out.SetFrameBuffer(fb)
	if err := out.WritePixels(par); err != nil {
		return err
	}
	return out.Close()
}

func fillYC(pix []float32, stride int, dw Box2i, yPlane, ry, by *Slice, chroma bool, par ParallelConfig) {
	minX, minY := int(dw.Min.X), int(dw.Min.Y)
	w := dw.Width()
	par.For(dw.Height(), func(row int) {
		line := pix[row*stride:]
		for x := 0; x < w; x++ {
			yy, _, _ := RGBToYC(line[4*x], line[4*x+1], line[4*x+2], Rec709Weights)
			yPlane.SetFloat32(minX+x, minY+row, yy)
		}
	})
	if !chroma {
		return
	}
	par.For(dw.Height()/2, func(cy int) {
		for cx := 0; cx < w/2; cx++ {
			var sumRY, sumBY float32
			for dy := 0; dy < 2; dy++ {
				line := pix[(2*cy+dy)*stride:]
				for dx := 0; dx < 2; dx++ {
					p := line[4*(2*cx+dx):]
					_, r, b := RGBToYC(p[0], p[1], p[2], Rec709Weights)
					sumRY += r
					sumBY += b
				}
			}
			x, y := minX+2*cx, minY+2*cy
			ry.SetFloat32(x, y, sumRY/4)
			by.SetFloat32(x, y, sumBY/4)
		}
	})
}
