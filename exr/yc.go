package exr

// LuminanceWeights are the contributions of R, G and B to luminance.
type LuminanceWeights struct {
	R, G, B float32
}

// Rec709Weights are the luminance weights for Rec. ITU-R BT.709 primaries
// and a D65 white point, the OpenEXR default chromaticities.
var Rec709Weights = LuminanceWeights{R: 0.212639, G: 0.715169, B: 0.072192}

// RGBToYC converts linear RGB to OpenEXR luminance/chroma. Chroma is the
// difference from luminance relative to luminance:
//
//	Y = w·RGB, RY = (R-Y)/Y, BY = (B-Y)/Y
//
// RY and BY are 0 when Y is 0.
func RGBToYC(r, g, b float32, w LuminanceWeights) (y, ry, by float32) {
	y = w.R*r + w.G*g + w.B*b
	if y == 0 {
		return 0, 0, 0
	}
	return y, (r - y) / y, (b - y) / y
}

// YCToRGB inverts RGBToYC.
func YCToRGB(y, ry, by float32, w LuminanceWeights) (r, g, b float32) {
	if ry == 0 && by == 0 {
		return y, y, y
	}
	r = (ry + 1) * y
	b = (by + 1) * y
	g = (y - r*w.R - b*w.B) / w.G
	return r, g, b
}

// RGBAChannels is a set of the channels the RGBA front end reads or writes.
type RGBAChannels int

const (
	WriteR RGBAChannels = 1 << iota
	WriteG
	WriteB
	WriteA
	WriteY
	WriteC // RY and BY, sampled 2x2

	WriteRGB          = WriteR | WriteG | WriteB
	WriteRGBAChannels = WriteRGB | WriteA
	WriteYA           = WriteY | WriteA
	WriteYC           = WriteY | WriteC
	WriteYCA          = WriteYC | WriteA
)

// ChannelsIn reports which RGBA front end channels cl holds.
func ChannelsIn(cl *ChannelList) RGBAChannels {
	var c RGBAChannels
	for name, bit := range map[string]RGBAChannels{
		"R": WriteR, "G": WriteG, "B": WriteB, "A": WriteA, "Y": WriteY,
	} {
		if cl.Get(name) != nil {
			c |= bit
		}
	}
	if cl.Get("RY") != nil && cl.Get("BY") != nil {
		c |= WriteC
	}
	return c
}

// IsLuminanceChroma reports whether the channels describe a luminance
// image (with or without chroma) rather than an RGB one.
func (c RGBAChannels) IsLuminanceChroma() bool {
	return c&WriteY != 0 && c&(WriteR|WriteG|WriteB) == 0
}
