package transcode

import (
	"fmt"
	"math"

	"github.com/mrjoshuak/exrpremiere/exr"
)

// ColorSpace is the encoding of imported pixels handed to the host. The
// numbering is stored in settings records and must not change.
type ColorSpace uint8

const (
	// LinearAdobe leaves pixels linear and lets the host treat them so.
	LinearAdobe ColorSpace = iota
	// LinearBypass leaves pixels linear but tells the host they are
	// display referred.
	LinearBypass
	SRGB
	Rec709
	Cineon
	Gamma22
)

var colorSpaceNames = [...]string{
	LinearAdobe:  "Linear (Adobe)",
	LinearBypass: "Linear (Bypass)",
	SRGB:         "sRGB",
	Rec709:       "Rec. 709",
	Cineon:       "Cineon",
	Gamma22:      "Gamma 2.2",
}

func (cs ColorSpace) String() string {
	if int(cs) < len(colorSpaceNames) {
		return colorSpaceNames[cs]
	}
	return fmt.Sprintf("ColorSpace(%d)", int(cs))
}

// Valid reports whether cs is a known colour space.
func (cs ColorSpace) Valid() bool { return int(cs) < len(colorSpaceNames) }

// Linear reports whether cs applies no transfer function.
func (cs ColorSpace) Linear() bool { return cs == LinearAdobe || cs == LinearBypass }

// PixelFormat is the host pixel format name for frames in a colour space.
type PixelFormat string

const (
	BGRA32fLinear PixelFormat = "BGRA_4444_32f_Linear"
	BGRA32f       PixelFormat = "BGRA_4444_32f"
)

// PixelFormat returns the host format: linear for LinearAdobe, plain
// float BGRA for everything else, including LinearBypass.
func (cs ColorSpace) PixelFormat() PixelFormat {
	if cs == LinearAdobe {
		return BGRA32fLinear
	}
	return BGRA32f
}

// Transfer returns the function mapping a linear value into cs.
func (cs ColorSpace) Transfer() func(float32) float32 {
	switch cs {
	case SRGB:
		return linearToSRGB
	case Rec709:
		return linearToRec709
	case Cineon:
		return cineon.fromLinear
	case Gamma22:
		return linearToGamma22
	default:
		return func(v float32) float32 { return v }
	}
}

func linearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return float32(1.055*math.Pow(float64(v), 1/2.4) - 0.055)
}

func linearToRec709(v float32) float32 {
	if v <= 0.018 {
		return 4.5 * v
	}
	return float32(1.099*math.Pow(float64(v), 0.45) - 0.099)
}

func linearToGamma22(v float32) float32 {
	if v < 0 {
		return -float32(math.Pow(float64(-v), 1/2.2))
	}
	return float32(math.Pow(float64(v), 1/2.2))
}

// cineonCurve converts linear values to normalized 10-bit printing
// density code values.
type cineonCurve struct {
	refWhite float64
	gain     float64
	offset   float64
	scale    float64 // code values per decade
}

var cineon = newCineonCurve(95, 685, 1)

func newCineonCurve(refBlack, refWhite, gamma float64) cineonCurve {
	const densityPerCode = 0.002
	const filmGamma = 0.6
	black := math.Pow(10, (refBlack-refWhite)*densityPerCode/(filmGamma/gamma))
	gain := 1 / (1 - black)
	return cineonCurve{
		refWhite: refWhite,
		gain:     gain,
		offset:   gain - 1,
		scale:    (filmGamma / gamma) / densityPerCode,
	}
}

// fromLinear maps 0 to refBlack and 1 to refWhite. Values between the
// curve's asymptote and 0 give negative code values; values at or below
// the asymptote, where the logarithm is undefined, map to 0.
func (c cineonCurve) fromLinear(v float32) float32 {
	x := (float64(v) + c.offset) / c.gain
	if x <= 0 {
		return 0
	}
	return float32((c.refWhite + math.Log10(x)*c.scale) / 1023)
}

// ConvertColorSpace applies cs's transfer function to the colour of every
// pixel of a float buffer, in place. Colour is unpremultiplied first and
// premultiplied again afterwards when alpha is strictly between 0 and 1.
// Linear colour spaces leave the buffer unchanged.
func (t *Transcoder) ConvertColorSpace(buf *PixelBuffer, cs ColorSpace) error {
	if cs.Linear() || buf.Empty() {
		return nil
	}
	if buf.Type != exr.PixelTypeFloat {
		return fmt.Errorf("%w: colour conversion needs a float buffer", ErrFormatMismatch)
	}
	f := cs.Transfer()
	n := buf.Channels
	t.par.For(buf.Height, func(y int) {
		row := buf.RowFloat(y)
		if n == 4 {
			Unpremultiply(row)
		}
		for i := 0; i+n <= len(row); i += n {
			row[i] = f(row[i])
			row[i+1] = f(row[i+1])
			row[i+2] = f(row[i+2])
		}
		if n == 4 {
			premultiplyPartial(row)
		}
	})
	return nil
}
