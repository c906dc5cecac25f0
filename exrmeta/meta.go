// Package exrmeta provides typed accessors for the production metadata
// attributes an editing host reads from and writes to OpenEXR headers.
//
// All functions operate on *exr.Header.
//
// Example usage:
//
//	h := exr.NewScanlineHeader(1920, 1080)
//	exrmeta.SetWriter(h, "ProEXR for Premiere")
//	exrmeta.SetFramesPerSecond(h, exrmeta.FPS2997)
//	exrmeta.SetCapTime(h, time.Now())
package exrmeta

import (
	"math"
	"time"

	"github.com/mrjoshuak/exrpremiere/exr"
)

// Standard attribute names
const (
	AttrOwner           = "owner"
	AttrComments        = "comments"
	AttrCapDate         = "capDate"
	AttrUTCOffset       = "utcOffset"
	AttrFramesPerSecond = "framesPerSecond"
	AttrTimeCode        = "timeCode"

	// Not part of the standard set, but written by most tools.
	AttrWriter = "writer"

	// The exact pixel aspect ratio, stored next to the float
	// pixelAspectRatio when the two differ.
	AttrPixelAspectRatioRational = "pixelAspectRatioRational"
)

// CapDateLayout is the time layout of the capDate attribute.
const CapDateLayout = "2006:01:02 15:04:05"

// ===========================================
// Production Metadata
// ===========================================

// SetOwner sets the file owner/creator.
func SetOwner(h *exr.Header, owner string) {
	h.Set(&exr.Attribute{Name: AttrOwner, Type: exr.AttrTypeString, Value: owner})
}

// Owner returns the file owner/creator, or empty string if not set.
func Owner(h *exr.Header) string {
	return getString(h, AttrOwner)
}

// SetComments sets the file comments.
func SetComments(h *exr.Header, comments string) {
	h.Set(&exr.Attribute{Name: AttrComments, Type: exr.AttrTypeString, Value: comments})
}

// Comments returns the file comments, or empty string if not set.
func Comments(h *exr.Header) string {
	return getString(h, AttrComments)
}

// SetWriter records the application that wrote the file.
func SetWriter(h *exr.Header, writer string) {
	h.Set(&exr.Attribute{Name: AttrWriter, Type: exr.AttrTypeString, Value: writer})
}

// Writer returns the writing application, or empty string if not set.
func Writer(h *exr.Header) string {
	return getString(h, AttrWriter)
}

// SetCapDate sets the capture date, formatted as "YYYY:MM:DD hh:mm:ss".
func SetCapDate(h *exr.Header, date string) {
	h.Set(&exr.Attribute{Name: AttrCapDate, Type: exr.AttrTypeString, Value: date})
}

// CapDate returns the capture date, or empty string if not set.
func CapDate(h *exr.Header) string {
	return getString(h, AttrCapDate)
}

// SetUTCOffset sets the UTC offset in seconds. The offset is UTC minus
// local time, so zones east of Greenwich are negative.
func SetUTCOffset(h *exr.Header, seconds float32) {
	h.Set(&exr.Attribute{Name: AttrUTCOffset, Type: exr.AttrTypeFloat, Value: seconds})
}

// UTCOffset returns the UTC offset in seconds, or 0 if not set.
func UTCOffset(h *exr.Header) float32 {
	return getFloat(h, AttrUTCOffset)
}

// SetCapTime sets capDate and utcOffset from t, in t's own location.
func SetCapTime(h *exr.Header, t time.Time) {
	_, offset := t.Zone()
	SetCapDate(h, t.Format(CapDateLayout))
	SetUTCOffset(h, float32(-offset))
}

// CapTime parses capDate using utcOffset for the zone. It reports false
// when capDate is missing or malformed.
func CapTime(h *exr.Header) (time.Time, bool) {
	s := CapDate(h)
	if s == "" {
		return time.Time{}, false
	}
	loc := time.FixedZone("", -int(UTCOffset(h)))
	t, err := time.ParseInLocation(CapDateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetFramesPerSecond sets the frame rate.
func SetFramesPerSecond(h *exr.Header, r exr.Rational) {
	h.Set(&exr.Attribute{Name: AttrFramesPerSecond, Type: exr.AttrTypeRational, Value: r})
}

// FramesPerSecond returns the frame rate, or nil if not set.
func FramesPerSecond(h *exr.Header) *exr.Rational {
	return getRational(h, AttrFramesPerSecond)
}

// SetTimeCode sets the time code of the frame.
func SetTimeCode(h *exr.Header, tc exr.TimeCode) {
	h.Set(&exr.Attribute{Name: AttrTimeCode, Type: exr.AttrTypeTimecode, Value: tc})
}

// TimeCode returns the time code, or nil if not set.
func TimeCode(h *exr.Header) *exr.TimeCode {
	attr := h.Get(AttrTimeCode)
	if attr == nil {
		return nil
	}
	if tc, ok := attr.Value.(exr.TimeCode); ok {
		return &tc
	}
	return nil
}

// SetPixelAspectRatio sets both the float pixelAspectRatio and, when num
// differs from den, the exact rational.
func SetPixelAspectRatio(h *exr.Header, num int32, den uint32) {
	if den == 0 {
		den = 1
	}
	h.SetPixelAspectRatio(float32(num) / float32(den))
	if uint32(num) != den {
		h.Set(&exr.Attribute{
			Name:  AttrPixelAspectRatioRational,
			Type:  exr.AttrTypeRational,
			Value: exr.Rational{Num: num, Denom: den},
		})
	} else {
		h.Remove(AttrPixelAspectRatioRational)
	}
}

// PixelAspectRatio returns the pixel aspect ratio as a rational: the
// stored rational if present, otherwise an approximation of the float
// attribute.
func PixelAspectRatio(h *exr.Header) exr.Rational {
	if r := getRational(h, AttrPixelAspectRatioRational); r != nil && r.Num > 0 && r.Denom > 0 {
		return *r
	}
	par := float64(h.PixelAspectRatio())
	if par <= 0 || math.IsInf(par, 0) || math.IsNaN(par) {
		return exr.Rational{Num: 1, Denom: 1}
	}
	return FloatToRational(par, 1000)
}

// ===========================================
// Standard Frame Rates
// ===========================================

// Standard frame rates as Rational values.
var (
	FPS10    = exr.Rational{Num: 10, Denom: 1}
	FPS15    = exr.Rational{Num: 15, Denom: 1}
	FPS23976 = exr.Rational{Num: 24000, Denom: 1001} // NTSC film pulldown
	FPS24    = exr.Rational{Num: 24, Denom: 1}
	FPS25    = exr.Rational{Num: 25, Denom: 1}
	FPS2997  = exr.Rational{Num: 30000, Denom: 1001}
	FPS30    = exr.Rational{Num: 30, Denom: 1}
	FPS50    = exr.Rational{Num: 50, Denom: 1}
	FPS5994  = exr.Rational{Num: 60000, Denom: 1001}
	FPS60    = exr.Rational{Num: 60, Denom: 1}
)

// TimeCodeRate describes how a frame rate is counted in time code.
type TimeCodeRate struct {
	Rate exr.Rational
	// Base is the number of frames counted per time code second.
	Base int
	// DropFrame is set when frame numbers are skipped to stay on clock.
	DropFrame bool
}

// TimeCodeRates lists the frame rates that get a time code on export.
var TimeCodeRates = []TimeCodeRate{
	{FPS10, 10, false},
	{FPS15, 15, false},
	{FPS23976, 24, false},
	{FPS24, 24, false},
	{FPS25, 25, false},
	{FPS2997, 30, true},
	{FPS30, 30, false},
	{FPS50, 50, false},
	{FPS5994, 60, true},
	{FPS60, 60, false},
}

// LookupTimeCodeRate finds the entry of TimeCodeRates within 0.001 fps
// of fps.
func LookupTimeCodeRate(fps float64) (TimeCodeRate, bool) {
	for _, r := range TimeCodeRates {
		if math.Abs(RationalToFloat(r.Rate)-fps) < 0.001 {
			return r, true
		}
	}
	return TimeCodeRate{}, false
}

// RationalToFloat converts a Rational to a float64.
func RationalToFloat(r exr.Rational) float64 {
	return r.Float64()
}

// FloatToRational converts a float64 to a Rational.
// Standard frame rates are matched exactly; anything else uses a
// continued fraction approximation.
// The maxDenom parameter limits the maximum denominator (use 0 for default of 1001).
func FloatToRational(f float64, maxDenom int32) exr.Rational {
	if maxDenom <= 0 {
		maxDenom = 1001
	}
	if f <= 0 {
		return exr.Rational{Num: 0, Denom: 1}
	}
	for _, r := range TimeCodeRates {
		if math.Abs(f-RationalToFloat(r.Rate)) < 0.0001 && int32(r.Rate.Denom) <= maxDenom {
			return r.Rate
		}
	}
	return continuedFraction(f, maxDenom)
}

// IsDropFrame reports whether time code at rate r is counted drop frame.
// Only 29.97 and 59.94 are; 23.976 material counts every frame.
func IsDropFrame(r exr.Rational) bool {
	return r == FPS2997 || r == FPS5994
}

// FrameRateName returns a human-readable name for common frame rates.
// Returns empty string for non-standard rates.
func FrameRateName(r exr.Rational) string {
	switch r {
	case FPS10:
		return "10 fps"
	case FPS15:
		return "15 fps"
	case FPS23976:
		return "23.976 fps (NTSC Film)"
	case FPS24:
		return "24 fps (Cinema)"
	case FPS25:
		return "25 fps (PAL)"
	case FPS2997:
		return "29.97 fps (NTSC)"
	case FPS30:
		return "30 fps"
	case FPS50:
		return "50 fps (PAL HFR)"
	case FPS5994:
		return "59.94 fps (NTSC HFR)"
	case FPS60:
		return "60 fps"
	default:
		return ""
	}
}

// continuedFraction computes a rational approximation using continued fractions.
func continuedFraction(f float64, maxDenom int32) exr.Rational {
	var (
		n0, n1 int32 = 0, 1
		d0, d1 int32 = 1, 0
	)

	x := f
	for i := 0; i < 20; i++ {
		if x > math.MaxInt32 {
			break
		}
		a := int32(x)

		n := a*n1 + n0
		d := a*d1 + d0

		if d > maxDenom {
			break
		}

		n0, n1 = n1, n
		d0, d1 = d1, d

		frac := x - float64(a)
		if frac < 1e-10 {
			break
		}
		x = 1.0 / frac
	}

	if d1 == 0 {
		return exr.Rational{Num: int32(math.Round(f)), Denom: 1}
	}
	return exr.Rational{Num: n1, Denom: uint32(d1)}
}

// ===========================================
// Helper functions
// ===========================================

func getString(h *exr.Header, name string) string {
	attr := h.Get(name)
	if attr == nil {
		return ""
	}
	if s, ok := attr.Value.(string); ok {
		return s
	}
	return ""
}

func getFloat(h *exr.Header, name string) float32 {
	attr := h.Get(name)
	if attr == nil {
		return 0
	}
	if f, ok := attr.Value.(float32); ok {
		return f
	}
	return 0
}

func getRational(h *exr.Header, name string) *exr.Rational {
	attr := h.Get(name)
	if attr == nil {
		return nil
	}
	if r, ok := attr.Value.(exr.Rational); ok {
		return &r
	}
	return nil
}
