// Package exr reads and writes scanline OpenEXR image files.
//
// The package covers the part of the format a host importer and exporter
// need: single and multi-part scanline input, single-part scanline output,
// the NONE, RLE, ZIPS, ZIP, PXR24 and HTJ2K chunk codecs, a frame buffer of
// typed, strided slices, and an RGBA front end that also understands
// luminance/chroma images. Tiled, deep and PIZ/B44/DWA images are reported
// as unsupported.
package exr

import (
	"errors"
	"fmt"

	"github.com/mrjoshuak/exrpremiere/internal/xdr"
)

// V2i represents a 2D integer vector.
type V2i struct {
	X, Y int32
}

// V2f represents a 2D float vector.
type V2f struct {
	X, Y float32
}

// Box2i represents an axis-aligned 2D integer rectangle.
// Both corners are inclusive; the box is empty when Max < Min on either axis.
type Box2i struct {
	Min, Max V2i
}

// Box2f represents an axis-aligned 2D float rectangle.
type Box2f struct {
	Min, Max V2f
}

// NewBox2i returns the box with the given inclusive corners.
func NewBox2i(minX, minY, maxX, maxY int) Box2i {
	return Box2i{
		Min: V2i{int32(minX), int32(minY)},
		Max: V2i{int32(maxX), int32(maxY)},
	}
}

// Width returns the width of the box.
func (b Box2i) Width() int {
	return int(b.Max.X) - int(b.Min.X) + 1
}

// Height returns the height of the box.
func (b Box2i) Height() int {
	return int(b.Max.Y) - int(b.Min.Y) + 1
}

// IsEmpty returns true if the box has no area.
func (b Box2i) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y
}

// ContainsPoint returns true if the point (x, y) is inside the box.
func (b Box2i) ContainsPoint(x, y int) bool {
	return x >= int(b.Min.X) && x <= int(b.Max.X) && y >= int(b.Min.Y) && y <= int(b.Max.Y)
}

// Contains returns true if o lies entirely inside b.
func (b Box2i) Contains(o Box2i) bool {
	return o.Min.X >= b.Min.X && o.Min.Y >= b.Min.Y &&
		o.Max.X <= b.Max.X && o.Max.Y <= b.Max.Y
}

// Intersects returns true if the boxes share at least one pixel.
func (b Box2i) Intersects(o Box2i) bool {
	return !b.Intersect(o).IsEmpty()
}

// Intersect returns the overlap of b and o, which may be empty.
func (b Box2i) Intersect(o Box2i) Box2i {
	return Box2i{
		Min: V2i{max(b.Min.X, o.Min.X), max(b.Min.Y, o.Min.Y)},
		Max: V2i{min(b.Max.X, o.Max.X), min(b.Max.Y, o.Max.Y)},
	}
}

// Area returns the number of pixels in the box.
func (b Box2i) Area() int64 {
	if b.IsEmpty() {
		return 0
	}
	return int64(b.Width()) * int64(b.Height())
}

func (b Box2i) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

// Rational represents a rational number as numerator/denominator.
type Rational struct {
	Num   int32
	Denom uint32
}

// Float64 returns the rational as a float64, or 0 when Denom is 0.
func (r Rational) Float64() float64 {
	if r.Denom == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Denom)
}

// TimeCode validation errors
var (
	ErrTimeCodeHoursOutOfRange   = errors.New("timecode: hours out of range (0-23)")
	ErrTimeCodeMinutesOutOfRange = errors.New("timecode: minutes out of range (0-59)")
	ErrTimeCodeSecondsOutOfRange = errors.New("timecode: seconds out of range (0-59)")
	ErrTimeCodeFramesOutOfRange  = errors.New("timecode: frames out of range (0-59)")
)

// TimeCode is an SMPTE time code stored the way OpenEXR packs it: BCD
// fields in a 32-bit time-and-flags word plus a 32-bit user data word.
//
//	bits 0-5:   frame
//	bit 6:      drop frame
//	bits 8-14:  seconds
//	bits 16-22: minutes
//	bits 24-29: hours
type TimeCode struct {
	time uint32
	user uint32
}

const tcDropFrameBit = 1 << 6

func toBCD(v int) uint32 {
	return uint32(v%10) | uint32(v/10%10)<<4
}

func fromBCD(v uint32) int {
	return int(v&0x0f) + 10*int((v>>4)&0x0f)
}

// NewTimeCode creates a TimeCode, returning an error if a field is out of range.
// Frame numbers up to 59 are accepted for 50 and 60 fps material.
func NewTimeCode(hours, minutes, seconds, frame int, dropFrame bool) (TimeCode, error) {
	switch {
	case hours < 0 || hours > 23:
		return TimeCode{}, ErrTimeCodeHoursOutOfRange
	case minutes < 0 || minutes > 59:
		return TimeCode{}, ErrTimeCodeMinutesOutOfRange
	case seconds < 0 || seconds > 59:
		return TimeCode{}, ErrTimeCodeSecondsOutOfRange
	case frame < 0 || frame > 59:
		return TimeCode{}, ErrTimeCodeFramesOutOfRange
	}
	t := toBCD(frame)&0x3f |
		toBCD(seconds)&0x7f<<8 |
		toBCD(minutes)&0x7f<<16 |
		toBCD(hours)&0x3f<<24
	if dropFrame {
		t |= tcDropFrameBit
	}
	return TimeCode{time: t}, nil
}

// NewTimeCodeFromPacked creates a TimeCode from its packed file representation.
func NewTimeCodeFromPacked(timeAndFlags, userData uint32) TimeCode {
	return TimeCode{time: timeAndFlags, user: userData}
}

// Hours returns the hours component (0-23).
func (tc TimeCode) Hours() int { return fromBCD(tc.time >> 24 & 0x3f) }

// Minutes returns the minutes component (0-59).
func (tc TimeCode) Minutes() int { return fromBCD(tc.time >> 16 & 0x7f) }

// Seconds returns the seconds component (0-59).
func (tc TimeCode) Seconds() int { return fromBCD(tc.time >> 8 & 0x7f) }

// Frame returns the frame component.
func (tc TimeCode) Frame() int { return fromBCD(tc.time & 0x3f) }

// DropFrame reports whether the drop frame flag is set.
func (tc TimeCode) DropFrame() bool { return tc.time&tcDropFrameBit != 0 }

// TimeAndFlags returns the packed time-and-flags word.
func (tc TimeCode) TimeAndFlags() uint32 { return tc.time }

// UserData returns the packed user data word.
func (tc TimeCode) UserData() uint32 { return tc.user }

// String formats the time code as HH:MM:SS:FF, with ';' separators when
// the drop frame flag is set.
func (tc TimeCode) String() string {
	sep := ":"
	if tc.DropFrame() {
		sep = ";"
	}
	return fmt.Sprintf("%02d%s%02d%s%02d%s%02d",
		tc.Hours(), sep, tc.Minutes(), sep, tc.Seconds(), sep, tc.Frame())
}

// ReadV2i reads a V2i from the XDR reader.
func ReadV2i(r *xdr.Reader) (V2i, error) {
	x, err := r.ReadInt32()
	if err != nil {
		return V2i{}, err
	}
	y, err := r.ReadInt32()
	if err != nil {
		return V2i{}, err
	}
	return V2i{x, y}, nil
}

// WriteV2i writes a V2i to the buffer.
func WriteV2i(w *xdr.BufferWriter, v V2i) {
	w.WriteInt32(v.X)
	w.WriteInt32(v.Y)
}

// ReadV2f reads a V2f from the XDR reader.
func ReadV2f(r *xdr.Reader) (V2f, error) {
	x, err := r.ReadFloat32()
	if err != nil {
		return V2f{}, err
	}
	y, err := r.ReadFloat32()
	if err != nil {
		return V2f{}, err
	}
	return V2f{x, y}, nil
}

// WriteV2f writes a V2f to the buffer.
func WriteV2f(w *xdr.BufferWriter, v V2f) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
}

// ReadBox2i reads a Box2i from the XDR reader.
func ReadBox2i(r *xdr.Reader) (Box2i, error) {
	lo, err := ReadV2i(r)
	if err != nil {
		return Box2i{}, err
	}
	hi, err := ReadV2i(r)
	if err != nil {
		return Box2i{}, err
	}
	return Box2i{lo, hi}, nil
}

// WriteBox2i writes a Box2i to the buffer.
func WriteBox2i(w *xdr.BufferWriter, b Box2i) {
	WriteV2i(w, b.Min)
	WriteV2i(w, b.Max)
}

// ReadBox2f reads a Box2f from the XDR reader.
func ReadBox2f(r *xdr.Reader) (Box2f, error) {
	lo, err := ReadV2f(r)
	if err != nil {
		return Box2f{}, err
	}
	hi, err := ReadV2f(r)
	if err != nil {
		return Box2f{}, err
	}
	return Box2f{lo, hi}, nil
}

// WriteBox2f writes a Box2f to the buffer.
func WriteBox2f(w *xdr.BufferWriter, b Box2f) {
	WriteV2f(w, b.Min)
	WriteV2f(w, b.Max)
}

// ReadRational reads a Rational from the XDR reader.
func ReadRational(r *xdr.Reader) (Rational, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return Rational{}, err
	}
	d, err := r.ReadUint32()
	if err != nil {
		return Rational{}, err
	}
	return Rational{Num: n, Denom: d}, nil
}

// WriteRational writes a Rational to the buffer.
func WriteRational(w *xdr.BufferWriter, r Rational) {
	w.WriteInt32(r.Num)
	w.WriteUint32(r.Denom)
}

// ReadTimeCode reads a TimeCode from the XDR reader.
func ReadTimeCode(r *xdr.Reader) (TimeCode, error) {
	t, err := r.ReadUint32()
	if err != nil {
		return TimeCode{}, err
	}
	u, err := r.ReadUint32()
	if err != nil {
		return TimeCode{}, err
	}
	return NewTimeCodeFromPacked(t, u), nil
}

// WriteTimeCode writes a TimeCode to the buffer.
func WriteTimeCode(w *xdr.BufferWriter, tc TimeCode) {
	w.WriteUint32(tc.time)
	w.WriteUint32(tc.user)
}
