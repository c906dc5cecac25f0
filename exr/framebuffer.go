package exr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mrjoshuak/exrpremiere/half"
)

// FrameBuffer errors
var (
	ErrInvalidSlice   = errors.New("exr: invalid slice configuration")
	ErrDuplicateSlice = errors.New("exr: slice already inserted for channel")
	ErrTypeMismatch   = errors.New("exr: pixel type mismatch")
)

// Slice describes where the samples of one channel live in memory.
//
// Exactly one of Float, Half and Uint holds the storage, matching Type.
// Sample (x, y), in image coordinates, is element
//
//	Origin + (x/XSampling)*XStride + (y/YSampling)*YStride
//
// of that storage, with division rounding toward negative infinity.
// Strides count elements, not bytes, and may be negative. Origin is the
// element index of image pixel (0, 0), which need not be inside the
// storage; every access is bounds checked by the slice indexing itself.
type Slice struct {
	Type  PixelType
	Float []float32
	Half  []half.Half
	Uint  []uint32

	Origin    int
	XStride   int
	YStride   int
	XSampling int
	YSampling int

	// FillValue is stored for channels missing from the file.
	FillValue float64
}

// AllocateSlice returns a slice with freshly allocated storage holding one
// sample per sampled position of dataWindow, rows packed top to bottom.
func AllocateSlice(pt PixelType, dataWindow Box2i, xSampling, ySampling int) Slice {
	w := dataWindow.Width() / xSampling
	h := dataWindow.Height() / ySampling
	s := Slice{
		Type:      pt,
		XStride:   1,
		YStride:   w,
		XSampling: xSampling,
		YSampling: ySampling,
	}
	s.Origin = -floorDiv(int(dataWindow.Min.X), xSampling) - floorDiv(int(dataWindow.Min.Y), ySampling)*w
	n := max(w*h, 0)
	switch pt {
	case PixelTypeFloat:
		s.Float = make([]float32, n)
	case PixelTypeHalf:
		s.Half = make([]half.Half, n)
	case PixelTypeUint:
		s.Uint = make([]uint32, n)
	}
	return s
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Index returns the storage index of sample (x, y).
func (s *Slice) Index(x, y int) int {
	return s.Origin + floorDiv(x, s.XSampling)*s.XStride + floorDiv(y, s.YSampling)*s.YStride
}

func (s *Slice) validate() error {
	if s.XSampling < 1 || s.YSampling < 1 {
		return fmt.Errorf("%w: sampling %dx%d", ErrInvalidSlice, s.XSampling, s.YSampling)
	}
	var ok bool
	switch s.Type {
	case PixelTypeFloat:
		ok = s.Float != nil && s.Half == nil && s.Uint == nil
	case PixelTypeHalf:
		ok = s.Half != nil && s.Float == nil && s.Uint == nil
	case PixelTypeUint:
		ok = s.Uint != nil && s.Float == nil && s.Half == nil
	}
	if !ok {
		return fmt.Errorf("%w: %s slice storage", ErrTypeMismatch, s.Type)
	}
	return nil
}

// Float32At returns sample (x, y) converted to float32.
func (s *Slice) Float32At(x, y int) float32 {
	i := s.Index(x, y)
	switch s.Type {
	case PixelTypeFloat:
		return s.Float[i]
	case PixelTypeHalf:
		return s.Half[i].Float32()
	default:
		return float32(s.Uint[i])
	}
}

// SetFloat32 stores v at sample (x, y), converting to the slice type.
func (s *Slice) SetFloat32(x, y int, v float32) {
	i := s.Index(x, y)
	switch s.Type {
	case PixelTypeFloat:
		s.Float[i] = v
	case PixelTypeHalf:
		s.Half[i] = half.FromFloat32(v)
	default:
		s.Uint[i] = floatToUint(v)
	}
}

// Uint32At returns sample (x, y) of a uint slice.
func (s *Slice) Uint32At(x, y int) uint32 {
	return s.Uint[s.Index(x, y)]
}

// SetUint32 stores v at sample (x, y) of a uint slice.
func (s *Slice) SetUint32(x, y int, v uint32) {
	s.Uint[s.Index(x, y)] = v
}

func floatToUint(f float32) uint32 {
	switch {
	case math.IsNaN(float64(f)) || f <= 0:
		return 0
	case f >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(f)
}

// fill stores the slice's FillValue at every sampled position of b.
func (s *Slice) fill(b Box2i) {
	v := float32(s.FillValue)
	u := floatToUint(v)
	for y := int(b.Min.Y); y <= int(b.Max.Y); y++ {
		if !sampledAt(y, s.YSampling) {
			continue
		}
		for x := int(b.Min.X); x <= int(b.Max.X); x++ {
			if !sampledAt(x, s.XSampling) {
				continue
			}
			if s.Type == PixelTypeUint {
				s.SetUint32(x, y, u)
			} else {
				s.SetFloat32(x, y, v)
			}
		}
	}
}

func sampledAt(v, sampling int) bool {
	return sampling <= 1 || ((v%sampling)+sampling)%sampling == 0
}

// decodeRow stores n samples of file type ft from src, starting at image
// x0 on line y and stepping xStep pixels.
func (s *Slice) decodeRow(src []byte, ft PixelType, x0, y, xStep, n int) {
	for i := 0; i < n; i++ {
		x := x0 + i*xStep
		switch ft {
		case PixelTypeHalf:
			h := half.FromBits(binary.LittleEndian.Uint16(src[2*i:]))
			if s.Type == PixelTypeHalf {
				s.Half[s.Index(x, y)] = h
			} else {
				s.SetFloat32(x, y, h.Float32())
			}
		case PixelTypeFloat:
			s.SetFloat32(x, y, math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:])))
		case PixelTypeUint:
			u := binary.LittleEndian.Uint32(src[4*i:])
			if s.Type == PixelTypeUint {
				s.Uint[s.Index(x, y)] = u
			} else {
				s.SetFloat32(x, y, float32(u))
			}
		}
	}
}

// encodeRow is the inverse of decodeRow: it writes n samples as file
// type ft into dst.
func (s *Slice) encodeRow(dst []byte, ft PixelType, x0, y, xStep, n int) {
	for i := 0; i < n; i++ {
		x := x0 + i*xStep
		switch ft {
		case PixelTypeHalf:
			var h half.Half
			if s.Type == PixelTypeHalf {
				h = s.Half[s.Index(x, y)]
			} else {
				h = half.FromFloat32(s.Float32At(x, y))
			}
			binary.LittleEndian.PutUint16(dst[2*i:], h.Bits())
		case PixelTypeFloat:
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(s.Float32At(x, y)))
		case PixelTypeUint:
			var u uint32
			if s.Type == PixelTypeUint {
				u = s.Uint[s.Index(x, y)]
			} else {
				u = floatToUint(s.Float32At(x, y))
			}
			binary.LittleEndian.PutUint32(dst[4*i:], u)
		}
	}
}

// FrameBuffer maps channel names to slices, in insertion order.
type FrameBuffer struct {
	names  []string
	slices map[string]*Slice
}

// NewFrameBuffer creates an empty frame buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{slices: make(map[string]*Slice)}
}

// Insert adds a slice for the named channel. It fails with
// ErrDuplicateSlice if the channel already has a slice.
func (fb *FrameBuffer) Insert(name string, s Slice) error {
	if _, ok := fb.slices[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSlice, name)
	}
	if err := s.validate(); err != nil {
		return fmt.Errorf("%w (channel %q)", err, name)
	}
	fb.names = append(fb.names, name)
	fb.slices[name] = &s
	return nil
}

// Get returns the slice for the named channel, or nil.
func (fb *FrameBuffer) Get(name string) *Slice {
	return fb.slices[name]
}

// Has reports whether the named channel has a slice.
func (fb *FrameBuffer) Has(name string) bool {
	_, ok := fb.slices[name]
	return ok
}

// Names returns the channel names in insertion order.
func (fb *FrameBuffer) Names() []string {
	return append([]string(nil), fb.names...)
}

// Len returns the number of slices.
func (fb *FrameBuffer) Len() int {
	return len(fb.names)
}

// Compact returns a view of the full resolution slice s that stores a
// channel sampled every xSampling by ySampling pixels. Samples of dw are
// packed into the top-left corner of dw's region, so the view never
// addresses memory outside it; Expanded undoes the mapping.
func (s Slice) Compact(dw Box2i, xSampling, ySampling int) Slice {
	minX, minY := int(dw.Min.X), int(dw.Min.Y)
	c := s
	c.XSampling = xSampling
	c.YSampling = ySampling
	c.Origin = s.Origin +
		(minX-floorDiv(minX, xSampling))*s.XStride +
		(minY-floorDiv(minY, ySampling))*s.YStride
	return c
}

// Expanded returns the full resolution view of a slice built with Compact
// for the same data window.
func (s Slice) Expanded(dw Box2i) Slice {
	minX, minY := int(dw.Min.X), int(dw.Min.Y)
	e := s
	e.XSampling = 1
	e.YSampling = 1
	e.Origin = s.Origin -
		(minX-floorDiv(minX, s.XSampling))*s.XStride -
		(minY-floorDiv(minY, s.YSampling))*s.YStride
	return e
}
