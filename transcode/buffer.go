// Package transcode moves pixels between a host's interleaved BGRA frame
// buffers and the planar channel slices of an OpenEXR file.
//
// It reconciles data and display windows, maps logical colour roles to file
// channels, expands subsampled channels, copies channels requested under
// more than one role, converts between half and float interleaved layouts
// and applies display transfer functions. Every pass is split into rows run
// through an exr.ParallelConfig; each row is written by exactly one task.
package transcode

import (
	"errors"
	"fmt"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/half"
)

// Buffer errors
var (
	ErrInvalidBuffer  = errors.New("transcode: invalid pixel buffer")
	ErrFormatMismatch = errors.New("transcode: pixel buffer formats differ")
)

// PixelBuffer is an interleaved image of 3 or 4 channels stored as half or
// float. Row y (0 at the top) starts at element origin + y*rowStep of the
// storage; rowStep is negative for bottom-up buffers. Views returned by Sub
// share storage with their parent.
type PixelBuffer struct {
	Type     exr.PixelType
	Channels int
	Width    int
	Height   int

	Float []float32
	Half  []half.Half

	origin  int
	rowStep int
}

// NewPixelBuffer allocates a top-down buffer with rows packed end to end.
func NewPixelBuffer(pt exr.PixelType, channels, width, height int) (*PixelBuffer, error) {
	if err := checkFormat(pt, channels, width, height); err != nil {
		return nil, err
	}
	b := &PixelBuffer{Type: pt, Channels: channels, Width: width, Height: height, rowStep: width * channels}
	n := width * height * channels
	if pt == exr.PixelTypeFloat {
		b.Float = make([]float32, n)
	} else {
		b.Half = make([]half.Half, n)
	}
	return b, nil
}

// WrapFloat returns a buffer over host memory pix with rows stride
// elements apart. With bottomUp the first row in memory is the bottom row
// of the image.
func WrapFloat(pix []float32, channels, width, height, stride int, bottomUp bool) (*PixelBuffer, error) {
	b := &PixelBuffer{Type: exr.PixelTypeFloat, Channels: channels, Width: width, Height: height, Float: pix}
	if err := b.wrap(len(pix), stride, bottomUp); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *PixelBuffer) wrap(n, stride int, bottomUp bool) error {
	if err := checkFormat(b.Type, b.Channels, b.Width, b.Height); err != nil {
		return err
	}
	if stride < b.Width*b.Channels {
		return fmt.Errorf("%w: stride %d for %d pixels of %d channels", ErrInvalidBuffer, stride, b.Width, b.Channels)
	}
	if b.Height > 0 && b.Width > 0 && n < (b.Height-1)*stride+b.Width*b.Channels {
		return fmt.Errorf("%w: %d elements for %dx%d with stride %d", ErrInvalidBuffer, n, b.Width, b.Height, stride)
	}
	b.rowStep = stride
	if bottomUp {
		b.origin = (b.Height - 1) * stride
		b.rowStep = -stride
	}
	return nil
}

func checkFormat(pt exr.PixelType, channels, width, height int) error {
	switch {
	case pt != exr.PixelTypeHalf && pt != exr.PixelTypeFloat:
		return fmt.Errorf("%w: pixel type %s", ErrInvalidBuffer, pt)
	case channels != 3 && channels != 4:
		return fmt.Errorf("%w: %d channels", ErrInvalidBuffer, channels)
	case width < 0 || height < 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidBuffer, width, height)
	}
	return nil
}

// BottomUp reports whether rows are stored bottom row first.
func (b *PixelBuffer) BottomUp() bool { return b.rowStep < 0 }

// Empty reports whether the buffer has no pixels.
func (b *PixelBuffer) Empty() bool { return b.Width == 0 || b.Height == 0 }

// rowStart returns the element index of pixel (0, y).
func (b *PixelBuffer) rowStart(y int) int { return b.origin + y*b.rowStep }

// RowFloat returns the elements of row y of a float buffer.
func (b *PixelBuffer) RowFloat(y int) []float32 {
	i := b.rowStart(y)
	return b.Float[i : i+b.Width*b.Channels]
}

// RowHalf returns the elements of row y of a half buffer.
func (b *PixelBuffer) RowHalf(y int) []half.Half {
	i := b.rowStart(y)
	return b.Half[i : i+b.Width*b.Channels]
}

// Sub returns a view of the w x h pixels starting at (x, y). It panics if
// the rectangle is not inside the buffer.
func (b *PixelBuffer) Sub(x, y, w, h int) *PixelBuffer {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > b.Width || y+h > b.Height {
		panic(fmt.Sprintf("transcode: sub-rectangle (%d,%d) %dx%d outside %dx%d buffer", x, y, w, h, b.Width, b.Height))
	}
	s := *b
	s.Width, s.Height = w, h
	s.origin = b.rowStart(y) + x*b.Channels
	return &s
}

// SameFormat reports whether b and o have the same type, channel count and
// size.
func (b *PixelBuffer) SameFormat(o *PixelBuffer) bool {
	return b.Type == o.Type && b.Channels == o.Channels && b.Width == o.Width && b.Height == o.Height
}

// ChannelSlice returns a slice addressing channel c of the buffer, whose
// top-left pixel is image position dw.Min. The slice shares b's storage
// and type.
func (b *PixelBuffer) ChannelSlice(c int, dw exr.Box2i, fill float64) exr.Slice {
	return exr.Slice{
		Type:      b.Type,
		Float:     b.Float,
		Half:      b.Half,
		Origin:    b.origin + c - int(dw.Min.X)*b.Channels - int(dw.Min.Y)*b.rowStep,
		XStride:   b.Channels,
		YStride:   b.rowStep,
		XSampling: 1,
		YSampling: 1,
		FillValue: fill,
	}
}

// fillChannel stores v in channel c of every pixel of a float buffer.
func (b *PixelBuffer) fillChannel(c int, v float32) {
	for y := 0; y < b.Height; y++ {
		row := b.RowFloat(y)
		for i := c; i < len(row); i += b.Channels {
			row[i] = v
		}
	}
}

// size returns the number of storage elements the pixels span.
func (b *PixelBuffer) size() int {
	return b.Width * b.Height * b.Channels
}
