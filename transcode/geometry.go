package transcode

import (
	"fmt"

	"github.com/mrjoshuak/exrpremiere/exr"
)

// Strategy says where the decoder writes.
type Strategy int

const (
	// Direct decodes straight into the caller buffer; D == V.
	Direct Strategy = iota
	// SubRegion decodes into the part of the caller buffer D covers; D ⊂ V.
	SubRegion
	// Temporary decodes into a buffer the size of D and copies the overlap.
	Temporary
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case SubRegion:
		return "sub-region"
	case Temporary:
		return "temporary"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Plan is the relationship between a file's data window D and the display
// window V the caller buffer covers.
type Plan struct {
	Data    exr.Box2i
	Display exr.Box2i

	// NeedsFill is set when some of V may not be written by the decoder:
	// D does not cover V, or the file has several parts.
	NeedsFill bool

	// Disjoint is set when D and V do not intersect. Nothing but the fill
	// reaches the caller buffer.
	Disjoint bool

	Strategy Strategy

	// Overlap is D ∩ V, empty when Disjoint.
	Overlap exr.Box2i
}

// Reconcile plans how pixels of data window D reach a buffer covering
// display window V.
func Reconcile(data, display exr.Box2i, multiPart bool) Plan {
	p := Plan{
		Data:      data,
		Display:   display,
		NeedsFill: multiPart || !data.Contains(display),
		Disjoint:  !data.Intersects(display),
		Overlap:   data.Intersect(display),
	}
	switch {
	case data == display:
		p.Strategy = Direct
	case display.Contains(data):
		p.Strategy = SubRegion
	default:
		p.Strategy = Temporary
	}
	return p
}

// SourceOffset is the position of the overlap's top-left pixel in a buffer
// covering D.
func (p Plan) SourceOffset() (x, y int) {
	return int(p.Overlap.Min.X - p.Data.Min.X), int(p.Overlap.Min.Y - p.Data.Min.Y)
}

// DestOffset is the position of the overlap's top-left pixel in a buffer
// covering V.
func (p Plan) DestOffset() (x, y int) {
	return int(p.Overlap.Min.X - p.Display.Min.X), int(p.Overlap.Min.Y - p.Display.Min.Y)
}

// Reconcile executes plan against dst, which covers the display window.
// decode is called once with a buffer whose top-left pixel is the data
// window's top-left pixel; it must fill every pixel of it. Uncovered parts
// of dst are filled with 0 colour and 1 alpha first.
//
// With the Temporary strategy the intermediate buffer comes from the
// Provider, has dst's format and is released before Reconcile returns, on
// success or failure.
func (t *Transcoder) Reconcile(dst *PixelBuffer, plan Plan, decode func(target *PixelBuffer) error) error {
	if dst.Width != plan.Display.Width() || dst.Height != plan.Display.Height() {
		return fmt.Errorf("%w: %dx%d buffer for %v display window", ErrInvalidBuffer, dst.Width, dst.Height, plan.Display)
	}
	if plan.NeedsFill {
		t.Fill(dst, 0, 1)
	}
	if plan.Disjoint {
		return nil
	}

	switch plan.Strategy {
	case Direct:
		return decode(dst)
	case SubRegion:
		x, y := plan.DestOffset()
		return decode(dst.Sub(x, y, plan.Data.Width(), plan.Data.Height()))
	}

	tmp, err := t.provider.Allocate(dst.Type, dst.Channels, plan.Data.Width(), plan.Data.Height())
	if err != nil {
		return err
	}
	defer t.provider.Release(tmp)

	if err := decode(tmp); err != nil {
		return err
	}
	w, h := plan.Overlap.Width(), plan.Overlap.Height()
	sx, sy := plan.SourceOffset()
	dx, dy := plan.DestOffset()
	return t.Copy(dst.Sub(dx, dy, w, h), tmp.Sub(sx, sy, w, h))
}
