package plugin

import (
	"fmt"
	"io"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

// ImportOptions configures an Importer.
type ImportOptions struct {
	// Config is used for every frame read. The zero value means
	// transcode.DefaultConfig().
	Config transcode.Config
}

// Importer reads frames of one OpenEXR file into host buffers.
type Importer struct {
	f  *exr.InputFile
	tr *transcode.Transcoder
}

// Open reads the file header from r.
func Open(r io.ReadSeeker, opts ImportOptions) (*Importer, error) {
	f, err := exr.OpenInput(r)
	if err != nil {
		return nil, fmt.Errorf("plugin: open: %w", err)
	}
	return &Importer{f: f, tr: transcode.New(opts.Config)}, nil
}

// File returns the underlying input file.
func (im *Importer) File() *exr.InputFile { return im.f }

// ChannelNames returns every channel name in the file.
func (im *Importer) ChannelNames() []string {
	return im.f.Channels().Names()
}

// DefaultSettings returns the settings a new clip of this file starts
// with.
func (im *Importer) DefaultSettings() Settings {
	return DefaultSettings(im.ChannelNames())
}

// ReadFrame decodes the file into dst, a 4 channel float BGRA buffer the
// size of the display window, as selected by s. Pixels outside the data
// window are 0 with alpha 1. The colour space of s is applied last; the
// host should be told dst is in s.ColorSpace.PixelFormat().
func (im *Importer) ReadFrame(dst *transcode.PixelBuffer, s Settings) error {
	if dst.Type != exr.PixelTypeFloat || dst.Channels != 4 {
		return fmt.Errorf("plugin: read frame: %w: need 4 channel float, have %d channel %s",
			transcode.ErrInvalidBuffer, dst.Channels, dst.Type)
	}
	m := s.Mapping(im.ChannelNames())
	plan := transcode.Reconcile(im.f.DataWindow(), im.f.DisplayWindow(), im.f.Parts() > 1)

	Logger().Debug("reading frame",
		"strategy", plan.Strategy,
		"fill", plan.NeedsFill,
		"disjoint", plan.Disjoint,
		"red", m.Red, "green", m.Green, "blue", m.Blue, "alpha", m.Alpha,
		"lumaChroma", m.LumaChroma(),
		"colorSpace", s.ColorSpace)

	decode := im.decodeChannels(m)
	if m.LumaChroma() {
		decode = im.decodeLumaChroma(m)
	}
	if err := im.tr.Reconcile(dst, plan, decode); err != nil {
		return fmt.Errorf("plugin: read frame: %w", err)
	}
	if plan.Disjoint {
		return nil
	}
	if err := im.tr.ConvertColorSpace(dst, s.ColorSpace); err != nil {
		return fmt.Errorf("plugin: read frame: %w", err)
	}
	return nil
}

// decodeChannels reads the mapped channels straight into the target
// through per-role slices.
func (im *Importer) decodeChannels(m transcode.ChannelMapping) func(*transcode.PixelBuffer) error {
	return func(target *transcode.PixelBuffer) error {
		dw := im.f.DataWindow()
		fb := exr.NewFrameBuffer()
		dups, err := m.Bind(fb, target, dw, im.f.Channels())
		if err != nil {
			return err
		}
		im.f.SetFrameBuffer(fb)
		if err := im.f.ReadPixels(im.tr.Parallel()); err != nil {
			return err
		}
		transcode.ExpandSubsampled(fb, dw)
		transcode.ResolveDuplicates(dups, dw)
		return nil
	}
}

// decodeLumaChroma reads a luminance/chroma image through the RGBA front
// end and converts it into the target.
func (im *Importer) decodeLumaChroma(m transcode.ChannelMapping) func(*transcode.PixelBuffer) error {
	return func(target *transcode.PixelBuffer) error {
		p := im.tr.Provider()
		rgba, err := p.Allocate(exr.PixelTypeFloat, 4, target.Width, target.Height)
		if err != nil {
			return err
		}
		defer p.Release(rgba)

		if err := im.f.ReadRGBA(rgba.Float, rgba.Width*4, im.tr.Parallel()); err != nil {
			return err
		}
		if err := im.tr.Import(rgba, target); err != nil {
			return err
		}
		if m.Alpha == transcode.ChannelNone {
			im.tr.SetAlpha(target, 1)
		}
		return nil
	}
}
