package plugin

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/exrmeta"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

// Header values written on export
const (
	Writer        = "ProEXR for Premiere"
	BypassComment = "Conversion to linear bypassed in Premiere"

	DefaultDWALevel = 45
	MaxDWALevel     = 1000
)

// ErrExportSettings reports an invalid ExportSettings value.
var ErrExportSettings = errors.New("plugin: invalid export settings")

// ExportSettings selects how a frame is written.
type ExportSettings struct {
	Compression exr.Compression
	// DWALevel is stored in the header for DWAA and DWAB compression.
	DWALevel float32
	// HalfFloat writes half channels instead of float. Luminance/chroma
	// files are always half.
	HalfFloat bool
	// Alpha writes an alpha channel.
	Alpha bool
	// Premultiply scales colour by alpha on the way out. It only applies
	// with Alpha.
	Premultiply bool
	// LumaChroma writes Y, RY and BY instead of R, G and B.
	LumaChroma bool
	// BypassLinear records that the host skipped its linear conversion.
	BypassLinear bool
}

// DefaultExportSettings returns the settings of a new export preset.
func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		Compression: DefaultCompression(),
		DWALevel:    DefaultDWALevel,
		HalfFloat:   true,
		Alpha:       true,
		Premultiply: true,
	}
}

// Validate checks that s can be written by this build.
func (s ExportSettings) Validate() error {
	if s.DWALevel < 0 || s.DWALevel > MaxDWALevel {
		return fmt.Errorf("%w: DWA level %v outside [0, %d]", ErrExportSettings, s.DWALevel, MaxDWALevel)
	}
	if !s.Compression.Supported() {
		return fmt.Errorf("%w: %w: %s", ErrExportSettings, exr.ErrUnsupportedCompression, CompressionName(s.Compression))
	}
	return nil
}

// FrameMeta carries the host's description of an exported frame.
type FrameMeta struct {
	// Time is the capture time; zero omits capDate and utcOffset.
	Time time.Time
	// PixelAspect is the pixel aspect ratio; zero means square.
	PixelAspect exr.Rational
	// FrameRate in frames per second; zero omits framesPerSecond and
	// timeCode.
	FrameRate float64
	// Start is the position of the frame in its sequence, used for the
	// time code.
	Start time.Duration
}

// Export writes frame, a 4 channel float BGRA buffer, to w as a single
// part scanline file described by meta and s.
func Export(w io.WriteSeeker, frame *transcode.PixelBuffer, meta FrameMeta, s ExportSettings, cfg transcode.Config) error {
	if frame.Type != exr.PixelTypeFloat || frame.Channels != 4 {
		return fmt.Errorf("plugin: export: %w: need 4 channel float, have %d channel %s",
			transcode.ErrInvalidBuffer, frame.Channels, frame.Type)
	}
	if frame.Empty() {
		return fmt.Errorf("plugin: export: %w: empty frame", transcode.ErrInvalidBuffer)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("plugin: export: %w", err)
	}
	tr := transcode.New(cfg)

	var err error
	if s.LumaChroma {
		err = exportLumaChroma(w, frame, meta, s, tr)
	} else {
		err = exportRGB(w, frame, meta, s, tr)
	}
	if err != nil {
		return fmt.Errorf("plugin: export: %w", err)
	}
	return nil
}

// applyMeta adds the production attributes to h.
func applyMeta(h *exr.Header, meta FrameMeta, s ExportSettings) {
	par := meta.PixelAspect
	if par.Num <= 0 || par.Denom == 0 {
		par = exr.Rational{Num: 1, Denom: 1}
	}
	exrmeta.SetPixelAspectRatio(h, par.Num, par.Denom)

	if s.Compression == exr.CompressionDWAA || s.Compression == exr.CompressionDWAB {
		h.SetDWACompressionLevel(s.DWALevel)
	}

	if !meta.Time.IsZero() {
		exrmeta.SetCapTime(h, meta.Time)
	}

	if meta.FrameRate > 0 {
		exrmeta.SetFramesPerSecond(h, exrmeta.FloatToRational(meta.FrameRate, 0))
		if rate, ok := exrmeta.LookupTimeCodeRate(meta.FrameRate); ok {
			tc, err := timeCodeFor(meta.Start, rate)
			if err != nil {
				Logger().Warn("time code out of range", "start", meta.Start, "error", err)
			} else {
				exrmeta.SetTimeCode(h, tc)
			}
			exrmeta.SetFramesPerSecond(h, rate.Rate)
		}
	}

	exrmeta.SetWriter(h, Writer)
	if s.BypassLinear {
		exrmeta.SetComments(h, BypassComment)
	}
}

func exportRGB(w io.WriteSeeker, frame *transcode.PixelBuffer, meta FrameMeta, s ExportSettings, tr *transcode.Transcoder) error {
	width, height := frame.Width, frame.Height
	pt := exr.PixelTypeFloat
	if s.HalfFloat {
		pt = exr.PixelTypeHalf
	}
	channels := 3
	if s.Alpha {
		channels = 4
	}
	premultiply := s.Alpha && s.Premultiply

	h := exr.NewScanlineHeader(width, height)
	h.SetCompression(s.Compression)
	cl := exr.NewChannelList()
	for _, name := range []string{"B", "G", "R", "A"}[:channels] {
		cl.Add(exr.NewChannel(name, pt))
	}
	h.SetChannels(cl)
	applyMeta(h, meta, s)

	// Float frames without premultiplication are written straight from
	// the host buffer.
	src := frame
	if pt == exr.PixelTypeHalf || premultiply {
		p := tr.Provider()
		tmp, err := p.Allocate(pt, channels, width, height)
		if err != nil {
			return err
		}
		defer p.Release(tmp)
		if err := tr.Export(frame, tmp, premultiply); err != nil {
			return err
		}
		src = tmp
	}

	Logger().Debug("writing frame",
		"compression", s.Compression,
		"type", pt,
		"channels", channels,
		"premultiply", premultiply,
		"bottomUp", frame.BottomUp())

	dw := h.DataWindow()
	fb := exr.NewFrameBuffer()
	for c, name := range []string{"B", "G", "R", "A"}[:channels] {
		if err := fb.Insert(name, src.ChannelSlice(c, dw, 0)); err != nil {
			return err
		}
	}
	out, err := exr.NewOutputFile(w, h)
	if err != nil {
		return err
	}
	out.SetFrameBuffer(fb)
	if err := out.WritePixels(tr.Parallel()); err != nil {
		return err
	}
	return out.Close()
}

// exportLumaChroma writes Y, RY, BY and optionally A. Chroma is sampled
// 2x2, so the data window is padded to even dimensions by repeating the
// last column and row.
func exportLumaChroma(w io.WriteSeeker, frame *transcode.PixelBuffer, meta FrameMeta, s ExportSettings, tr *transcode.Transcoder) error {
	width, height := frame.Width, frame.Height
	dataW, dataH := width+width%2, height+height%2
	premultiply := s.Alpha && s.Premultiply

	channels := exr.WriteYC
	if s.Alpha {
		channels = exr.WriteYCA
	}
	h := exr.NewRGBAHeader(
		exr.NewBox2i(0, 0, width-1, height-1),
		exr.NewBox2i(0, 0, dataW-1, dataH-1),
		channels, exr.PixelTypeHalf, s.Compression)
	applyMeta(h, meta, s)

	p := tr.Provider()
	rgba, err := p.Allocate(exr.PixelTypeFloat, 4, dataW, dataH)
	if err != nil {
		return err
	}
	defer p.Release(rgba)

	stride := dataW * 4
	pix := rgba.Float
	tr.Parallel().For(height, func(y int) {
		in := frame.RowFloat(y)
		out := pix[y*stride : (y+1)*stride]
		for x := 0; x < width; x++ {
			q := out[x*4 : x*4+4]
			q[0], q[1], q[2], q[3] = in[x*4+2], in[x*4+1], in[x*4], in[x*4+3]
		}
		transcode.NarrowToHalf(out[:width*4], premultiply)
		if dataW > width {
			copy(out[width*4:], out[(width-1)*4:width*4])
		}
	})
	if dataH > height {
		copy(pix[height*stride:], pix[(height-1)*stride:height*stride])
	}

	Logger().Debug("writing luminance/chroma frame",
		"compression", s.Compression,
		"dataWindow", h.DataWindow(),
		"premultiply", premultiply)

	return exr.WriteRGBA(w, h, pix, stride, tr.Parallel())
}
