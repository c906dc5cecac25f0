package plugin

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/exrmeta"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

// testFrame returns a BGRA frame whose values are exact in half.
func testFrame(t *testing.T, width, height int, bottomUp bool) *transcode.PixelBuffer {
	t.Helper()
	pix := make([]float32, width*height*4)
	f, err := transcode.WrapFloat(pix, 4, width, height, width*4, bottomUp)
	if err != nil {
		t.Fatal(err)
	}
	alphas := []float32{1, .5, .25, 0}
	for y := 0; y < height; y++ {
		row := f.RowFloat(y)
		for x := 0; x < width; x++ {
			copy(row[x*4:], []float32{float32(x) / 8, float32(y) / 8, .5, alphas[(x+y)%4]})
		}
	}
	return f
}

// rows returns the frame's pixels top to bottom.
func rows(f *transcode.PixelBuffer) []float32 {
	var out []float32
	for y := 0; y < f.Height; y++ {
		out = append(out, f.RowFloat(y)...)
	}
	return out
}

func exportFrame(t *testing.T, frame *transcode.PixelBuffer, meta FrameMeta, s ExportSettings) *Importer {
	t.Helper()
	w := &memFile{}
	if err := Export(w, frame, meta, s, transcode.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	return openImage(t, w.buf)
}

func TestExportRoundTrip(t *testing.T) {
	premultiplied := func(px []float32) []float32 {
		out := append([]float32(nil), px...)
		for i := 0; i < len(out); i += 4 {
			for c := 0; c < 3; c++ {
				out[i+c] *= out[i+3]
			}
		}
		return out
	}
	opaque := func(px []float32) []float32 {
		out := append([]float32(nil), px...)
		for i := 3; i < len(out); i += 4 {
			out[i] = 1
		}
		return out
	}
	same := func(px []float32) []float32 { return px }

	tests := []struct {
		name      string
		settings  ExportSettings
		bottomUp  bool
		channels  []string
		pixelType exr.PixelType
		want      func([]float32) []float32
	}{
		{
			name:      "float",
			settings:  ExportSettings{Compression: exr.CompressionZIP, Alpha: true},
			channels:  []string{"A", "B", "G", "R"},
			pixelType: exr.PixelTypeFloat,
			want:      same,
		},
		{
			name:      "half",
			settings:  ExportSettings{Compression: exr.CompressionRLE, HalfFloat: true, Alpha: true},
			channels:  []string{"A", "B", "G", "R"},
			pixelType: exr.PixelTypeHalf,
			want:      same,
		},
		{
			name:      "premultiplied",
			settings:  ExportSettings{Compression: exr.CompressionZIPS, Alpha: true, Premultiply: true},
			channels:  []string{"A", "B", "G", "R"},
			pixelType: exr.PixelTypeFloat,
			want:      premultiplied,
		},
		{
			name:      "no alpha",
			settings:  ExportSettings{Compression: exr.CompressionNone, HalfFloat: true, Premultiply: true},
			channels:  []string{"B", "G", "R"},
			pixelType: exr.PixelTypeHalf,
			want:      opaque,
		},
		{
			name:      "bottom-up host frame",
			settings:  ExportSettings{Compression: exr.CompressionZIP, Alpha: true},
			bottomUp:  true,
			channels:  []string{"A", "B", "G", "R"},
			pixelType: exr.PixelTypeFloat,
			want:      same,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := testFrame(t, 5, 3, tt.bottomUp)
			before := rows(frame)
			im := exportFrame(t, frame, FrameMeta{}, tt.settings)

			if diff := cmp.Diff(tt.channels, im.ChannelNames()); diff != "" {
				t.Errorf("channels mismatch (-want +got):\n%s", diff)
			}
			for _, c := range im.File().Channels().Channels() {
				if c.Type != tt.pixelType {
					t.Errorf("channel %s is %s, want %s", c.Name, c.Type, tt.pixelType)
				}
			}
			if diff := cmp.Diff(before, rows(frame)); diff != "" {
				t.Errorf("Export modified the frame (-before +after):\n%s", diff)
			}

			got := readFrame(t, im, im.DefaultSettings())
			if diff := cmp.Diff(tt.want(before), got); diff != "" {
				t.Errorf("pixels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExportLumaChroma(t *testing.T) {
	grey := func(width, height int, alpha float32) *transcode.PixelBuffer {
		f := mustBuffer(t, exr.PixelTypeFloat, 4, width, height)
		for y := 0; y < height; y++ {
			row := f.RowFloat(y)
			for x := 0; x < width; x++ {
				v := float32(x+y+1) / 4
				copy(row[x*4:], []float32{v, v, v, alpha})
			}
		}
		return f
	}
	tests := []struct {
		name     string
		frame    *transcode.PixelBuffer
		settings ExportSettings
		data     exr.Box2i
		channels []string
		want     func([]float32) []float32
	}{
		{
			name:     "odd size is padded",
			frame:    grey(3, 3, 1),
			settings: ExportSettings{Compression: exr.CompressionZIP, Alpha: true, LumaChroma: true},
			data:     exr.NewBox2i(0, 0, 3, 3),
			channels: []string{"A", "BY", "RY", "Y"},
			want:     func(px []float32) []float32 { return px },
		},
		{
			name:     "premultiplied without alpha",
			frame:    grey(4, 2, .5),
			settings: ExportSettings{Compression: exr.CompressionZIP, Premultiply: true, LumaChroma: true},
			data:     exr.NewBox2i(0, 0, 3, 1),
			channels: []string{"BY", "RY", "Y"},
			want: func(px []float32) []float32 {
				out := append([]float32(nil), px...)
				for i := 3; i < len(out); i += 4 {
					out[i] = 1
				}
				return out
			},
		},
		{
			name:     "premultiplied",
			frame:    grey(2, 2, .5),
			settings: ExportSettings{Compression: exr.CompressionZIP, Alpha: true, Premultiply: true, LumaChroma: true},
			data:     exr.NewBox2i(0, 0, 1, 1),
			channels: []string{"A", "BY", "RY", "Y"},
			want: func(px []float32) []float32 {
				out := append([]float32(nil), px...)
				for i := 0; i < len(out); i += 4 {
					out[i], out[i+1], out[i+2] = out[i]/2, out[i+1]/2, out[i+2]/2
				}
				return out
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := exportFrame(t, tt.frame, FrameMeta{}, tt.settings)
			h := im.File().Header(0)
			if got := h.DataWindow(); got != tt.data {
				t.Errorf("data window %v, want %v", got, tt.data)
			}
			if got, want := h.DisplayWindow(), exr.NewBox2i(0, 0, tt.frame.Width-1, tt.frame.Height-1); got != want {
				t.Errorf("display window %v, want %v", got, want)
			}
			if diff := cmp.Diff(tt.channels, im.ChannelNames()); diff != "" {
				t.Errorf("channels mismatch (-want +got):\n%s", diff)
			}
			for _, c := range h.Channels().Channels() {
				if c.Type != exr.PixelTypeHalf {
					t.Errorf("channel %s is %s, want half", c.Name, c.Type)
				}
			}

			got := readFrame(t, im, im.DefaultSettings())
			if diff := cmp.Diff(tt.want(tt.frame.Float), got, cmpopts.EquateApprox(2e-3, 1e-4)); diff != "" {
				t.Errorf("pixels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExportMetadata(t *testing.T) {
	tests := []struct {
		name     string
		meta     FrameMeta
		settings ExportSettings
		check    func(t *testing.T, h *exr.Header)
	}{
		{
			name: "production attributes",
			meta: FrameMeta{
				Time:        time.Date(2024, 3, 5, 14, 7, 9, 0, time.FixedZone("PST", -8*3600)),
				PixelAspect: exr.Rational{Num: 10, Denom: 11},
				FrameRate:   29.97,
				Start:       60060 * time.Millisecond,
			},
			settings: ExportSettings{Compression: exr.CompressionZIP, HalfFloat: true, BypassLinear: true},
			check: func(t *testing.T, h *exr.Header) {
				if got := exrmeta.Writer(h); got != Writer {
					t.Errorf("writer %q", got)
				}
				if got := exrmeta.Comments(h); got != BypassComment {
					t.Errorf("comments %q", got)
				}
				if got := exrmeta.CapDate(h); got != "2024:03:05 14:07:09" {
					t.Errorf("capDate %q", got)
				}
				if got := exrmeta.UTCOffset(h); got != 8*3600 {
					t.Errorf("utcOffset %v", got)
				}
				if got := exrmeta.FramesPerSecond(h); got == nil || *got != exrmeta.FPS2997 {
					t.Errorf("framesPerSecond %v", got)
				}
				if got := exrmeta.TimeCode(h); got == nil || got.String() != "00;01;00;02" {
					t.Errorf("timeCode %v", got)
				}
				if got := exrmeta.PixelAspectRatio(h); got != (exr.Rational{Num: 10, Denom: 11}) {
					t.Errorf("pixel aspect %v", got)
				}
				if got := h.PixelAspectRatio(); got != float32(10)/11 {
					t.Errorf("pixelAspectRatio %v", got)
				}
			},
		},
		{
			name:     "defaults",
			settings: ExportSettings{Compression: exr.CompressionZIP},
			check: func(t *testing.T, h *exr.Header) {
				for _, name := range []string{
					exrmeta.AttrCapDate, exrmeta.AttrUTCOffset, exrmeta.AttrFramesPerSecond,
					exrmeta.AttrTimeCode, exrmeta.AttrComments, exrmeta.AttrPixelAspectRatioRational,
				} {
					if h.Has(name) {
						t.Errorf("unexpected %s attribute", name)
					}
				}
				if got := exrmeta.Writer(h); got != Writer {
					t.Errorf("writer %q", got)
				}
				if got := h.PixelAspectRatio(); got != 1 {
					t.Errorf("pixelAspectRatio %v", got)
				}
			},
		},
		{
			name:     "frame rate without time code",
			meta:     FrameMeta{FrameRate: 12, Start: time.Hour},
			settings: ExportSettings{Compression: exr.CompressionZIP},
			check: func(t *testing.T, h *exr.Header) {
				if got := exrmeta.FramesPerSecond(h); got == nil || *got != (exr.Rational{Num: 12, Denom: 1}) {
					t.Errorf("framesPerSecond %v", got)
				}
				if h.Has(exrmeta.AttrTimeCode) {
					t.Error("unexpected timeCode")
				}
			},
		},
		{
			name:     "luminance/chroma",
			meta:     FrameMeta{FrameRate: 25, Start: 2 * time.Second},
			settings: ExportSettings{Compression: exr.CompressionZIP, LumaChroma: true},
			check: func(t *testing.T, h *exr.Header) {
				if got := exrmeta.TimeCode(h); got == nil || got.String() != "00:00:02:00" {
					t.Errorf("timeCode %v", got)
				}
				if got := exrmeta.Writer(h); got != Writer {
					t.Errorf("writer %q", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := exportFrame(t, testFrame(t, 2, 2, false), tt.meta, tt.settings)
			h := im.File().Header(0)
			if got := h.Compression(); got != tt.settings.Compression {
				t.Errorf("compression %s, want %s", got, tt.settings.Compression)
			}
			tt.check(t, h)
		})
	}
}

func TestApplyMetaDWALevel(t *testing.T) {
	for _, c := range []exr.Compression{exr.CompressionDWAA, exr.CompressionDWAB} {
		h := exr.NewScanlineHeader(2, 2)
		applyMeta(h, FrameMeta{}, ExportSettings{Compression: c, DWALevel: 80})
		if got := h.DWACompressionLevel(); got != 80 {
			t.Errorf("%s: DWA level %v, want 80", CompressionName(c), got)
		}
	}

	h := exr.NewScanlineHeader(2, 2)
	applyMeta(h, FrameMeta{}, ExportSettings{Compression: exr.CompressionZIP, DWALevel: 80})
	if h.Has("dwaCompressionLevel") {
		t.Error("DWA level stored for zip compression")
	}
}

func TestExportSettingsValidate(t *testing.T) {
	if err := DefaultExportSettings().Validate(); err != nil {
		t.Errorf("default settings: %v", err)
	}
	tests := []struct {
		name string
		s    ExportSettings
		is   error
	}{
		{"negative level", ExportSettings{Compression: exr.CompressionZIP, DWALevel: -1}, ErrExportSettings},
		{"level too high", ExportSettings{Compression: exr.CompressionZIP, DWALevel: 1001}, ErrExportSettings},
		{"piz", ExportSettings{Compression: exr.CompressionPIZ}, exr.ErrUnsupportedCompression},
		{"dwab", ExportSettings{Compression: exr.CompressionDWAB, DWALevel: 45}, ErrExportSettings},
	}
	for _, tt := range tests {
		if err := tt.s.Validate(); !errors.Is(err, tt.is) {
			t.Errorf("%s: Validate() = %v, want %v", tt.name, err, tt.is)
		}
	}
}

func TestExportRejects(t *testing.T) {
	s := ExportSettings{Compression: exr.CompressionZIP, Alpha: true}
	tests := []struct {
		name  string
		frame *transcode.PixelBuffer
		s     ExportSettings
		is    error
	}{
		{"half frame", mustBuffer(t, exr.PixelTypeHalf, 4, 2, 2), s, transcode.ErrInvalidBuffer},
		{"3 channels", mustBuffer(t, exr.PixelTypeFloat, 3, 2, 2), s, transcode.ErrInvalidBuffer},
		{"empty", mustBuffer(t, exr.PixelTypeFloat, 4, 0, 2), s, transcode.ErrInvalidBuffer},
		{"unsupported", mustBuffer(t, exr.PixelTypeFloat, 4, 2, 2), ExportSettings{Compression: exr.CompressionB44}, ErrExportSettings},
	}
	for _, tt := range tests {
		w := &memFile{}
		if err := Export(w, tt.frame, FrameMeta{}, tt.s, transcode.DefaultConfig()); !errors.Is(err, tt.is) {
			t.Errorf("%s: Export() = %v, want %v", tt.name, err, tt.is)
		}
		if len(w.buf) != 0 {
			t.Errorf("%s: %d bytes written", tt.name, len(w.buf))
		}
	}
}

func TestExportSequentialMatchesParallel(t *testing.T) {
	frame := testFrame(t, 7, 5, false)
	s := ExportSettings{Compression: exr.CompressionZIP, HalfFloat: true, Alpha: true, Premultiply: true}
	var outs [2][]byte
	for i, par := range []exr.ParallelConfig{exr.SequentialConfig(), {NumWorkers: 4, GrainSize: 1}} {
		w := &memFile{}
		if err := Export(w, frame, FrameMeta{}, s, transcode.Config{Parallel: par}); err != nil {
			t.Fatal(err)
		}
		outs[i] = w.buf
	}
	if !bytes.Equal(outs[0], outs[1]) {
		t.Error("sequential and parallel exports differ")
	}
}

func BenchmarkExport(b *testing.B) {
	const w, h = 256, 256
	frame, err := transcode.NewPixelBuffer(exr.PixelTypeFloat, 4, w, h)
	if err != nil {
		b.Fatal(err)
	}
	for i := range frame.Float {
		frame.Float[i] = float32(i%1024) / 1024
	}
	s := DefaultExportSettings()
	cfg := transcode.DefaultConfig()
	b.SetBytes(w * h * 16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Export(&memFile{}, frame, FrameMeta{}, s, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
