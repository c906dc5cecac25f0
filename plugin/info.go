package plugin

import (
	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/exrmeta"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

// FileInfo describes a file to the host.
type FileInfo struct {
	// Width and Height are the display window size.
	Width, Height int
	// Depth is 128 bits per pixel when the file has an "A" channel and 96
	// otherwise.
	Depth       int
	HasAlpha    bool
	PixelAspect exr.Rational
	// FrameRate is nil when the file does not record one.
	FrameRate *exr.Rational
	// TimeCode is "HH:MM:SS:FF", with ';' separators for drop frame, or
	// empty.
	TimeCode string
	// Channels lists the channels a colour role can be mapped to; uint
	// channels are left out.
	Channels []string
}

// Info returns the file description.
func (im *Importer) Info() FileInfo {
	h := im.f.Header(0)
	disp := im.f.DisplayWindow()
	cl := im.f.Channels()
	hasAlpha := cl.Get("A") != nil

	info := FileInfo{
		Width:       disp.Width(),
		Height:      disp.Height(),
		Depth:       96,
		HasAlpha:    hasAlpha,
		PixelAspect: exrmeta.PixelAspectRatio(h),
		FrameRate:   exrmeta.FramesPerSecond(h),
	}
	if hasAlpha {
		info.Depth = 128
	}
	if tc := exrmeta.TimeCode(h); tc != nil {
		info.TimeCode = tc.String()
	}
	for _, c := range cl.Channels() {
		if c.Type != exr.PixelTypeUint {
			info.Channels = append(info.Channels, c.Name)
		}
	}
	return info
}

// Analysis returns the one-line file description shown in the host's
// properties panel, such as "Zip16 compression, sRGB color space".
func (im *Importer) Analysis(cs transcode.ColorSpace) string {
	c := im.f.Header(0).Compression()
	text := CompressionName(c) + " compression"
	if c == exr.CompressionNone {
		text = "No compression"
	}
	if cs != transcode.LinearAdobe {
		name := cs.String()
		if cs == transcode.LinearBypass {
			name = "Linear"
		}
		text += ", " + name + " color space"
	}
	return text
}
