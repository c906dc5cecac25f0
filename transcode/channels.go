package transcode

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/mrjoshuak/exrpremiere/exr"
)

// ChannelNone is the channel name of a role that takes no file data.
const ChannelNone = "(none)"

// ChannelMapping names the file channel feeding each colour role.
type ChannelMapping struct {
	Red, Green, Blue, Alpha string
}

// DefaultMapping picks roles for a file with the given channels. A file
// with luminance but no red channel maps red to Y and green and blue to
// the chroma channels, or to Y again when either chroma channel is absent.
// Otherwise each role takes the channel of the same name if it exists.
func DefaultMapping(available []string) ChannelMapping {
	has := func(name string) bool { return slices.Contains(available, name) }
	pick := func(name string) string {
		if has(name) {
			return name
		}
		return ChannelNone
	}

	m := ChannelMapping{Alpha: pick("A")}
	if has("Y") && !has("R") {
		m.Red, m.Green, m.Blue = "Y", "Y", "Y"
		if has("RY") && has("BY") {
			m.Green, m.Blue = "RY", "BY"
		}
		return m
	}
	m.Red, m.Green, m.Blue = pick("R"), pick("G"), pick("B")
	return m
}

// ResolveMapping replaces every requested name that is not one of the
// available channels with ChannelNone.
func ResolveMapping(requested ChannelMapping, available []string) ChannelMapping {
	resolve := func(name string) string {
		if name != ChannelNone && slices.Contains(available, name) {
			return name
		}
		return ChannelNone
	}
	return ChannelMapping{
		Red:   resolve(requested.Red),
		Green: resolve(requested.Green),
		Blue:  resolve(requested.Blue),
		Alpha: resolve(requested.Alpha),
	}
}

// LumaChroma reports whether the mapping reads a luminance/chroma image,
// which is decoded through exr's RGBA front end rather than plain slices.
func (m ChannelMapping) LumaChroma() bool {
	return m.Red == "Y" &&
		(m.Green == "RY" || m.Green == "Y") &&
		(m.Blue == "BY" || m.Blue == "Y")
}

// roles lists the mapping in the interleaved order of the host buffer.
func (m ChannelMapping) roles() [4]string {
	return [4]string{m.Blue, m.Green, m.Red, m.Alpha}
}

// DupPair copies one decoded channel to a second role.
type DupPair struct {
	Src, Dst exr.Slice
}

// DupSet holds the copies to make after decoding, in binding order.
type DupSet []DupPair

// Bind inserts into fb a float slice per role that writes into target,
// a 4 channel float BGRA buffer whose top-left pixel is dataWindow.Min.
//
// Channels subsampled in cl are bound with Compact views, to be expanded
// by ExpandSubsampled after decoding. A channel named by a second role
// cannot be inserted twice, so the second role is returned in the DupSet
// instead. Roles mapped to ChannelNone are filled in target immediately,
// 0 for colour and 1 for alpha.
func (m ChannelMapping) Bind(fb *exr.FrameBuffer, target *PixelBuffer, dataWindow exr.Box2i, cl *exr.ChannelList) (DupSet, error) {
	if target.Type != exr.PixelTypeFloat || target.Channels != 4 {
		return nil, fmt.Errorf("%w: binding needs a 4 channel float buffer, have %d channel %s",
			ErrInvalidBuffer, target.Channels, target.Type)
	}
	var dups DupSet
	bound := make(map[string]int, 4)
	for c, name := range m.roles() {
		fill := 0.0
		if c == 3 {
			fill = 1
		}
		if name == ChannelNone {
			target.fillChannel(c, float32(fill))
			continue
		}
		full := target.ChannelSlice(c, dataWindow, fill)
		if first, ok := bound[name]; ok {
			dups = append(dups, DupPair{
				Src: target.ChannelSlice(first, dataWindow, fill),
				Dst: full,
			})
			continue
		}
		s := full
		if ch := cl.Get(name); ch != nil && (ch.XSampling > 1 || ch.YSampling > 1) {
			s = full.Compact(dataWindow, int(ch.XSampling), int(ch.YSampling))
		}
		if err := fb.Insert(name, s); err != nil {
			return nil, err
		}
		bound[name] = c
	}
	return dups, nil
}
