package exr

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/mrjoshuak/exrpremiere/internal/xdr"
)

// Standard attribute names
const (
	AttrNameChannels            = "channels"
	AttrNameCompression         = "compression"
	AttrNameDataWindow          = "dataWindow"
	AttrNameDisplayWindow       = "displayWindow"
	AttrNameLineOrder           = "lineOrder"
	AttrNamePixelAspectRatio    = "pixelAspectRatio"
	AttrNameScreenWindowCenter  = "screenWindowCenter"
	AttrNameScreenWindowWidth   = "screenWindowWidth"
	AttrNameTiles               = "tiles"
	AttrNameName                = "name"
	AttrNameType                = "type"
	AttrNameChunkCount          = "chunkCount"
	AttrNameDWACompressionLevel = "dwaCompressionLevel"
)

// Part types stored in the "type" attribute of multi-part files.
const (
	PartTypeScanline = "scanlineimage"
	PartTypeTiled    = "tiledimage"
	PartTypeDeep     = "deepscanline"
	PartTypeDeepTile = "deeptile"
)

// DefaultDWACompressionLevel is the DWA quantization level used when a
// header does not carry dwaCompressionLevel.
const DefaultDWACompressionLevel float32 = 45.0

// Header errors
var (
	ErrMissingAttribute = errors.New("exr: missing required attribute")
	ErrInvalidHeader    = errors.New("exr: invalid header")
)

// Header holds the attributes of one image part.
type Header struct {
	attrs map[string]*Attribute
}

// NewHeader creates an empty header.
func NewHeader() *Header {
	return &Header{attrs: make(map[string]*Attribute)}
}

// NewScanlineHeader creates a header for a width x height RGB half image
// with ZIP compression and every required attribute set.
func NewScanlineHeader(width, height int) *Header {
	h := NewHeader()
	win := NewBox2i(0, 0, width-1, height-1)
	h.SetDataWindow(win)
	h.SetDisplayWindow(win)
	h.SetCompression(CompressionZIP)
	h.SetLineOrder(LineOrderIncreasing)
	h.SetPixelAspectRatio(1)
	h.SetScreenWindowCenter(V2f{})
	h.SetScreenWindowWidth(1)

	cl := NewChannelList()
	cl.Add(NewChannel("R", PixelTypeHalf))
	cl.Add(NewChannel("G", PixelTypeHalf))
	cl.Add(NewChannel("B", PixelTypeHalf))
	h.SetChannels(cl)
	return h
}

// Get returns the named attribute or nil.
func (h *Header) Get(name string) *Attribute {
	return h.attrs[name]
}

// Set adds or replaces an attribute.
func (h *Header) Set(attr *Attribute) {
	h.attrs[attr.Name] = attr
}

// Has reports whether the named attribute exists.
func (h *Header) Has(name string) bool {
	_, ok := h.attrs[name]
	return ok
}

// Remove deletes the named attribute.
func (h *Header) Remove(name string) {
	delete(h.attrs, name)
}

// Names returns the attribute names in sorted order.
func (h *Header) Names() []string {
	names := maps.Keys(h.attrs)
	slices.Sort(names)
	return names
}

// Channels returns the channel list, or nil if absent.
func (h *Header) Channels() *ChannelList {
	if a := h.Get(AttrNameChannels); a != nil {
		if cl, ok := a.Value.(*ChannelList); ok {
			return cl
		}
	}
	return nil
}

// SetChannels sets the channel list.
func (h *Header) SetChannels(cl *ChannelList) {
	h.Set(&Attribute{Name: AttrNameChannels, Type: AttrTypeChlist, Value: cl})
}

// Compression returns the compression, CompressionNone if absent.
func (h *Header) Compression() Compression {
	if a := h.Get(AttrNameCompression); a != nil {
		if c, ok := a.Value.(Compression); ok {
			return c
		}
	}
	return CompressionNone
}

// SetCompression sets the compression.
func (h *Header) SetCompression(c Compression) {
	h.Set(&Attribute{Name: AttrNameCompression, Type: AttrTypeCompression, Value: c})
}

func (h *Header) box(name string) Box2i {
	if a := h.Get(name); a != nil {
		if b, ok := a.Value.(Box2i); ok {
			return b
		}
	}
	return Box2i{}
}

// DataWindow returns the rectangle of stored pixels.
func (h *Header) DataWindow() Box2i { return h.box(AttrNameDataWindow) }

// SetDataWindow sets the data window.
func (h *Header) SetDataWindow(b Box2i) {
	h.Set(&Attribute{Name: AttrNameDataWindow, Type: AttrTypeBox2i, Value: b})
}

// DisplayWindow returns the rectangle the image is meant to be viewed in.
func (h *Header) DisplayWindow() Box2i { return h.box(AttrNameDisplayWindow) }

// SetDisplayWindow sets the display window.
func (h *Header) SetDisplayWindow(b Box2i) {
	h.Set(&Attribute{Name: AttrNameDisplayWindow, Type: AttrTypeBox2i, Value: b})
}

// LineOrder returns the line order, LineOrderIncreasing if absent.
func (h *Header) LineOrder() LineOrder {
	if a := h.Get(AttrNameLineOrder); a != nil {
		if lo, ok := a.Value.(LineOrder); ok {
			return lo
		}
	}
	return LineOrderIncreasing
}

// SetLineOrder sets the line order.
func (h *Header) SetLineOrder(lo LineOrder) {
	h.Set(&Attribute{Name: AttrNameLineOrder, Type: AttrTypeLineOrder, Value: lo})
}

func (h *Header) float(name string, def float32) float32 {
	if a := h.Get(name); a != nil {
		if f, ok := a.Value.(float32); ok {
			return f
		}
	}
	return def
}

// PixelAspectRatio returns the pixel aspect ratio, 1 if absent.
func (h *Header) PixelAspectRatio() float32 { return h.float(AttrNamePixelAspectRatio, 1) }

// SetPixelAspectRatio sets the pixel aspect ratio.
func (h *Header) SetPixelAspectRatio(r float32) {
	h.Set(&Attribute{Name: AttrNamePixelAspectRatio, Type: AttrTypeFloat, Value: r})
}

// ScreenWindowWidth returns the screen window width, 1 if absent.
func (h *Header) ScreenWindowWidth() float32 { return h.float(AttrNameScreenWindowWidth, 1) }

// SetScreenWindowWidth sets the screen window width.
func (h *Header) SetScreenWindowWidth(w float32) {
	h.Set(&Attribute{Name: AttrNameScreenWindowWidth, Type: AttrTypeFloat, Value: w})
}

// SetScreenWindowCenter sets the screen window center.
func (h *Header) SetScreenWindowCenter(c V2f) {
	h.Set(&Attribute{Name: AttrNameScreenWindowCenter, Type: AttrTypeV2f, Value: c})
}

// DWACompressionLevel returns the DWA quantization level.
func (h *Header) DWACompressionLevel() float32 {
	return h.float(AttrNameDWACompressionLevel, DefaultDWACompressionLevel)
}

// SetDWACompressionLevel sets the DWA quantization level.
func (h *Header) SetDWACompressionLevel(level float32) {
	h.Set(&Attribute{Name: AttrNameDWACompressionLevel, Type: AttrTypeFloat, Value: level})
}

// PartName returns the "name" attribute of a multi-part file's part.
func (h *Header) PartName() string {
	if a := h.Get(AttrNameName); a != nil {
		if s, ok := a.Value.(string); ok {
			return s
		}
	}
	return ""
}

// PartType returns the "type" attribute, or "" for single-part files.
func (h *Header) PartType() string {
	if a := h.Get(AttrNameType); a != nil {
		if s, ok := a.Value.(string); ok {
			return s
		}
	}
	return ""
}

// IsTiled reports whether the header describes a tiled or deep image.
func (h *Header) IsTiled() bool {
	switch h.PartType() {
	case PartTypeTiled, PartTypeDeepTile:
		return true
	}
	return h.Has(AttrNameTiles)
}

// Width returns the data window width.
func (h *Header) Width() int { return h.DataWindow().Width() }

// Height returns the data window height.
func (h *Header) Height() int { return h.DataWindow().Height() }

// ChunkCount returns the number of scanline chunks in the part.
func (h *Header) ChunkCount() int {
	lines := h.Compression().ScanlinesPerChunk()
	return (h.Height() + lines - 1) / lines
}

// Validate checks that the header can describe a scanline image.
func (h *Header) Validate() error {
	for _, name := range []string{
		AttrNameChannels, AttrNameCompression, AttrNameDataWindow,
		AttrNameDisplayWindow, AttrNameLineOrder, AttrNamePixelAspectRatio,
		AttrNameScreenWindowCenter, AttrNameScreenWindowWidth,
	} {
		if !h.Has(name) {
			return fmt.Errorf("%w: %s", ErrMissingAttribute, name)
		}
	}
	cl := h.Channels()
	if cl == nil || cl.Len() == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidHeader)
	}
	for _, c := range cl.channels {
		if c.Type.Size() == 0 {
			return fmt.Errorf("%w: channel %q has unknown pixel type", ErrInvalidHeader, c.Name)
		}
	}
	if h.DataWindow().IsEmpty() {
		return fmt.Errorf("%w: empty data window", ErrInvalidHeader)
	}
	if h.DisplayWindow().IsEmpty() {
		return fmt.Errorf("%w: empty display window", ErrInvalidHeader)
	}
	return nil
}

// attributeSource is satisfied by both the in-memory and the stream XDR
// readers.
type attributeSource interface {
	ReadString() (string, error)
	ReadInt32() (int32, error)
	ReadBytes(n int) ([]byte, error)
}

// ReadHeader reads attributes up to the terminating empty name.
// Errors from r are returned unwrapped.
func ReadHeader(r attributeSource) (*Header, error) {
	h := NewHeader()
	for {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if name == "" {
			return h, nil
		}
		typ, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, fmt.Errorf("%w: attribute %q has negative size", ErrInvalidHeader, name)
		}
		data, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, err
		}
		value, err := decodeAttributeValue(AttributeType(typ), data)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", ErrInvalidHeader, name, err)
		}
		h.Set(&Attribute{Name: name, Type: AttributeType(typ), Value: value})
	}
}

// WriteHeader writes every attribute in name order followed by the
// terminating null byte.
func WriteHeader(w *xdr.BufferWriter, h *Header) error {
	for _, name := range h.Names() {
		if err := WriteAttribute(w, h.attrs[name]); err != nil {
			return err
		}
	}
	w.WriteByte(0)
	return nil
}
