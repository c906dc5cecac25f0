package exr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/exrpremiere/internal/xdr"
)

// MagicNumber starts every OpenEXR file.
const MagicNumber uint32 = 20000630

// Version field layout
const (
	versionNumber    = 2
	versionMask      = 0xff
	flagTiled        = 0x200
	flagLongNames    = 0x400
	flagNonImage     = 0x800
	flagMultiPart    = 0x1000
	knownFlags       = flagTiled | flagLongNames | flagNonImage | flagMultiPart
	maxLongNameBytes = 255
)

// File errors
var (
	ErrIO                     = errors.New("exr: I/O error")
	ErrInvalidMagic           = errors.New("exr: not an OpenEXR file")
	ErrInvalidVersion         = errors.New("exr: unsupported file version")
	ErrUnsupported            = errors.New("exr: unsupported image type")
	ErrUnsupportedCompression = errors.New("exr: unsupported compression")
	ErrCorruptChunk           = errors.New("exr: corrupt chunk")
	ErrNoFrameBuffer          = errors.New("exr: no frame buffer set")
)

func ioErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

// headerErr classifies an error from ReadHeader: malformed values are
// header errors, everything else came from the stream.
func headerErr(err error) error {
	switch {
	case errors.Is(err, ErrInvalidHeader):
		return err
	case errors.Is(err, xdr.ErrStringTooLong), errors.Is(err, xdr.ErrNegativeSize):
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	return ioErr("reading header", err)
}

type part struct {
	header   *Header
	channels []Channel
	offsets  []uint64
}

// InputFile reads the pixels of a scanline OpenEXR file. A multi-part file
// is presented as one image: its channel list is the union of the parts'
// channels (the first part carrying a name wins) and its data window is
// the union of their data windows.
type InputFile struct {
	r         io.ReadSeeker
	multiPart bool
	parts     []part
	owner     map[string]int
	fb        *FrameBuffer
}

// OpenInput reads the headers and offset tables of r.
func OpenInput(r io.ReadSeeker) (*InputFile, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, ioErr("seek", err)
	}
	sr := xdr.NewStreamReader(r)
	magic, err := sr.ReadUint32()
	if err != nil {
		return nil, ioErr("reading magic number", err)
	}
	if magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	version, err := sr.ReadUint32()
	if err != nil {
		return nil, ioErr("reading version", err)
	}
	if version&versionMask != versionNumber || version&^(versionMask|knownFlags) != 0 {
		return nil, fmt.Errorf("%w: 0x%x", ErrInvalidVersion, version)
	}
	if version&(flagTiled|flagNonImage) != 0 {
		return nil, fmt.Errorf("%w: tiled or deep file", ErrUnsupported)
	}
	sr.MaxString = maxLongNameBytes

	f := &InputFile{r: r, multiPart: version&flagMultiPart != 0, owner: make(map[string]int)}

	for {
		h, err := ReadHeader(sr)
		if err != nil {
			return nil, headerErr(err)
		}
		if f.multiPart && len(h.attrs) == 0 {
			break
		}
		if err := checkReadable(h); err != nil {
			return nil, err
		}
		f.parts = append(f.parts, part{header: h, channels: h.Channels().Channels()})
		if !f.multiPart {
			break
		}
	}
	if len(f.parts) == 0 {
		return nil, fmt.Errorf("%w: no parts", ErrInvalidHeader)
	}

	for i := range f.parts {
		p := &f.parts[i]
		n := p.header.ChunkCount()
		if a := p.header.Get(AttrNameChunkCount); a != nil {
			if c, ok := a.Value.(int32); ok && c >= 0 {
				n = int(c)
			}
		}
		p.offsets = make([]uint64, n)
		for j := range p.offsets {
			if p.offsets[j], err = sr.ReadUint64(); err != nil {
				return nil, ioErr("reading offset table", err)
			}
		}
		for _, c := range p.channels {
			if _, ok := f.owner[c.Name]; !ok {
				f.owner[c.Name] = i
			}
		}
	}
	return f, nil
}

func checkReadable(h *Header) error {
	switch t := h.PartType(); {
	case h.IsTiled(), t == PartTypeDeep:
		return fmt.Errorf("%w: %s part", ErrUnsupported, t)
	}
	cl := h.Channels()
	if cl == nil || cl.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrMissingAttribute, AttrNameChannels)
	}
	for _, name := range []string{AttrNameDataWindow, AttrNameDisplayWindow} {
		if !h.Has(name) {
			return fmt.Errorf("%w: %s", ErrMissingAttribute, name)
		}
	}
	dw := h.DataWindow()
	if dw.IsEmpty() {
		return fmt.Errorf("%w: empty data window", ErrInvalidHeader)
	}
	for _, c := range cl.channels {
		if c.Type.Size() == 0 {
			return fmt.Errorf("%w: channel %q has unknown pixel type", ErrInvalidHeader, c.Name)
		}
		xs, ys := int(c.XSampling), int(c.YSampling)
		if !sampledAt(int(dw.Min.X), xs) || !sampledAt(int(dw.Min.Y), ys) ||
			dw.Width()%xs != 0 || dw.Height()%ys != 0 {
			return fmt.Errorf("%w: channel %q sampling %dx%d does not fit the data window",
				ErrInvalidHeader, c.Name, xs, ys)
		}
	}
	return nil
}

// Parts returns the number of parts.
func (f *InputFile) Parts() int { return len(f.parts) }

// IsMultiPart reports whether the file uses the multi-part layout.
func (f *InputFile) IsMultiPart() bool { return f.multiPart }

// Header returns the header of part i.
func (f *InputFile) Header(i int) *Header { return f.parts[i].header }

// Channels returns the union of the parts' channels.
func (f *InputFile) Channels() *ChannelList {
	cl := NewChannelList()
	for _, p := range f.parts {
		for _, c := range p.channels {
			cl.Add(c)
		}
	}
	return cl
}

// DataWindow returns the union of the parts' data windows.
func (f *InputFile) DataWindow() Box2i {
	dw := f.parts[0].header.DataWindow()
	for _, p := range f.parts[1:] {
		o := p.header.DataWindow()
		dw.Min.X = min(dw.Min.X, o.Min.X)
		dw.Min.Y = min(dw.Min.Y, o.Min.Y)
		dw.Max.X = max(dw.Max.X, o.Max.X)
		dw.Max.Y = max(dw.Max.Y, o.Max.Y)
	}
	return dw
}

// DisplayWindow returns the display window of the first part.
func (f *InputFile) DisplayWindow() Box2i {
	return f.parts[0].header.DisplayWindow()
}

// SetFrameBuffer sets the destination of ReadPixels.
func (f *InputFile) SetFrameBuffer(fb *FrameBuffer) {
	f.fb = fb
}

type rawChunk struct {
	part  int
	y     int
	lines int
	data  []byte
}

// ReadPixels decodes every line of every part into the frame buffer.
// Slices whose channel is absent, or whose part covers less than the
// file's data window, are first filled with their FillValue. Chunk data is
// read sequentially and decoded in parallel according to par.
func (f *InputFile) ReadPixels(par ParallelConfig) error {
	if f.fb == nil {
		return ErrNoFrameBuffer
	}
	dw := f.DataWindow()
	for _, name := range f.fb.names {
		s := f.fb.slices[name]
		pi, ok := f.owner[name]
		if !ok || f.parts[pi].header.DataWindow() != dw {
			s.fill(dw)
		}
	}

	var chunks []rawChunk
	for pi := range f.parts {
		if !f.partWanted(pi) {
			continue
		}
		cs, err := f.readChunks(pi)
		if err != nil {
			return err
		}
		chunks = append(chunks, cs...)
	}

	return par.ForWithError(len(chunks), func(i int) error {
		return f.decodeChunk(chunks[i])
	})
}

func (f *InputFile) partWanted(pi int) bool {
	for _, c := range f.parts[pi].channels {
		if f.owner[c.Name] == pi && f.fb.Has(c.Name) {
			return true
		}
	}
	return false
}

func (f *InputFile) readChunks(pi int) ([]rawChunk, error) {
	p := &f.parts[pi]
	h := p.header
	dw := h.DataWindow()
	comp := h.Compression()
	if !comp.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, comp)
	}
	linesPerChunk := comp.ScanlinesPerChunk()
	hdrSize := 8
	if f.multiPart {
		hdrSize = 12
	}
	var hdr [12]byte

	chunks := make([]rawChunk, 0, len(p.offsets))
	for i, off := range p.offsets {
		if _, err := f.r.Seek(int64(off), io.SeekStart); err != nil {
			return nil, ioErr("seek to chunk", err)
		}
		if _, err := io.ReadFull(f.r, hdr[:hdrSize]); err != nil {
			return nil, ioErr("reading chunk header", err)
		}
		b := hdr[:hdrSize]
		if f.multiPart {
			if n := int32(binary.LittleEndian.Uint32(b)); int(n) != pi {
				return nil, fmt.Errorf("%w: chunk %d belongs to part %d", ErrCorruptChunk, i, n)
			}
			b = b[4:]
		}
		y := int(int32(binary.LittleEndian.Uint32(b)))
		size := int(int32(binary.LittleEndian.Uint32(b[4:])))

		if y < int(dw.Min.Y) || y > int(dw.Max.Y) || (y-int(dw.Min.Y))%linesPerChunk != 0 {
			return nil, fmt.Errorf("%w: chunk %d starts at line %d", ErrCorruptChunk, i, y)
		}
		lines := min(linesPerChunk, int(dw.Max.Y)-y+1)
		rawSize := chunkLayout(p.channels, dw, y, lines).RawSize()
		if size < 0 || size > rawSize {
			return nil, fmt.Errorf("%w: chunk %d has size %d", ErrCorruptChunk, i, size)
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(f.r, data); err != nil {
			return nil, ioErr("reading chunk data", err)
		}
		chunks = append(chunks, rawChunk{part: pi, y: y, lines: lines, data: data})
	}
	return chunks, nil
}

func (f *InputFile) decodeChunk(c rawChunk) error {
	p := &f.parts[c.part]
	dw := p.header.DataWindow()
	layout := chunkLayout(p.channels, dw, c.y, c.lines)
	raw, err := decompressChunk(p.header.Compression(), c.data, layout)
	if err != nil {
		return fmt.Errorf("%w (part %d, line %d)", err, c.part, c.y)
	}

	minX := int(dw.Min.X)
	pos := 0
	for y := c.y; y < c.y+c.lines; y++ {
		for i, ch := range p.channels {
			if !layout.Sampled(i, y) {
				continue
			}
			n := layout.Channels[i].Width
			size := n * ch.Type.Size()
			if s := f.fb.Get(ch.Name); s != nil && f.owner[ch.Name] == c.part {
				s.decodeRow(raw[pos:pos+size], ch.Type, minX, y, int(ch.XSampling), n)
			}
			pos += size
		}
	}
	return nil
}
