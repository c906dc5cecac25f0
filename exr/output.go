package exr

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mrjoshuak/exrpremiere/compression"
	"github.com/mrjoshuak/exrpremiere/internal/xdr"
)

// OutputFile writes a single-part scanline OpenEXR file.
//
// The header and a placeholder offset table are written by NewOutputFile;
// WritePixels encodes the whole data window; Close patches the offset
// table. Channels of the header without a slice in the frame buffer are
// written as zeros.
type OutputFile struct {
	w        io.WriteSeeker
	h        *Header
	channels []Channel
	fb       *FrameBuffer
	tablePos int64
	offsets  []uint64
	written  bool
	closed   bool
}

// NewOutputFile validates h and writes the file preamble to w.
func NewOutputFile(w io.WriteSeeker, h *Header) (*OutputFile, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if h.IsTiled() {
		return nil, fmt.Errorf("%w: tiled output", ErrUnsupported)
	}
	if c := h.Compression(); !c.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
	dw := h.DataWindow()
	for _, c := range h.Channels().channels {
		xs, ys := int(c.XSampling), int(c.YSampling)
		if xs < 1 || ys < 1 || !sampledAt(int(dw.Min.X), xs) || !sampledAt(int(dw.Min.Y), ys) ||
			dw.Width()%xs != 0 || dw.Height()%ys != 0 {
			return nil, fmt.Errorf("%w: channel %q sampling %dx%d does not fit the data window",
				ErrInvalidHeader, c.Name, xs, ys)
		}
	}

	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, ioErr("seek", err)
	}

	version := uint32(versionNumber)
	for _, name := range h.Names() {
		if len(name) > 31 || len(h.attrs[name].Type) > 31 {
			version |= flagLongNames
		}
	}
	for _, c := range h.Channels().channels {
		if len(c.Name) > 31 {
			version |= flagLongNames
		}
	}

	bw := xdr.NewBufferWriter(1024)
	bw.WriteUint32(MagicNumber)
	bw.WriteUint32(version)
	if err := WriteHeader(bw, h); err != nil {
		return nil, err
	}
	n := h.ChunkCount()
	tablePos := start + int64(bw.Len())
	bw.WriteBytes(make([]byte, 8*n))
	if _, err := w.Write(bw.Bytes()); err != nil {
		return nil, ioErr("writing header", err)
	}

	return &OutputFile{
		w:        w,
		h:        h,
		channels: h.Channels().Channels(),
		tablePos: tablePos,
		offsets:  make([]uint64, n),
	}, nil
}

// Header returns the header being written.
func (o *OutputFile) Header() *Header { return o.h }

// SetFrameBuffer sets the source of WritePixels.
func (o *OutputFile) SetFrameBuffer(fb *FrameBuffer) {
	o.fb = fb
}

// WritePixels encodes and writes every line of the data window. Chunks are
// compressed in parallel and written in file line order.
func (o *OutputFile) WritePixels(par ParallelConfig) error {
	if o.fb == nil {
		return ErrNoFrameBuffer
	}
	dw := o.h.DataWindow()
	comp := o.h.Compression()
	linesPerChunk := comp.ScanlinesPerChunk()

	chunks, err := par.ChunkProcess(len(o.offsets), func(i int) ([]byte, error) {
		y := int(dw.Min.Y) + i*linesPerChunk
		lines := min(linesPerChunk, int(dw.Max.Y)-y+1)
		layout := chunkLayout(o.channels, dw, y, lines)
		raw := o.encodeLines(layout)
		return compressChunk(comp, raw, layout)
	})
	if err != nil {
		return err
	}

	pos, err := o.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return ioErr("seek", err)
	}
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
		if o.h.LineOrder() == LineOrderDecreasing {
			order[i] = len(chunks) - 1 - i
		}
	}
	var hdr [8]byte
	for _, i := range order {
		y := int(dw.Min.Y) + i*linesPerChunk
		binary.LittleEndian.PutUint32(hdr[:4], uint32(int32(y)))
		binary.LittleEndian.PutUint32(hdr[4:], uint32(len(chunks[i])))
		if _, err := o.w.Write(hdr[:]); err != nil {
			return ioErr("writing chunk", err)
		}
		if _, err := o.w.Write(chunks[i]); err != nil {
			return ioErr("writing chunk", err)
		}
		o.offsets[i] = uint64(pos)
		pos += int64(len(hdr) + len(chunks[i]))
	}
	o.written = true
	return nil
}

func (o *OutputFile) encodeLines(layout compression.Layout) []byte {
	raw := make([]byte, layout.RawSize())
	minX := int(o.h.DataWindow().Min.X)
	pos := 0
	for y := layout.MinY; y < layout.MinY+layout.Lines; y++ {
		for i, ch := range o.channels {
			if !layout.Sampled(i, y) {
				continue
			}
			n := layout.Channels[i].Width
			size := n * ch.Type.Size()
			if s := o.fb.Get(ch.Name); s != nil {
				s.encodeRow(raw[pos:pos+size], ch.Type, minX, y, int(ch.XSampling), n)
			}
			pos += size
		}
	}
	return raw
}

// Close writes the offset table. It fails if WritePixels has not
// succeeded, leaving an incomplete file.
func (o *OutputFile) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if !o.written {
		return fmt.Errorf("%w: pixels not written", ErrNoFrameBuffer)
	}
	end, err := o.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return ioErr("seek", err)
	}
	table := make([]byte, 8*len(o.offsets))
	for i, off := range o.offsets {
		binary.LittleEndian.PutUint64(table[8*i:], off)
	}
	if _, err := o.w.Seek(o.tablePos, io.SeekStart); err != nil {
		return ioErr("seek to offset table", err)
	}
	if _, err := o.w.Write(table); err != nil {
		return ioErr("writing offset table", err)
	}
	if _, err := o.w.Seek(end, io.SeekStart); err != nil {
		return ioErr("seek", err)
	}
	return nil
}
