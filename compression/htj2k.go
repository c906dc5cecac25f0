package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"github.com/mrjoshuak/go-jpeg2000"

	"github.com/mrjoshuak/exrpremiere/internal/interleave"
)

// HTJ2K compression errors
var (
	ErrHTJ2KCorrupted    = errors.New("compression: corrupted HTJ2K data")
	ErrHTJ2KInvalidMagic = errors.New("compression: invalid HTJ2K magic number")
)

const (
	htj2kMagic      uint16 = 0x4854 // "HT"
	htj2kHeaderSize        = 6      // magic + payload length
)

// htj2kPlane reshapes a raw chunk into an 8-bit plane. The chunk bytes are
// split into even and odd halves first, so low and high bytes of each
// sample land in separate regions, and coded losslessly as one grey
// component whose rows follow the chunk's scanlines when they are all the
// same length.
func htj2kPlane(layout Layout, n int) (width, height int) {
	if layout.Lines > 0 && n%layout.Lines == 0 {
		return n / layout.Lines, layout.Lines
	}
	return n, 1
}

func htj2kResolutions(w, h int) int {
	res := 1
	for res < 6 && w>>res > 0 && h>>res > 0 {
		res++
	}
	return res
}

// HTJ2KCompress encodes a raw chunk as a High-Throughput JPEG 2000
// codestream prefixed by the OpenEXR HTJ2K chunk header. blockSize is the
// code block edge, 32 or 128.
func HTJ2KCompress(raw []byte, layout Layout, blockSize int) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrHTJ2KCorrupted
	}
	w, h := htj2kPlane(layout, len(raw))
	img := image.NewGray(image.Rect(0, 0, w, h))
	interleave.Split(img.Pix, raw)

	var out bytes.Buffer
	writeHTJ2KHeader(&out, len(layout.Channels))
	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       true,
		HighThroughput: true,
		HTBlockWidth:   blockSize,
		HTBlockHeight:  blockSize,
		NumResolutions: htj2kResolutions(w, h),
	}
	if err := jpeg2000.Encode(&out, img, opts); err != nil {
		return nil, fmt.Errorf("htj2k: jpeg2000 encode failed: %w", err)
	}
	return out.Bytes(), nil
}

// writeHTJ2KHeader writes the chunk header: magic, payload length and an
// identity channel map.
func writeHTJ2KHeader(w *bytes.Buffer, channels int) {
	var b [4]byte
	binary.BigEndian.PutUint16(b[:2], htj2kMagic)
	w.Write(b[:2])
	binary.BigEndian.PutUint32(b[:], uint32(2+2*channels))
	w.Write(b[:])
	binary.BigEndian.PutUint16(b[:2], uint16(channels))
	w.Write(b[:2])
	for i := 0; i < channels; i++ {
		binary.BigEndian.PutUint16(b[:2], uint16(i))
		w.Write(b[:2])
	}
}

// HTJ2KDecompress decodes src into dst, which must be layout.RawSize() bytes.
func HTJ2KDecompress(dst, src []byte, layout Layout) error {
	if len(src) < htj2kHeaderSize {
		return ErrHTJ2KCorrupted
	}
	if binary.BigEndian.Uint16(src) != htj2kMagic {
		return ErrHTJ2KInvalidMagic
	}
	payload := int(binary.BigEndian.Uint32(src[2:]))
	if payload < 2 || htj2kHeaderSize+payload > len(src) {
		return ErrHTJ2KCorrupted
	}

	img, err := jpeg2000.Decode(bytes.NewReader(src[htj2kHeaderSize+payload:]))
	if err != nil {
		return fmt.Errorf("htj2k: jpeg2000 decode failed: %w", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return ErrHTJ2KCorrupted
	}
	w, h := htj2kPlane(layout, len(dst))
	if b := gray.Bounds(); b.Dx() != w || b.Dy() != h {
		return ErrHTJ2KCorrupted
	}
	plane := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(plane[y*w:(y+1)*w], gray.Pix[y*gray.Stride:])
	}
	interleave.Merge(dst, plane)
	return nil
}
