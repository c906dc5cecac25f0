package compression

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestHTJ2KHeader(t *testing.T) {
	layout := Layout{Lines: 4, Channels: []ChannelInfo{
		{Type: PixelTypeHalf, Width: 16, YSampling: 1},
		{Type: PixelTypeHalf, Width: 16, YSampling: 1},
	}}
	raw := make([]byte, layout.RawSize())
	for i := 0; i < len(raw)/2; i++ {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(0x3c00+i%7))
	}

	enc, err := HTJ2KCompress(raw, layout, 32)
	if err != nil {
		t.Fatalf("HTJ2KCompress: %v", err)
	}
	if binary.BigEndian.Uint16(enc) != htj2kMagic {
		t.Errorf("magic = %#x", binary.BigEndian.Uint16(enc))
	}
	if got := binary.BigEndian.Uint32(enc[2:]); got != 2+2*2 {
		t.Errorf("payload length = %d, want 6", got)
	}

	dec := make([]byte, len(raw))
	if err := HTJ2KDecompress(dec, enc, layout); err != nil {
		t.Fatalf("HTJ2KDecompress: %v", err)
	}
}

func TestHTJ2KDecompressRejectsBadHeader(t *testing.T) {
	layout := Layout{Lines: 1, Channels: []ChannelInfo{{Type: PixelTypeHalf, Width: 2, YSampling: 1}}}
	if err := HTJ2KDecompress(make([]byte, 4), []byte{0, 1}, layout); !errors.Is(err, ErrHTJ2KCorrupted) {
		t.Errorf("short: %v", err)
	}
	if err := HTJ2KDecompress(make([]byte, 4), []byte{'X', 'X', 0, 0, 0, 2, 0, 0}, layout); !errors.Is(err, ErrHTJ2KInvalidMagic) {
		t.Errorf("magic: %v", err)
	}
	if err := HTJ2KDecompress(make([]byte, 4), []byte{'H', 'T', 0, 0, 1, 0}, layout); !errors.Is(err, ErrHTJ2KCorrupted) {
		t.Errorf("payload overrun: %v", err)
	}
}

func TestHTJ2KPlaneShape(t *testing.T) {
	w, h := htj2kPlane(Layout{Lines: 4}, 128)
	if w != 32 || h != 4 {
		t.Errorf("plane = %dx%d, want 32x4", w, h)
	}
	w, h = htj2kPlane(Layout{Lines: 3}, 10)
	if w != 10 || h != 1 {
		t.Errorf("ragged plane = %dx%d, want 10x1", w, h)
	}
}
