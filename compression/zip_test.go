package compression

import (
	"bytes"
	"errors"
	"testing"
)

func TestZIPRoundTrip(t *testing.T) {
	large := make([]byte, 100000)
	for i := range large {
		large[i] = byte(i / 100)
	}
	tests := [][]byte{
		{1},
		{1, 2, 3, 4, 5},
		bytes.Repeat([]byte{100}, 64),
		large,
	}
	for _, level := range []CompressionLevel{CompressionLevelDefault, CompressionLevelBestSpeed, CompressionLevelHuffmanOnly} {
		for i, original := range tests {
			compressed, err := ZIPCompressLevel(original, level)
			if err != nil {
				t.Fatalf("level %d test %d: compress: %v", level, i, err)
			}
			out := make([]byte, len(original))
			if err := ZIPDecompressTo(out, compressed); err != nil {
				t.Fatalf("level %d test %d: decompress: %v", level, i, err)
			}
			if !bytes.Equal(out, original) {
				t.Errorf("level %d test %d: round trip mismatch", level, i)
			}
		}
	}
}

func TestZIPEmpty(t *testing.T) {
	got, err := ZIPCompress(nil)
	if err != nil || got != nil {
		t.Errorf("ZIPCompress(nil) = %v, %v", got, err)
	}
	if err := ZIPDecompressTo(nil, nil); err != nil {
		t.Errorf("ZIPDecompressTo(nil, nil) = %v", err)
	}
	if err := ZIPDecompressTo(make([]byte, 1), nil); !errors.Is(err, ErrZIPCorrupted) {
		t.Errorf("empty source with output expected: %v", err)
	}
}

func TestZIPDecompressCorrupt(t *testing.T) {
	if err := ZIPDecompressTo(make([]byte, 8), []byte{1, 2, 3, 4}); !errors.Is(err, ErrZIPCorrupted) {
		t.Errorf("garbage: err = %v", err)
	}

	compressed, _ := ZIPCompress(bytes.Repeat([]byte{7}, 32))
	if err := ZIPDecompressTo(make([]byte, 64), compressed); !errors.Is(err, ErrZIPCorrupted) {
		t.Errorf("wrong size: err = %v", err)
	}
	// a pooled reader must still work after a failure
	out := make([]byte, 32)
	if err := ZIPDecompressTo(out, compressed); err != nil {
		t.Errorf("after failure: %v", err)
	}
}
