package interleave

import (
	"bytes"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in, want []byte
	}{
		{[]byte{}, []byte{}},
		{[]byte{1}, []byte{1}},
		{[]byte{1, 2, 3, 4}, []byte{1, 3, 2, 4}},
		{[]byte{1, 2, 3, 4, 5}, []byte{1, 3, 5, 2, 4}},
	}
	for _, tt := range tests {
		got := make([]byte, len(tt.in))
		Split(got, tt.in)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Split(%v) = %v, want %v", tt.in, got, tt.want)
		}
		back := make([]byte, len(got))
		Merge(back, got)
		if !bytes.Equal(back, tt.in) {
			t.Errorf("Merge(Split(%v)) = %v", tt.in, back)
		}
	}
}

func BenchmarkSplit(b *testing.B) {
	src := make([]byte, 64*1024)
	dst := make([]byte, len(src))
	b.SetBytes(int64(len(src)))
	for i := 0; i < b.N; i++ {
		Split(dst, src)
	}
}
