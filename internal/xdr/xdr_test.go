package xdr

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReaderIntegers(t *testing.T) {
	data := []byte{
		0x78, 0x56, 0x34, 0x12,
		0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01,
		0x00, 0x00, 0x80, 0x3F,
	}
	r := NewReader(data)

	u32, err := r.ReadUint32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("ReadUint32() = %#x, %v", u32, err)
	}
	u64, err := r.ReadUint64()
	if err != nil || u64 != 0x0123456789ABCDEF {
		t.Fatalf("ReadUint64() = %#x, %v", u64, err)
	}
	f, err := r.ReadFloat32()
	if err != nil || f != 1 {
		t.Fatalf("ReadFloat32() = %v, %v", f, err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, err := r.ReadByte(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadByte past end: err = %v, want ErrShortBuffer", err)
	}
}

func TestReaderString(t *testing.T) {
	r := NewReader([]byte("channels\x00chlist\x00rest"))
	for _, want := range []string{"channels", "chlist"} {
		got, err := r.ReadString()
		if err != nil || got != want {
			t.Fatalf("ReadString() = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := r.ReadString(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("unterminated string: err = %v", err)
	}
}

func TestBufferWriterRoundTrip(t *testing.T) {
	w := NewBufferWriter(16)
	w.WriteString("name")
	w.WriteInt32(-7)
	w.WriteFloat64(2.5)
	w.WriteByte(9)
	w.WriteBytes([]byte{1, 2})

	r := NewReader(w.Bytes())
	s, _ := r.ReadString()
	i, _ := r.ReadInt32()
	d, _ := r.ReadFloat64()
	b, _ := r.ReadByte()
	rest, _ := r.ReadBytes(2)
	if s != "name" || i != -7 || d != 2.5 || b != 9 || !bytes.Equal(rest, []byte{1, 2}) {
		t.Errorf("round trip got %q %d %v %d %v", s, i, d, b, rest)
	}
}

func TestStreamReader(t *testing.T) {
	w := NewBufferWriter(0)
	w.WriteUint32(20000630)
	w.WriteString("dataWindow")
	w.WriteUint64(42)

	r := NewStreamReader(bytes.NewReader(w.Bytes()))
	magic, err := r.ReadUint32()
	if err != nil || magic != 20000630 {
		t.Fatalf("ReadUint32() = %d, %v", magic, err)
	}
	name, err := r.ReadString()
	if err != nil || name != "dataWindow" {
		t.Fatalf("ReadString() = %q, %v", name, err)
	}
	v, err := r.ReadUint64()
	if err != nil || v != 42 {
		t.Fatalf("ReadUint64() = %d, %v", v, err)
	}
	if r.Count() != int64(w.Len()) {
		t.Errorf("Count() = %d, want %d", r.Count(), w.Len())
	}
	if _, err := r.ReadByte(); err != io.EOF {
		t.Errorf("ReadByte at EOF: err = %v", err)
	}
}

func TestStreamReaderStringLimit(t *testing.T) {
	r := NewStreamReader(bytes.NewReader(append(bytes.Repeat([]byte("a"), 40), 0)))
	r.MaxString = 31
	if _, err := r.ReadString(); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("err = %v, want ErrStringTooLong", err)
	}
}
