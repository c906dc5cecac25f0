package exr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mrjoshuak/exrpremiere/internal/xdr"
)

func TestBox2i(t *testing.T) {
	b := NewBox2i(0, 0, 9, 4)
	if b.Width() != 10 || b.Height() != 5 {
		t.Errorf("size = %dx%d, want 10x5", b.Width(), b.Height())
	}
	if b.IsEmpty() {
		t.Error("IsEmpty() = true")
	}
	if b.Area() != 50 {
		t.Errorf("Area() = %d, want 50", b.Area())
	}
	if !b.ContainsPoint(9, 4) || b.ContainsPoint(10, 4) || b.ContainsPoint(-1, 0) {
		t.Error("ContainsPoint wrong at the edges")
	}

	empty := NewBox2i(5, 5, 4, 4)
	if !empty.IsEmpty() || empty.Area() != 0 {
		t.Error("inverted box should be empty")
	}
}

func TestBox2iIntersect(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Box2i
		want       Box2i
		intersects bool
	}{
		{"same", NewBox2i(0, 0, 9, 9), NewBox2i(0, 0, 9, 9), NewBox2i(0, 0, 9, 9), true},
		{"inside", NewBox2i(0, 0, 9, 9), NewBox2i(2, 3, 4, 5), NewBox2i(2, 3, 4, 5), true},
		{"overlap", NewBox2i(0, 0, 9, 9), NewBox2i(-5, 5, 4, 20), NewBox2i(0, 5, 4, 9), true},
		{"corner", NewBox2i(0, 0, 9, 9), NewBox2i(9, 9, 12, 12), NewBox2i(9, 9, 9, 9), true},
		{"disjoint", NewBox2i(10, 10, 19, 19), NewBox2i(0, 0, 9, 9), NewBox2i(10, 10, 9, 9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Intersect(tt.b)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Intersect mismatch (-want +got):\n%s", diff)
			}
			if tt.a.Intersects(tt.b) != tt.intersects {
				t.Errorf("Intersects = %v, want %v", !tt.intersects, tt.intersects)
			}
		})
	}
}

func TestBox2iContains(t *testing.T) {
	v := NewBox2i(0, 0, 99, 99)
	if !v.Contains(NewBox2i(10, 10, 20, 20)) {
		t.Error("inner box not contained")
	}
	if !v.Contains(v) {
		t.Error("box does not contain itself")
	}
	if v.Contains(NewBox2i(-1, 0, 50, 50)) {
		t.Error("box crossing the left edge reported contained")
	}
}

func TestRational(t *testing.T) {
	if got := (Rational{Num: 30000, Denom: 1001}).Float64(); got < 29.97 || got > 29.971 {
		t.Errorf("Float64() = %v", got)
	}
	if got := (Rational{Num: 1}).Float64(); got != 0 {
		t.Errorf("zero denominator Float64() = %v, want 0", got)
	}
}

func TestTimeCode(t *testing.T) {
	tc, err := NewTimeCode(1, 2, 3, 29, true)
	if err != nil {
		t.Fatal(err)
	}
	if tc.Hours() != 1 || tc.Minutes() != 2 || tc.Seconds() != 3 || tc.Frame() != 29 || !tc.DropFrame() {
		t.Errorf("fields = %d %d %d %d %v", tc.Hours(), tc.Minutes(), tc.Seconds(), tc.Frame(), tc.DropFrame())
	}
	if got, want := tc.String(), "01;02;03;29"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	tc, _ = NewTimeCode(23, 59, 59, 24, false)
	if got, want := tc.String(), "23:59:59:24"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	// BCD packing: frame 24 -> 0x24, hours 23 -> 0x23 << 24
	if tc.TimeAndFlags()&0x3f != 0x24 || tc.TimeAndFlags()>>24 != 0x23 {
		t.Errorf("TimeAndFlags() = %#x", tc.TimeAndFlags())
	}
}

func TestTimeCodeRange(t *testing.T) {
	tests := []struct {
		h, m, s, f int
		want       error
	}{
		{24, 0, 0, 0, ErrTimeCodeHoursOutOfRange},
		{0, 60, 0, 0, ErrTimeCodeMinutesOutOfRange},
		{0, 0, -1, 0, ErrTimeCodeSecondsOutOfRange},
		{0, 0, 0, 60, ErrTimeCodeFramesOutOfRange},
	}
	for _, tt := range tests {
		if _, err := NewTimeCode(tt.h, tt.m, tt.s, tt.f, false); !errors.Is(err, tt.want) {
			t.Errorf("NewTimeCode(%d,%d,%d,%d) error = %v, want %v", tt.h, tt.m, tt.s, tt.f, err, tt.want)
		}
	}
}

func TestTimeCodeSerialization(t *testing.T) {
	tc, _ := NewTimeCode(10, 20, 30, 12, false)
	tc = NewTimeCodeFromPacked(tc.TimeAndFlags(), 0xdeadbeef)

	w := xdr.NewBufferWriter(8)
	WriteTimeCode(w, tc)
	got, err := ReadTimeCode(xdr.NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got != tc {
		t.Errorf("round trip = %+v, want %+v", got, tc)
	}
}

func TestPixelType(t *testing.T) {
	tests := []struct {
		pt   PixelType
		str  string
		size int
	}{
		{PixelTypeUint, "uint", 4},
		{PixelTypeHalf, "half", 2},
		{PixelTypeFloat, "float", 4},
		{PixelType(99), "unknown", 0},
	}
	for _, tt := range tests {
		if s := tt.pt.String(); s != tt.str {
			t.Errorf("%d.String() = %q, want %q", tt.pt, s, tt.str)
		}
		if sz := tt.pt.Size(); sz != tt.size {
			t.Errorf("%v.Size() = %d, want %d", tt.pt, sz, tt.size)
		}
	}
}

func TestChannelList(t *testing.T) {
	cl := NewChannelList()
	for _, name := range []string{"R", "G", "B", "A"} {
		if !cl.Add(NewChannel(name, PixelTypeHalf)) {
			t.Errorf("Add(%s) = false", name)
		}
	}
	if cl.Add(NewChannel("R", PixelTypeFloat)) {
		t.Error("duplicate Add(R) = true")
	}
	if diff := cmp.Diff([]string{"A", "B", "G", "R"}, cl.Names()); diff != "" {
		t.Errorf("Names() not sorted (-want +got):\n%s", diff)
	}
	if c := cl.Get("R"); c == nil || c.Type != PixelTypeHalf {
		t.Errorf("Get(R) = %+v", c)
	}
	if cl.Get("X") != nil {
		t.Error("Get(X) != nil")
	}
	if got := (Channel{Name: "diffuse.R"}).BaseName(); got != "R" {
		t.Errorf("BaseName() = %q", got)
	}
}

func TestChannelListSerialization(t *testing.T) {
	cl := NewChannelList()
	cl.Add(NewChannel("Y", PixelTypeHalf))
	ry := NewChannel("RY", PixelTypeHalf)
	ry.XSampling, ry.YSampling = 2, 2
	cl.Add(ry)
	id := NewChannel("id", PixelTypeUint)
	id.PLinear = true
	cl.Add(id)

	w := xdr.NewBufferWriter(64)
	WriteChannelList(w, cl)
	got, err := ReadChannelList(xdr.NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cl.Channels(), got.Channels()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestChannelListReadErrors(t *testing.T) {
	cl := NewChannelList()
	cl.Add(NewChannel("R", PixelTypeHalf))
	w := xdr.NewBufferWriter(32)
	WriteChannelList(w, cl)
	full := w.Bytes()

	for n := 0; n < len(full)-1; n++ {
		if _, err := ReadChannelList(xdr.NewReader(full[:n])); err == nil {
			t.Errorf("truncated to %d bytes: no error", n)
		}
	}

	bad := append([]byte(nil), full...)
	// xSampling of the first channel
	bad[2+4+4] = 0
	if _, err := ReadChannelList(xdr.NewReader(bad)); !errors.Is(err, ErrInvalidChannelList) {
		t.Errorf("zero sampling error = %v", err)
	}
}
