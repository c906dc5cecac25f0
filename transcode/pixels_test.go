package transcode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/half"
)

func TestPremultiply(t *testing.T) {
	px := []float32{0.2, 0.4, 0.8, 1, 0.2, 0.4, 0.8, 0.5, 1, 1, 1, 0}
	Premultiply(px)
	want := []float32{0.2, 0.4, 0.8, 1, 0.1, 0.2, 0.4, 0.5, 0, 0, 0, 0}
	if diff := cmp.Diff(want, px); diff != "" {
		t.Errorf("Premultiply (-want +got):\n%s", diff)
	}

	// opaque pixels are never touched, however often it runs
	opaque := []float64{3, -2, 0.7, 1}
	Premultiply(opaque)
	Premultiply(opaque)
	if diff := cmp.Diff([]float64{3, -2, 0.7, 1}, opaque); diff != "" {
		t.Errorf("opaque pixel changed (-want +got):\n%s", diff)
	}

	Unpremultiply(px)
	want = []float32{0.2, 0.4, 0.8, 1, 0.2, 0.4, 0.8, 0.5, 0, 0, 0, 0}
	if diff := cmp.Diff(want, px); diff != "" {
		t.Errorf("Unpremultiply (-want +got):\n%s", diff)
	}
}

func TestFill(t *testing.T) {
	tr := New(DefaultConfig())
	b, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 3, 2)
	tr.Fill(b, 0.25, 1)
	for i, v := range b.Float {
		want := float32(0.25)
		if i%4 == 3 {
			want = 1
		}
		if v != want {
			t.Fatalf("element %d = %v, want %v", i, v, want)
		}
	}

	h, _ := NewPixelBuffer(exr.PixelTypeHalf, 3, 2, 2)
	tr.Fill(h, 0.5, 1)
	for i, v := range h.Half {
		if v.Float32() != 0.5 {
			t.Fatalf("half element %d = %v", i, v)
		}
	}

	empty, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 0, 0)
	tr.Fill(empty, 1, 1)
}

func TestCopy(t *testing.T) {
	tr := New(DefaultConfig())
	src, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 2, 2)
	for i := range src.Float {
		src.Float[i] = float32(i)
	}
	pix := make([]float32, 2*2*4)
	dst, _ := WrapFloat(pix, 4, 2, 2, 8, true)
	if err := tr.Copy(dst, src); err != nil {
		t.Fatal(err)
	}
	// bottom-up storage holds the rows reversed
	want := append(append([]float32(nil), src.Float[8:]...), src.Float[:8]...)
	if diff := cmp.Diff(want, pix); diff != "" {
		t.Errorf("copied storage (-want +got):\n%s", diff)
	}

	other, _ := NewPixelBuffer(exr.PixelTypeHalf, 4, 2, 2)
	if err := tr.Copy(other, src); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Copy between formats error = %v", err)
	}
}

// hostFrame returns a width x height BGRA frame with a mix of opaque,
// partial and clear pixels.
func hostFrame(width, height int) *PixelBuffer {
	b, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, width, height)
	alphas := []float32{1, 0.5, 0.25, 0}
	for y := 0; y < height; y++ {
		row := b.RowFloat(y)
		for x := 0; x < width; x++ {
			copy(row[x*4:], []float32{float32(x) / 8, float32(y) / 8, 0.5, alphas[(x+y)%4]})
		}
	}
	return b
}

func TestExportImportRoundTrip(t *testing.T) {
	tr := New(DefaultConfig())
	for _, pt := range []exr.PixelType{exr.PixelTypeFloat, exr.PixelTypeHalf} {
		for _, channels := range []int{3, 4} {
			src := hostFrame(5, 4)
			mid, _ := NewPixelBuffer(pt, channels, 5, 4)
			if err := tr.Export(src, mid, false); err != nil {
				t.Fatal(err)
			}
			back, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 5, 4)
			// Export keeps BGR(A) order; Import reads RGB(A)
			swapRedBlue(mid)
			if err := tr.Import(mid, back); err != nil {
				t.Fatal(err)
			}
			want := append([]float32(nil), src.Float...)
			if channels == 3 {
				for i := 3; i < len(want); i += 4 {
					want[i] = 1
				}
			}
			// every test value is exact in half
			if diff := cmp.Diff(want, back.Float); diff != "" {
				t.Errorf("%s %d channels round trip (-want +got):\n%s", pt, channels, diff)
			}
		}
	}
}

func swapRedBlue(b *PixelBuffer) {
	n := b.Channels
	for y := 0; y < b.Height; y++ {
		if b.Type == exr.PixelTypeFloat {
			row := b.RowFloat(y)
			for i := 0; i < len(row); i += n {
				row[i], row[i+2] = row[i+2], row[i]
			}
			continue
		}
		row := b.RowHalf(y)
		for i := 0; i < len(row); i += n {
			row[i], row[i+2] = row[i+2], row[i]
		}
	}
}

func TestExportPremultiply(t *testing.T) {
	tr := New(DefaultConfig())
	src := hostFrame(4, 1)
	orig := append([]float32(nil), src.Float...)
	dst, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 4, 1)
	if err := tr.Export(src, dst, true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(orig, src.Float); diff != "" {
		t.Errorf("Export modified its source (-want +got):\n%s", diff)
	}
	want := []float32{
		0, 0, 0.5, 1,
		0.0625, 0, 0.25, 0.5,
		0.0625, 0, 0.125, 0.25,
		0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, dst.Float, cmpopts.EquateApprox(0, 1e-7)); diff != "" {
		t.Errorf("premultiplied export (-want +got):\n%s", diff)
	}
}

func TestExportPremultiplyHalf(t *testing.T) {
	// 0.9998 rounds to a half alpha of 1, so the first pixel keeps its
	// narrowed colour; 1.0006 narrows to 1.0009765625.
	px := []float32{
		1.0006, 0.5, 0.25, 0.9998,
		0.75, 0.5, 0.25, 0.5,
	}
	want := []float32{
		1.0009765625, 0.5, 0.25, 1,
		0.375, 0.25, 0.125, 0.5,
	}
	tr := New(DefaultConfig())
	for _, n := range []int{4, 3} {
		src, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 2, 1)
		copy(src.Float, px)
		dst, _ := NewPixelBuffer(exr.PixelTypeHalf, n, 2, 1)
		if err := tr.Export(src, dst, true); err != nil {
			t.Fatal(err)
		}
		got := make([]float32, len(dst.Half))
		half.ConvertBatchToFloat32(got, dst.Half)
		var w []float32
		for x := 0; x < 2; x++ {
			w = append(w, want[x*4:x*4+n]...)
		}
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("%d channels (-want +got):\n%s", n, diff)
		}
		if diff := cmp.Diff(px, src.Float); diff != "" {
			t.Errorf("%d channels: Export modified its source (-want +got):\n%s", n, diff)
		}
	}
}

func TestNarrowToHalf(t *testing.T) {
	tests := []struct {
		name        string
		premultiply bool
		want        []float32
	}{
		{"straight", false, []float32{1.0009765625, 0.5, 0.25, 1, 0.75, 0.5, 0.25, 0.5}},
		{"premultiplied", true, []float32{1.0009765625, 0.5, 0.25, 1, 0.375, 0.25, 0.125, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px := []float32{1.0006, 0.5, 0.25, 0.9998, 0.75, 0.5, 0.25, 0.5}
			NarrowToHalf(px, tt.premultiply)
			if diff := cmp.Diff(tt.want, px); diff != "" {
				t.Errorf("NarrowToHalf (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExportHalfRounding(t *testing.T) {
	tr := New(DefaultConfig())
	src, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 1, 1)
	copy(src.Float, []float32{0.1, 1.0 / 3, 65504, 1})
	dst, _ := NewPixelBuffer(exr.PixelTypeHalf, 4, 1, 1)
	if err := tr.Export(src, dst, false); err != nil {
		t.Fatal(err)
	}
	for i, v := range src.Float {
		if got, want := dst.Half[i], half.FromFloat32(v); got != want {
			t.Errorf("channel %d = %v, want %v", i, got, want)
		}
	}
}

func TestExportImportErrors(t *testing.T) {
	tr := New(DefaultConfig())
	halfSrc, _ := NewPixelBuffer(exr.PixelTypeHalf, 4, 2, 2)
	float4, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 2, 2)
	small, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 1, 2)
	half3, _ := NewPixelBuffer(exr.PixelTypeHalf, 3, 2, 2)

	if err := tr.Export(halfSrc, float4, false); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Export from half error = %v", err)
	}
	if err := tr.Export(float4, small, false); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Export size mismatch error = %v", err)
	}
	if err := tr.Import(float4, half3); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Import to half error = %v", err)
	}
	if err := tr.Import(half3, small); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("Import size mismatch error = %v", err)
	}

	e1, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 0, 3)
	e2, _ := NewPixelBuffer(exr.PixelTypeHalf, 3, 0, 3)
	if err := tr.Export(e1, e2, true); err != nil {
		t.Errorf("empty Export error = %v", err)
	}
}

func TestSetAlpha(t *testing.T) {
	tr := New(DefaultConfig())
	b := hostFrame(3, 3)
	tr.SetAlpha(b, 1)
	for i := 3; i < len(b.Float); i += 4 {
		if b.Float[i] != 1 {
			t.Fatalf("alpha element %d = %v", i, b.Float[i])
		}
	}
}

func TestSequentialMatchesParallel(t *testing.T) {
	seq := New(Config{Parallel: exr.SequentialConfig()})
	par := New(Config{Parallel: exr.ParallelConfig{NumWorkers: 8, GrainSize: 1}})
	a, b := hostFrame(17, 33), hostFrame(17, 33)
	da, _ := NewPixelBuffer(exr.PixelTypeHalf, 4, 17, 33)
	db, _ := NewPixelBuffer(exr.PixelTypeHalf, 4, 17, 33)
	if err := seq.Export(a, da, true); err != nil {
		t.Fatal(err)
	}
	if err := par.Export(b, db, true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(da.Half, db.Half); diff != "" {
		t.Errorf("parallel export differs (-seq +par):\n%s", diff)
	}
}

func BenchmarkExportHalf(b *testing.B) {
	tr := New(DefaultConfig())
	src := hostFrame(1920, 1080)
	dst, _ := NewPixelBuffer(exr.PixelTypeHalf, 4, 1920, 1080)
	b.SetBytes(int64(len(src.Float) * 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tr.Export(src, dst, true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkImportHalf(b *testing.B) {
	tr := New(DefaultConfig())
	src, _ := NewPixelBuffer(exr.PixelTypeHalf, 4, 1920, 1080)
	dst, _ := NewPixelBuffer(exr.PixelTypeFloat, 4, 1920, 1080)
	b.SetBytes(int64(len(dst.Float) * 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tr.Import(src, dst); err != nil {
			b.Fatal(err)
		}
	}
}
