package main

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
	"golang.org/x/image/tiff"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/transcode"
)

// frameToImage converts a BGRA float frame, whose colour is premultiplied
// as stored in the file, to 16 bit RGBA. Values are clamped to [0, 1] and
// colour to alpha.
func frameToImage(f *transcode.PixelBuffer) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		row := f.RowFloat(y)
		for x := 0; x < f.Width; x++ {
			p := row[x*4 : x*4+4]
			a := to16(p[3])
			img.SetRGBA64(x, y, color.RGBA64{
				R: min(to16(p[2]), a),
				G: min(to16(p[1]), a),
				B: min(to16(p[0]), a),
				A: a,
			})
		}
	}
	return img
}

func to16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return math.MaxUint16
	}
	return uint16(v*math.MaxUint16 + 0.5)
}

// imageToFrame converts img to a BGRA float frame with straight alpha.
func imageToFrame(img image.Image) (*transcode.PixelBuffer, error) {
	b := img.Bounds()
	f, err := transcode.NewPixelBuffer(exr.PixelTypeFloat, 4, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		row := f.RowFloat(y)
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			row[x*4] = float32(c.B) / math.MaxUint16
			row[x*4+1] = float32(c.G) / math.MaxUint16
			row[x*4+2] = float32(c.R) / math.MaxUint16
			row[x*4+3] = float32(c.A) / math.MaxUint16
		}
	}
	return f, nil
}

func readImage(name string) (image.Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", name, err)
	}
	if format != "tiff" && format != "png" {
		return nil, fmt.Errorf("%s: unsupported format %s", name, format)
	}
	return img, nil
}

// writeTIFF writes img, scaled down to fit a thumb x thumb square when
// thumb is not zero.
func writeTIFF(name string, img image.Image, thumb uint) error {
	if thumb > 0 {
		img = resize.Thumbnail(thumb, thumb, img, resize.Lanczos3)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
