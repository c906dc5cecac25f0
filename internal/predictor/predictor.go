// Package predictor implements the byte-delta predictor OpenEXR applies to
// interleaved data before ZIP and RLE compression.
//
// Each byte after the first is replaced by its difference from the
// preceding byte, biased by 128 so that small differences of either sign
// cluster around the same value.
package predictor

// Encode applies the predictor in place.
func Encode(data []byte) {
	if len(data) < 2 {
		return
	}
	prev := data[0]
	for i := 1; i < len(data); i++ {
		cur := data[i]
		data[i] = cur - prev + 128
		prev = cur
	}
}

// Decode reverses Encode in place.
func Decode(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] = data[i-1] + data[i] - 128
	}
}
