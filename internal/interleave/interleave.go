// Package interleave implements the byte reordering OpenEXR applies before
// the ZIP and RLE compressors.
//
// Bytes at even offsets are gathered into the first half of the output and
// bytes at odd offsets into the second half, so the high and low bytes of
// half-float samples end up in separate runs:
//
//	Input:  [a0, a1, b0, b1, c0]
//	Output: [a0, b0, c0, a1, b1]
package interleave

// Split gathers even-offset bytes of src into the first (len+1)/2 bytes of
// dst and odd-offset bytes into the rest. dst must be len(src) bytes.
func Split(dst, src []byte) {
	if len(dst) < len(src) {
		panic("interleave: destination too small")
	}
	half := (len(src) + 1) / 2
	even, odd := dst[:half], dst[half:len(src)]
	for i := 0; i < len(src); i += 2 {
		even[i/2] = src[i]
	}
	for i := 1; i < len(src); i += 2 {
		odd[i/2] = src[i]
	}
}

// Merge reverses Split.
func Merge(dst, src []byte) {
	if len(dst) < len(src) {
		panic("interleave: destination too small")
	}
	half := (len(src) + 1) / 2
	even, odd := src[:half], src[half:]
	for i := 0; i < len(src); i += 2 {
		dst[i] = even[i/2]
	}
	for i := 1; i < len(src); i += 2 {
		dst[i] = odd[i/2]
	}
}
