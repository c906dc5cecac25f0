package compression

import "errors"

// RLE compression errors
var (
	ErrRLECorrupted = errors.New("compression: corrupted RLE data")
	ErrRLEOverflow  = errors.New("compression: RLE decompressed size overflow")
)

const (
	rleMinRunLength = 3
	rleMaxRunLength = 127
)

// RLECompress run-length encodes src in the OpenEXR format.
//
// A count byte n >= 0 is followed by one value repeated n+1 times;
// a negative count -n is followed by n literal bytes.
//
//	[A, A, A, A, B, C, D] -> [3, A, -3, B, C, D]
func RLECompress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, 0, len(src)+len(src)/128+2)
	n := len(src)

	runStart, runEnd := 0, 1
	for runStart < n {
		for runEnd < n && src[runStart] == src[runEnd] && runEnd-runStart-1 < rleMaxRunLength {
			runEnd++
		}
		if runEnd-runStart >= rleMinRunLength {
			dst = append(dst, byte(runEnd-runStart-1), src[runStart])
			runStart = runEnd
		} else {
			// extend the literal until three equal bytes start a run
			for runEnd < n &&
				(runEnd+1 >= n || src[runEnd] != src[runEnd+1] ||
					runEnd+2 >= n || src[runEnd+1] != src[runEnd+2]) &&
				runEnd-runStart < rleMaxRunLength {
				runEnd++
			}
			dst = append(dst, byte(int8(runStart-runEnd)))
			dst = append(dst, src[runStart:runEnd]...)
			runStart = runEnd
		}
		runEnd++
	}
	return dst
}

// RLEDecompressTo decodes src into dst, which must be exactly the
// uncompressed size.
func RLEDecompressTo(dst, src []byte) error {
	pos := 0
	for i := 0; i < len(src); {
		count := int(int8(src[i]))
		i++
		if count < 0 {
			n := -count
			if i+n > len(src) {
				return ErrRLECorrupted
			}
			if pos+n > len(dst) {
				return ErrRLEOverflow
			}
			copy(dst[pos:], src[i:i+n])
			pos += n
			i += n
			continue
		}
		n := count + 1
		if i >= len(src) {
			return ErrRLECorrupted
		}
		if pos+n > len(dst) {
			return ErrRLEOverflow
		}
		v := src[i]
		i++
		for end := pos + n; pos < end; pos++ {
			dst[pos] = v
		}
	}
	if pos != len(dst) {
		return ErrRLECorrupted
	}
	return nil
}
