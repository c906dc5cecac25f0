package half

import "encoding/binary"

const batchSize = 8

// ConvertBatch32 narrows src into dst. dst must be at least len(src).
func ConvertBatch32(dst []Half, src []float32) {
	n := len(src)
	if len(dst) < n {
		panic("half: destination slice too small")
	}
	dst = dst[:n]

	i := 0
	for ; i+batchSize <= n; i += batchSize {
		d := dst[i : i+batchSize : i+batchSize]
		s := src[i : i+batchSize : i+batchSize]
		d[0] = FromFloat32(s[0])
		d[1] = FromFloat32(s[1])
		d[2] = FromFloat32(s[2])
		d[3] = FromFloat32(s[3])
		d[4] = FromFloat32(s[4])
		d[5] = FromFloat32(s[5])
		d[6] = FromFloat32(s[6])
		d[7] = FromFloat32(s[7])
	}
	for ; i < n; i++ {
		dst[i] = FromFloat32(src[i])
	}
}

// ConvertBatchToFloat32 widens src into dst. dst must be at least len(src).
func ConvertBatchToFloat32(dst []float32, src []Half) {
	n := len(src)
	if len(dst) < n {
		panic("half: destination slice too small")
	}
	dst = dst[:n]

	i := 0
	for ; i+batchSize <= n; i += batchSize {
		d := dst[i : i+batchSize : i+batchSize]
		s := src[i : i+batchSize : i+batchSize]
		d[0] = s[0].Float32()
		d[1] = s[1].Float32()
		d[2] = s[2].Float32()
		d[3] = s[3].Float32()
		d[4] = s[4].Float32()
		d[5] = s[5].Float32()
		d[6] = s[6].Float32()
		d[7] = s[7].Float32()
	}
	for ; i < n; i++ {
		dst[i] = src[i].Float32()
	}
}

// PutBytes encodes src as little-endian half values into dst,
// which must hold 2*len(src) bytes.
func PutBytes(dst []byte, src []Half) {
	if len(dst) < 2*len(src) {
		panic("half: destination slice too small")
	}
	for i, h := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(h))
	}
}

// FromBytes decodes little-endian half values from src into dst.
func FromBytes(dst []Half, src []byte) {
	n := len(src) / 2
	if len(dst) < n {
		panic("half: destination slice too small")
	}
	for i := 0; i < n; i++ {
		dst[i] = Half(binary.LittleEndian.Uint16(src[2*i:]))
	}
}
