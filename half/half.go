// Package half provides IEEE 754 binary16 half-precision floating-point numbers.
//
// Half-precision floats use 16 bits: 1 sign bit, 5 exponent bits (bias 15)
// and 10 mantissa bits. OpenEXR stores most colour data in this format and
// the host side of the transcoder narrows its 32-bit float rows to it.
package half

import (
	"math"
	"strconv"
)

// Half represents an IEEE 754 binary16 half-precision floating-point number.
type Half uint16

const (
	signBit      = 0x8000
	exponentMask = 0x7C00
	mantissaMask = 0x03FF

	exponentBias = 15
)

// Common values.
const (
	Zero Half = 0x0000
	One  Half = 0x3C00
	// Inf is positive infinity.
	Inf Half = 0x7C00
	// NegInf is negative infinity.
	NegInf Half = 0xFC00
	// NaN is a quiet NaN.
	NaN Half = 0x7E00
	// Max is the largest finite value (65504).
	Max Half = 0x7BFF
)

// FromFloat32 converts a float32 to a Half, rounding to nearest even.
// Values beyond the half range become infinities, values below the smallest
// subnormal become signed zero. NaN payloads are kept non-zero.
func FromFloat32(f float32) Half {
	bits := math.Float32bits(f)
	sign := uint32(bits>>16) & signBit
	exp := int32(bits>>23) & 0xFF
	man := bits & 0x007FFFFF

	if exp == 0xFF {
		if man == 0 {
			return Half(sign | exponentMask)
		}
		m := man >> 13
		if m == 0 {
			m = 1
		}
		return Half(sign | exponentMask | m)
	}

	e := exp - 127 + exponentBias
	switch {
	case e >= 31:
		return Half(sign | exponentMask)
	case e <= 0:
		if e < -10 {
			return Half(sign)
		}
		man |= 0x00800000
		shift := uint32(14 - e)
		hm := man >> shift
		rem := man & (1<<shift - 1)
		halfway := uint32(1) << (shift - 1)
		if rem > halfway || (rem == halfway && hm&1 == 1) {
			hm++
		}
		return Half(sign | hm)
	}

	h := uint32(e)<<10 | man>>13
	rem := man & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
		// a carry out of the mantissa bumps the exponent, up to Inf
		h++
	}
	return Half(sign | h)
}

// Float32 converts h to float32. The conversion is exact.
func (h Half) Float32() float32 {
	return math.Float32frombits(h.float32Bits())
}

func (h Half) float32Bits() uint32 {
	sign := uint32(h&signBit) << 16
	exp := uint32(h&exponentMask) >> 10
	man := uint32(h & mantissaMask)

	switch exp {
	case 0:
		if man == 0 {
			return sign
		}
		e := uint32(127 - exponentBias + 1)
		for man&0x0400 == 0 {
			man <<= 1
			e--
		}
		return sign | e<<23 | (man&mantissaMask)<<13
	case 0x1F:
		return sign | 0x7F800000 | man<<13
	}
	return sign | (exp+127-exponentBias)<<23 | man<<13
}

// FromBits returns the Half with the given bit pattern.
func FromBits(bits uint16) Half { return Half(bits) }

// Bits returns the raw bit pattern.
func (h Half) Bits() uint16 { return uint16(h) }

// IsNaN reports whether h is a NaN.
func (h Half) IsNaN() bool {
	return h&exponentMask == exponentMask && h&mantissaMask != 0
}

// IsInf reports whether h is an infinity of either sign.
func (h Half) IsInf() bool {
	return h&^signBit == Inf
}

// IsFinite reports whether h is neither infinite nor NaN.
func (h Half) IsFinite() bool {
	return h&exponentMask != exponentMask
}

// String formats h as its float32 value.
func (h Half) String() string {
	return strconv.FormatFloat(float64(h.Float32()), 'g', -1, 32)
}
