// Package blend provides the integer alpha mixing used by the layer mixer.
//
// Every sample is mixed with an 8-bit alpha and a shift instead of a
// division:
//
//	out = (dst*(256-a) + src*a) >> 8
//
// The shift truncates: a = 0 yields dst exactly and a = 255 yields src
// within (dst-src)/256. The same formula serves 8-bit and 10-bit
// samples; the product fits in uint32 for any 16-bit input.
package blend

import "encoding/binary"

// Mix blends one sample of src over dst.
func Mix(dst, src uint16, a uint8) uint16 {
	ia := 256 - uint32(a)
	return uint16((uint32(dst)*ia + uint32(src)*uint32(a)) >> 8)
}

// Row8 blends n 8-bit samples of src over dst with a constant alpha.
func Row8(dst, src []byte, a uint8) {
	ia := 256 - uint32(a)
	sa := uint32(a)
	src = src[:len(dst)]
	for i := range dst {
		dst[i] = byte((uint32(dst[i])*ia + uint32(src[i])*sa) >> 8)
	}
}

// RowAlpha8 blends 8-bit samples with a per-sample alpha.
func RowAlpha8(dst, src, alpha []byte) {
	src = src[:len(dst)]
	alpha = alpha[:len(dst)]
	for i := range dst {
		a := uint32(alpha[i])
		dst[i] = byte((uint32(dst[i])*(256-a) + uint32(src[i])*a) >> 8)
	}
}

// Row16 blends little-endian 16-bit samples of src over dst with a
// constant alpha. Both slices hold two bytes per sample.
func Row16(dst, src []byte, a uint8) {
	src = src[:len(dst)]
	for i := 0; i+1 < len(dst); i += 2 {
		d := binary.LittleEndian.Uint16(dst[i:])
		s := binary.LittleEndian.Uint16(src[i:])
		binary.LittleEndian.PutUint16(dst[i:], Mix(d, s, a))
	}
}
