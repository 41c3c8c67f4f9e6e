//go:build !nogpu

package gpu

import "encoding/binary"

// packSamples widens a w×h window of 8-bit samples with the given row
// stride to little-endian uint32 words.
func packSamples(data []byte, stride, w, h int) []byte {
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		row := data[y*stride : y*stride+w]
		for x, v := range row {
			binary.LittleEndian.PutUint32(out[(y*w+x)*4:], uint32(v))
		}
	}
	return out
}

// unpackSamples narrows words produced by packSamples back into the window.
func unpackSamples(words []byte, data []byte, stride, w, h int) {
	for y := 0; y < h; y++ {
		row := data[y*stride : y*stride+w]
		for x := range row {
			row[x] = uint8(binary.LittleEndian.Uint32(words[(y*w+x)*4:])) //nolint:gosec // shader output is 8-bit
		}
	}
}
