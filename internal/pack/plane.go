// Package pack provides typed, non-owning views over frame buffers and the
// bit-packing accessors shared by every transform in vpp.
//
// A view never copies: it addresses samples of the caller's []byte through an
// explicit element stride, so kernels index by pixel coordinates instead of
// doing pointer arithmetic. Samples are exchanged as uint16 carrying the
// format's native depth (8-bit or 10-bit, right-justified). Left-justified
// storage (P010, Y210) is shifted on access.
//
// Multi-byte elements are little-endian.
package pack

import "encoding/binary"

// Mask10 masks a 10-bit sample.
const Mask10 = 0x3FF

// Plane is a 2D grid of samples addressed by (x, y).
type Plane interface {
	At(x, y int) uint16
	Set(x, y int, v uint16)
}

// Plane8 is a plane of 8-bit samples. Stride is in bytes.
type Plane8 struct {
	Data   []byte
	Stride int
}

// At returns the sample at (x, y).
func (p Plane8) At(x, y int) uint16 { return uint16(p.Data[y*p.Stride+x]) }

// Set stores the low 8 bits of v at (x, y).
func (p Plane8) Set(x, y int, v uint16) { p.Data[y*p.Stride+x] = uint8(v) }

// Bytes returns the n samples of row y starting at x.
func (p Plane8) Bytes(x, y, n int) []byte {
	off := y*p.Stride + x
	return p.Data[off : off+n]
}

// Plane16 is a plane of little-endian 16-bit samples. Stride is in elements.
type Plane16 struct {
	Data   []byte
	Stride int
}

// At returns the sample at (x, y).
func (p Plane16) At(x, y int) uint16 {
	return binary.LittleEndian.Uint16(p.Data[2*(y*p.Stride+x):])
}

// Set stores v at (x, y).
func (p Plane16) Set(x, y int, v uint16) {
	binary.LittleEndian.PutUint16(p.Data[2*(y*p.Stride+x):], v)
}

// Bytes returns the byte span holding n samples of row y starting at x.
func (p Plane16) Bytes(x, y, n int) []byte {
	off := 2 * (y*p.Stride + x)
	return p.Data[off : off+2*n]
}

// RowBytes is implemented by planes whose rows are contiguous in memory,
// which lets composition copy rows instead of samples.
type RowBytes interface {
	Bytes(x, y, n int) []byte
}

// justified stores 10-bit samples left-justified in 16 bits.
type justified struct {
	p Plane
}

func (j justified) At(x, y int) uint16     { return j.p.At(x, y) >> 6 }
func (j justified) Set(x, y int, v uint16) { j.p.Set(x, y, (v&Mask10)<<6) }

// interleaved addresses one component of an interleaved UV plane.
// Phase 0 selects U, phase 1 selects V.
type interleaved struct {
	p     Plane
	phase int
}

func (i interleaved) At(x, y int) uint16     { return i.p.At(2*x+i.phase, y) }
func (i interleaved) Set(x, y int, v uint16) { i.p.Set(2*x+i.phase, y, v) }
