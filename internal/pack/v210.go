package pack

import "encoding/binary"

// V210 stores 6 pixels in four little-endian 32-bit words:
//
//	w0 = Cb0 | Y0<<10 | Cr0<<20
//	w1 = Y1  | Cb1<<10 | Y2<<20
//	w2 = Cr1 | Y3<<10 | Cb2<<20
//	w3 = Y4  | Cr2<<10 | Y5<<20
type V210Frame struct {
	data   []byte
	stride int // words per row
}

// V210GroupPixels is the number of pixels in one 4-word group.
const V210GroupPixels = 6

// V210Align is the row width alignment required by V210 buffers.
const V210Align = 48

type fieldLoc struct {
	word  int
	shift uint
}

var (
	v210Luma = [6]fieldLoc{{0, 10}, {1, 0}, {1, 20}, {2, 10}, {3, 0}, {3, 20}}
	v210Cb   = [3]fieldLoc{{0, 0}, {1, 10}, {2, 20}}
	v210Cr   = [3]fieldLoc{{0, 20}, {2, 0}, {3, 10}}
)

// V210 views data as V210 with w pixels per row. w must be a multiple of 6.
func V210(data []byte, w, h int) V210Frame {
	stride := w * 2 / 3
	return V210Frame{data: data[:4*stride*h], stride: stride}
}

// Stride returns the row stride in 32-bit words.
func (f V210Frame) Stride() int { return f.stride }

// Word returns 32-bit word i of row y.
func (f V210Frame) Word(i, y int) uint32 {
	return binary.LittleEndian.Uint32(f.data[4*(y*f.stride+i):])
}

// SetWord stores 32-bit word i of row y.
func (f V210Frame) SetWord(i, y int, w uint32) {
	binary.LittleEndian.PutUint32(f.data[4*(y*f.stride+i):], w)
}

// RowBytes returns the n words of row y starting at word i.
func (f V210Frame) RowBytes(i, y, n int) []byte {
	off := 4 * (y*f.stride + i)
	return f.data[off : off+4*n]
}

func (f V210Frame) get(group, y int, loc fieldLoc) uint16 {
	return uint16(f.Word(group*4+loc.word, y)>>loc.shift) & Mask10
}

func (f V210Frame) put(group, y int, loc fieldLoc, v uint16) {
	i := group*4 + loc.word
	w := f.Word(i, y)
	w = w&^(Mask10<<loc.shift) | uint32(v&Mask10)<<loc.shift
	f.SetWord(i, y, w)
}

func (f V210Frame) Luma(x, y int) uint16 { return f.get(x/6, y, v210Luma[x%6]) }
func (f V210Frame) Cb(cx, y int) uint16  { return f.get(cx/3, y, v210Cb[cx%3]) }
func (f V210Frame) Cr(cx, y int) uint16  { return f.get(cx/3, y, v210Cr[cx%3]) }

func (f V210Frame) SetLuma(x, y int, v uint16) { f.put(x/6, y, v210Luma[x%6], v) }
func (f V210Frame) SetCb(cx, y int, v uint16)  { f.put(cx/3, y, v210Cb[cx%3], v) }
func (f V210Frame) SetCr(cx, y int, v uint16)  { f.put(cx/3, y, v210Cr[cx%3], v) }

// Packed5Frame stores a pixel pair in 5 bytes: Cb, Y0, Cr and Y1 as 10-bit
// fields of a 40-bit value.
type Packed5Frame struct {
	data    []byte
	stride  int // bytes per row
	be      bool
	cbShift uint
	y0Shift uint
	crShift uint
	y1Shift uint
}

// Packed5BE views data as YUV422YCbCr10BE: the 40-bit big-endian value
// Cb<<30 | Y0<<20 | Cr<<10 | Y1.
func Packed5BE(data []byte, w, h int) Packed5Frame {
	return Packed5Frame{
		data: data[:w*h*5/2], stride: w * 5 / 2, be: true,
		cbShift: 30, y0Shift: 20, crShift: 10, y1Shift: 0,
	}
}

// Packed5LE views data as YUV422YCbCr10LE: the 40-bit little-endian value
// Cb | Y0<<10 | Cr<<20 | Y1<<30.
func Packed5LE(data []byte, w, h int) Packed5Frame {
	return Packed5Frame{
		data: data[:w*h*5/2], stride: w * 5 / 2,
		cbShift: 0, y0Shift: 10, crShift: 20, y1Shift: 30,
	}
}

func (f Packed5Frame) load(off int) uint64 {
	b := f.data[off : off+5]
	if f.be {
		return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 | uint64(b[4])<<32
}

func (f Packed5Frame) store(off int, v uint64) {
	b := f.data[off : off+5]
	if f.be {
		b[0], b[1], b[2], b[3], b[4] = byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
		return
	}
	b[0], b[1], b[2], b[3], b[4] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24), byte(v>>32)
}

func (f Packed5Frame) get(pair, y int, shift uint) uint16 {
	return uint16(f.load(y*f.stride+pair*5)>>shift) & Mask10
}

func (f Packed5Frame) put(pair, y int, shift uint, v uint16) {
	off := y*f.stride + pair*5
	w := f.load(off)
	w = w&^(Mask10<<shift) | uint64(v&Mask10)<<shift
	f.store(off, w)
}

func (f Packed5Frame) lumaShift(x int) uint {
	if x&1 == 0 {
		return f.y0Shift
	}
	return f.y1Shift
}

func (f Packed5Frame) Luma(x, y int) uint16 { return f.get(x/2, y, f.lumaShift(x)) }
func (f Packed5Frame) Cb(cx, y int) uint16  { return f.get(cx, y, f.cbShift) }
func (f Packed5Frame) Cr(cx, y int) uint16  { return f.get(cx, y, f.crShift) }

func (f Packed5Frame) SetLuma(x, y int, v uint16) { f.put(x/2, y, f.lumaShift(x), v) }
func (f Packed5Frame) SetCb(cx, y int, v uint16)  { f.put(cx, y, f.cbShift, v) }
func (f Packed5Frame) SetCr(cx, y int, v uint16)  { f.put(cx, y, f.crShift, v) }
