package pack

import "encoding/binary"

// View422 addresses the 10-bit samples of a 4:2:2 frame. Chroma index cx
// covers the pixel pair (2cx, 2cx+1) of row y.
//
// Setters touch only their own sample. Implementations that share a storage
// word between samples read-modify-write it, so concurrent writers must own
// disjoint rows.
type View422 interface {
	Luma(x, y int) uint16
	Cb(cx, y int) uint16
	Cr(cx, y int) uint16
	SetLuma(x, y int, v uint16)
	SetCb(cx, y int, v uint16)
	SetCr(cx, y int, v uint16)
}

// Row422 holds an unpacked run of 4:2:2 pixels: len(Y) luma samples and
// len(Y)/2 samples of each chroma component.
type Row422 struct {
	Y, Cb, Cr []uint16
}

// NewRow422 allocates a row for w pixels.
func NewRow422(w int) *Row422 {
	return &Row422{
		Y:  make([]uint16, w),
		Cb: make([]uint16, w/2),
		Cr: make([]uint16, w/2),
	}
}

// ReadRow unpacks len(r.Y) pixels of row y starting at the even pixel x0.
func ReadRow(v View422, y, x0 int, r *Row422) {
	for i := range r.Y {
		r.Y[i] = v.Luma(x0+i, y)
	}
	c0 := x0 / 2
	for i := range r.Cb {
		r.Cb[i] = v.Cb(c0+i, y)
		r.Cr[i] = v.Cr(c0+i, y)
	}
}

// WriteRow packs r into row y starting at the even pixel x0.
func WriteRow(v View422, y, x0 int, r *Row422) {
	for i, s := range r.Y {
		v.SetLuma(x0+i, y, s)
	}
	c0 := x0 / 2
	for i := range r.Cb {
		v.SetCb(c0+i, y, r.Cb[i])
		v.SetCr(c0+i, y, r.Cr[i])
	}
}

// Planar422 is YUV422P10LE: 16-bit Y plane, then U and V planes of half
// width and full height.
type Planar422 struct {
	Y, U, V Plane16
}

// YUV422P10 views data as planar 4:2:2 with w luma samples per row.
func YUV422P10(data []byte, w, h int) Planar422 {
	n := 2 * w * h
	return Planar422{
		Y: Plane16{Data: data[:n], Stride: w},
		U: Plane16{Data: data[n : n*3/2], Stride: w / 2},
		V: Plane16{Data: data[n*3/2 : n*2], Stride: w / 2},
	}
}

func (p Planar422) Luma(x, y int) uint16       { return p.Y.At(x, y) & Mask10 }
func (p Planar422) Cb(cx, y int) uint16        { return p.U.At(cx, y) & Mask10 }
func (p Planar422) Cr(cx, y int) uint16        { return p.V.At(cx, y) & Mask10 }
func (p Planar422) SetLuma(x, y int, v uint16) { p.Y.Set(x, y, v&Mask10) }
func (p Planar422) SetCb(cx, y int, v uint16)  { p.U.Set(cx, y, v&Mask10) }
func (p Planar422) SetCr(cx, y int, v uint16)  { p.V.Set(cx, y, v&Mask10) }

// Y210Frame packs each pixel pair as four 16-bit words Y0 Cb Y1 Cr, every
// sample left-justified.
type Y210Frame struct {
	data   []byte
	stride int // elements per row
}

// Y210 views data as Y210 with w pixels per row.
func Y210(data []byte, w, h int) Y210Frame {
	return Y210Frame{data: data[:4*w*h], stride: 2 * w}
}

func (f Y210Frame) get(i int) uint16 {
	return binary.LittleEndian.Uint16(f.data[2*i:]) >> 6
}

func (f Y210Frame) put(i int, v uint16) {
	binary.LittleEndian.PutUint16(f.data[2*i:], (v&Mask10)<<6)
}

func (f Y210Frame) Luma(x, y int) uint16       { return f.get(y*f.stride + 2*x) }
func (f Y210Frame) Cb(cx, y int) uint16        { return f.get(y*f.stride + 4*cx + 1) }
func (f Y210Frame) Cr(cx, y int) uint16        { return f.get(y*f.stride + 4*cx + 3) }
func (f Y210Frame) SetLuma(x, y int, v uint16) { f.put(y*f.stride+2*x, v) }
func (f Y210Frame) SetCb(cx, y int, v uint16)  { f.put(y*f.stride+4*cx+1, v) }
func (f Y210Frame) SetCr(cx, y int, v uint16)  { f.put(y*f.stride+4*cx+3, v) }
