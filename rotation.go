package vpp

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp/internal/pack"
)

// Angle is a clockwise rotation in degrees.
type Angle int

const (
	// Rotate0 copies the frame unchanged.
	Rotate0 Angle = 0

	// Rotate90 turns the frame a quarter clockwise; width and height swap.
	Rotate90 Angle = 90

	// Rotate180 turns the frame upside down.
	Rotate180 Angle = 180

	// Rotate270 turns the frame a quarter counter-clockwise; width and
	// height swap.
	Rotate270 Angle = 270
)

// Valid reports whether a is one of the four supported angles.
func (a Angle) Valid() bool {
	switch a {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// transposes reports whether a swaps width and height.
func (a Angle) transposes() bool { return a == Rotate90 || a == Rotate270 }

// RotationParams configures a rotation.
//
// DstWidth and DstHeight may be left zero; they are then derived from the
// source size and the angle.
type RotationParams struct {
	Device *Device
	Async  bool

	Format Format
	Angle  Angle

	SrcWidth  int
	SrcHeight int
	DstWidth  int
	DstHeight int
}

// Rotation rotates I420 and V210 frames by multiples of 90 degrees.
type Rotation struct {
	params RotationParams
	name   string

	// dstPitch is the destination row width in pixels. V210 rows are
	// padded to 48 pixels.
	dstPitch int

	event  atomic.Pointer[Event]
	closed atomic.Bool
}

// NewRotation validates p.
//
// Unsupported angles, odd dimensions, V210 source widths that are not a
// multiple of 48 and destination sizes that do not match the angle return
// ErrInvalidParams. Formats other than I420 and V210 return ErrFail.
func NewRotation(p RotationParams) (*Rotation, error) {
	if p.Device == nil {
		return nil, invalidf("rotation: nil device")
	}
	if !p.Angle.Valid() {
		return nil, invalidf("rotation: unsupported angle %d", int(p.Angle))
	}
	if p.Format != FormatI420 && p.Format != FormatV210 {
		return nil, failf("rotation: %s is not supported", p.Format)
	}
	if p.SrcWidth <= 0 || p.SrcHeight <= 0 || odd(p.SrcWidth, p.SrcHeight) {
		return nil, invalidf("rotation: %dx%d must be positive and even", p.SrcWidth, p.SrcHeight)
	}
	if p.Format == FormatV210 && p.SrcWidth%pack.V210Align != 0 {
		return nil, invalidf("rotation: v210 width %d is not a multiple of %d", p.SrcWidth, pack.V210Align)
	}

	w, h := p.SrcWidth, p.SrcHeight
	if p.Angle.transposes() {
		w, h = h, w
	}
	if p.DstWidth == 0 && p.DstHeight == 0 {
		p.DstWidth, p.DstHeight = w, h
	}
	if p.DstWidth != w || p.DstHeight != h {
		return nil, invalidf("rotation: %d degrees maps %dx%d to %dx%d, not %dx%d",
			int(p.Angle), p.SrcWidth, p.SrcHeight, w, h, p.DstWidth, p.DstHeight)
	}

	r := &Rotation{
		params:   p,
		name:     "rotation_" + p.Format.String(),
		dstPitch: AlignedWidth(p.Format, p.DstWidth),
	}
	Logger().WithFields(logrus.Fields{
		"op":    r.name,
		"angle": int(p.Angle),
		"src":   [2]int{p.SrcWidth, p.SrcHeight},
		"dst":   [2]int{p.DstWidth, p.DstHeight},
	}).Debug("vpp: rotation kernel selected")
	return r, nil
}

// Params returns the parameters with the destination size filled in.
func (r *Rotation) Params() RotationParams { return r.params }

// Event returns the event of the most recent Run, or nil.
func (r *Rotation) Event() *Event { return r.event.Load() }

// Close releases the rotation. Later Run calls fail with ErrClosed.
func (r *Rotation) Close() error {
	r.closed.Store(true)
	return nil
}

// Run rotates src into dst once dep has completed.
func (r *Rotation) Run(src, dst []byte, dep *Event) (*Event, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	p := r.params
	if n := ImageSize(p.Format, p.SrcWidth, p.SrcHeight); len(src) < n {
		return nil, failf("%s: src is %d bytes, need %d", r.name, len(src), n)
	}
	if n := ImageSize(p.Format, p.DstWidth, p.DstHeight); len(dst) < n {
		return nil, failf("%s: dst is %d bytes, need %d", r.name, len(dst), n)
	}

	var (
		rows   int
		kernel func(int)
	)
	if p.Format == FormatI420 {
		s := pack.I420(src, p.SrcWidth, p.SrcHeight)
		d := pack.I420(dst, p.DstWidth, p.DstHeight)
		rows, kernel = p.DstHeight/2, func(row int) { r.rowsI420(d, s, row) }
	} else {
		s := pack.V210(src, p.SrcWidth, p.SrcHeight)
		d := pack.V210(dst, r.dstPitch, p.DstHeight)
		rows, kernel = p.DstHeight, func(y int) { r.rowV210(d, s, y) }
	}

	ev, err := p.Device.submit(r.name, dep, p.Async, rows, kernel)
	if ev != nil {
		r.event.Store(ev)
	}
	return ev, err
}

// source maps destination pixel (x, y) to its source pixel in a w×h source.
func (a Angle) source(x, y, w, h int) (int, int) {
	switch a {
	case Rotate90:
		return y, h - 1 - x
	case Rotate180:
		return w - 1 - x, h - 1 - y
	case Rotate270:
		return w - 1 - y, x
	}
	return x, y
}

// rowsI420 writes luma rows 2r, 2r+1 and chroma row r.
func (r *Rotation) rowsI420(dst, src pack.Frame420, row int) {
	p := &r.params
	a := p.Angle
	w, h := p.SrcWidth, p.SrcHeight

	if a == Rotate0 {
		sy, sp := src.Y.(pack.Plane8), src.U.(pack.Plane8)
		dy, dp := dst.Y.(pack.Plane8), dst.U.(pack.Plane8)
		copy(dy.Bytes(0, 2*row, w), sy.Bytes(0, 2*row, w))
		copy(dy.Bytes(0, 2*row+1, w), sy.Bytes(0, 2*row+1, w))
		copy(dp.Bytes(0, row, w/2), sp.Bytes(0, row, w/2))
		sv, dv := src.V.(pack.Plane8), dst.V.(pack.Plane8)
		copy(dv.Bytes(0, row, w/2), sv.Bytes(0, row, w/2))
		return
	}

	for y := 2 * row; y < 2*row+2; y++ {
		for x := 0; x < p.DstWidth; x++ {
			sx, sy := a.source(x, y, w, h)
			dst.Y.Set(x, y, src.Y.At(sx, sy))
		}
	}
	for cx := 0; cx < p.DstWidth/2; cx++ {
		sx, sy := a.source(cx, row, w/2, h/2)
		dst.U.Set(cx, row, src.U.At(sx, sy))
		dst.V.Set(cx, row, src.V.At(sx, sy))
	}
}

// rowV210 writes row y of the destination including its alignment padding.
func (r *Rotation) rowV210(dst, src pack.V210Frame, y int) {
	p := &r.params
	a := p.Angle
	w, h := p.SrcWidth, p.SrcHeight

	if a == Rotate0 {
		copy(dst.RowBytes(0, y, dst.Stride()), src.RowBytes(0, y, src.Stride()))
		return
	}

	for x := 0; x < p.DstWidth; x++ {
		sx, sy := a.source(x, y, w, h)
		dst.SetLuma(x, y, src.Luma(sx, sy))
	}
	for k := 0; k < p.DstWidth/2; k++ {
		var cb, cr uint16
		if a == Rotate180 {
			// The mirrored pair is a whole source pair.
			sx, sy := a.source(2*k+1, y, w, h)
			cb, cr = src.Cb(sx/2, sy), src.Cr(sx/2, sy)
		} else {
			sx, sy := a.source(2*k, y, w, h)
			cb, cr = chromaAt(src, sx, sy, w)
		}
		dst.SetCb(k, y, cb)
		dst.SetCr(k, y, cr)
	}
	padV210(dst, y, p.DstWidth, r.dstPitch)
}

// chromaAt returns the chroma of source pixel x in a row of w pixels. Odd
// pixels have no co-sited chroma and take the truncating average of the two
// bounding samples; the last one replicates the final sample.
func chromaAt(src pack.V210Frame, x, y, w int) (cb, cr uint16) {
	c := x / 2
	if x%2 == 0 {
		return src.Cb(c, y), src.Cr(c, y)
	}
	n := c + 1
	if n >= w/2 {
		n = c
	}
	cb = (src.Cb(c, y) + src.Cb(n, y)) / 2
	cr = (src.Cr(c, y) + src.Cr(n, y)) / 2
	return cb, cr
}

// padV210 fills pixels [w, pitch) of row y. The partial group at w is
// completed by repeating its last pixel pair, then whole groups repeat the
// last valid group.
func padV210(f pack.V210Frame, y, w, pitch int) {
	if w == pitch {
		return
	}
	const g = pack.V210GroupPixels
	if rem := w % g; rem != 0 {
		lx, lc := w-2, w/2-1
		for x := w; x < w-rem+g; x += 2 {
			f.SetLuma(x, y, f.Luma(lx, y))
			f.SetLuma(x+1, y, f.Luma(lx+1, y))
			f.SetCb(x/2, y, f.Cb(lc, y))
			f.SetCr(x/2, y, f.Cr(lc, y))
		}
		w += g - rem
	}
	last := f.RowBytes((w/g-1)*4, y, 4)
	for x := w; x < pitch; x += g {
		copy(f.RowBytes(x/g*4, y, 4), last)
	}
}
