package vpp

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp/internal/interp"
	"github.com/gogpu/vpp/internal/pack"
)

// ResizeParams configures a rescale.
//
// The destination is a window of DstWidth×DstHeight pixels at (OffsetX,
// OffsetY) inside a surface of Pitch×SurfaceHeight pixels. Pitch defaults to
// DstWidth and SurfaceHeight to DstHeight, so the common case writes a whole
// frame. Larger surfaces let several resizes tile one frame.
type ResizeParams struct {
	Device *Device
	Async  bool

	Format Format
	Interp Interp

	SrcWidth  int
	SrcHeight int
	DstWidth  int
	DstHeight int

	Pitch         int
	SurfaceHeight int
	OffsetX       int
	OffsetY       int
}

// Resize rescales frames of one format.
type Resize struct {
	params ResizeParams
	name   string
	layout resizeLayout

	lumaX, lumaY     interp.Axis
	chromaX, chromaY interp.Axis

	event  atomic.Pointer[Event]
	closed atomic.Bool
}

type resizeLayout uint8

const (
	resize420 resizeLayout = iota
	resize422
)

// resizeFamilies maps each resizable format to its sampling layout.
// NV12, YUV422P10LE and YUV422YCbCr10LE have no resize kernels.
var resizeFamilies = map[Format]resizeLayout{
	FormatI420:            resize420,
	FormatYUV420P10LE:     resize420,
	FormatP010:            resize420,
	FormatYUV422YCbCr10BE: resize422,
	FormatV210:            resize422,
	FormatY210:            resize422,
}

// NewResize validates p and precomputes the per-axis sampling tables.
//
// Non-positive or odd dimensions and destination windows outside the
// surface return ErrInvalidParams. Formats without a resize kernel and V210
// frames not aligned to 48 pixels return ErrFail.
func NewResize(p ResizeParams) (*Resize, error) {
	if p.Device == nil {
		return nil, invalidf("resize: nil device")
	}
	if p.SrcWidth <= 0 || p.SrcHeight <= 0 || p.DstWidth <= 0 || p.DstHeight <= 0 {
		return nil, invalidf("resize: %dx%d -> %dx%d", p.SrcWidth, p.SrcHeight, p.DstWidth, p.DstHeight)
	}
	if !p.Format.Valid() {
		return nil, invalidf("resize: unknown format %d", uint8(p.Format))
	}
	if p.Interp > InterpBicubic {
		return nil, invalidf("resize: unknown interpolation %d", uint8(p.Interp))
	}
	layout, ok := resizeFamilies[p.Format]
	if !ok {
		return nil, failf("resize: %s is not supported", p.Format)
	}
	if p.Format == FormatV210 {
		if p.SrcWidth%pack.V210Align != 0 || p.DstWidth%pack.V210Align != 0 ||
			p.SrcHeight%2 != 0 || p.DstHeight%2 != 0 {
			return nil, failf("resize: v210 %dx%d -> %dx%d needs widths aligned to %d and even heights",
				p.SrcWidth, p.SrcHeight, p.DstWidth, p.DstHeight, pack.V210Align)
		}
	}
	if odd(p.SrcWidth, p.SrcHeight, p.DstWidth, p.DstHeight) {
		return nil, invalidf("resize: %dx%d -> %dx%d must be even", p.SrcWidth, p.SrcHeight, p.DstWidth, p.DstHeight)
	}

	if p.Pitch == 0 {
		p.Pitch = p.DstWidth
	}
	if p.SurfaceHeight == 0 {
		p.SurfaceHeight = p.DstHeight
	}
	if err := checkWindow(p); err != nil {
		return nil, err
	}

	r := &Resize{
		params: p,
		name:   "resize_" + p.Format.String() + "_" + p.Interp.String(),
		layout: layout,
	}
	m := p.Interp.method()
	r.lumaX = interp.Shared(m, p.SrcWidth, p.DstWidth)
	r.lumaY = interp.Shared(m, p.SrcHeight, p.DstHeight)
	r.chromaX = interp.Shared(m, p.SrcWidth/2, p.DstWidth/2)
	if layout == resize420 {
		r.chromaY = interp.Shared(m, p.SrcHeight/2, p.DstHeight/2)
	} else {
		r.chromaY = r.lumaY
	}

	Logger().WithFields(logrus.Fields{
		"op":  r.name,
		"src": [2]int{p.SrcWidth, p.SrcHeight},
		"dst": [2]int{p.DstWidth, p.DstHeight},
		"win": [4]int{p.OffsetX, p.OffsetY, p.Pitch, p.SurfaceHeight},
	}).Debug("vpp: resize kernel selected")
	return r, nil
}

func odd(v ...int) bool {
	for _, n := range v {
		if n%2 != 0 {
			return true
		}
	}
	return false
}

func checkWindow(p ResizeParams) error {
	if p.OffsetX < 0 || p.OffsetY < 0 || odd(p.OffsetX, p.OffsetY, p.Pitch, p.SurfaceHeight) {
		return invalidf("resize: offset (%d,%d) and surface %dx%d must be even and non-negative",
			p.OffsetX, p.OffsetY, p.Pitch, p.SurfaceHeight)
	}
	if p.OffsetX+p.DstWidth > p.Pitch || p.OffsetY+p.DstHeight > p.SurfaceHeight {
		return invalidf("resize: window %dx%d at (%d,%d) exceeds surface %dx%d",
			p.DstWidth, p.DstHeight, p.OffsetX, p.OffsetY, p.Pitch, p.SurfaceHeight)
	}
	if p.Format == FormatV210 && (p.Pitch%pack.V210Align != 0 || p.OffsetX%pack.V210GroupPixels != 0) {
		return invalidf("resize: v210 pitch %d must be aligned to %d and offset %d to %d",
			p.Pitch, pack.V210Align, p.OffsetX, pack.V210GroupPixels)
	}
	return nil
}

// Params returns the parameters with defaults applied.
func (r *Resize) Params() ResizeParams { return r.params }

// Weights returns the luma sampling tables for the horizontal and vertical
// axes.
func (r *Resize) Weights() (x, y interp.Axis) { return r.lumaX, r.lumaY }

// Event returns the event of the most recent Run, or nil.
func (r *Resize) Event() *Event { return r.event.Load() }

// Close releases the resize. Later Run calls fail with ErrClosed.
func (r *Resize) Close() error {
	r.closed.Store(true)
	return nil
}

// Run rescales src into the destination window of dst once dep has
// completed.
func (r *Resize) Run(src, dst []byte, dep *Event) (*Event, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	p := r.params
	if n := ImageSize(p.Format, p.SrcWidth, p.SrcHeight); len(src) < n {
		return nil, failf("%s: src is %d bytes, need %d", r.name, len(src), n)
	}
	if n := ImageSize(p.Format, p.Pitch, p.SurfaceHeight); len(dst) < n {
		return nil, failf("%s: dst is %d bytes, need %d", r.name, len(dst), n)
	}

	var (
		rows   int
		kernel func(int)
	)
	if r.layout == resize420 {
		s := view420(p.Format, src, p.SrcWidth, p.SrcHeight)
		d := view420(p.Format, dst, p.Pitch, p.SurfaceHeight)
		rows, kernel = p.DstHeight/2, func(row int) { r.rows420(d, s, row) }
	} else {
		s := view422(p.Format, src, p.SrcWidth, p.SrcHeight)
		d := view422(p.Format, dst, p.Pitch, p.SurfaceHeight)
		rows, kernel = p.DstHeight, func(y int) { r.row422(d, s, y) }
	}

	ev, err := p.Device.submit(r.name, dep, p.Async, rows, kernel)
	if ev != nil {
		r.event.Store(ev)
	}
	return ev, err
}

// rows420 fills luma rows 2cy, 2cy+1 and chroma row cy of the window.
func (r *Resize) rows420(dst, src pack.Frame420, cy int) {
	p := &r.params
	maxv := src.Max()
	for y := 2 * cy; y < 2*cy+2; y++ {
		yi, yw := r.lumaY.At(y)
		for x := 0; x < p.DstWidth; x++ {
			xi, xw := r.lumaX.At(x)
			dst.Y.Set(p.OffsetX+x, p.OffsetY+y, quantize(sample(src.Y, xi, xw, yi, yw), maxv))
		}
	}

	yi, yw := r.chromaY.At(cy)
	ox, oy := p.OffsetX/2, p.OffsetY/2
	for cx := 0; cx < p.DstWidth/2; cx++ {
		xi, xw := r.chromaX.At(cx)
		dst.U.Set(ox+cx, oy+cy, quantize(sample(src.U, xi, xw, yi, yw), maxv))
		dst.V.Set(ox+cx, oy+cy, quantize(sample(src.V, xi, xw, yi, yw), maxv))
	}
}

// row422 fills row y of the window. Chroma shares the luma vertical taps.
func (r *Resize) row422(dst, src pack.View422, y int) {
	p := &r.params
	yi, yw := r.lumaY.At(y)
	dy := p.OffsetY + y
	for x := 0; x < p.DstWidth; x++ {
		xi, xw := r.lumaX.At(x)
		dst.SetLuma(p.OffsetX+x, dy, quantize(sample(lumaPlane{src}, xi, xw, yi, yw), pack.Mask10))
	}

	ox := p.OffsetX / 2
	for cx := 0; cx < p.DstWidth/2; cx++ {
		xi, xw := r.chromaX.At(cx)
		dst.SetCb(ox+cx, dy, quantize(sample(cbPlane{src}, xi, xw, yi, yw), pack.Mask10))
		dst.SetCr(ox+cx, dy, quantize(sample(crPlane{src}, xi, xw, yi, yw), pack.Mask10))
	}
}

// sampler reads one component of a frame.
type sampler interface {
	At(x, y int) uint16
}

type lumaPlane struct{ v pack.View422 }
type cbPlane struct{ v pack.View422 }
type crPlane struct{ v pack.View422 }

func (p lumaPlane) At(x, y int) uint16 { return p.v.Luma(x, y) }
func (p cbPlane) At(x, y int) uint16   { return p.v.Cb(x, y) }
func (p crPlane) At(x, y int) uint16   { return p.v.Cr(x, y) }

// sample evaluates one separable tap set: each vertical tap accumulates its
// horizontal taps first.
func sample(s sampler, xi []int32, xw []float32, yi []int32, yw []float32) float32 {
	var v float32
	for i, sy := range yi {
		var col float32
		for j, sx := range xi {
			col += float32(s.At(int(sx), int(sy))) * xw[j]
		}
		v += col * yw[i]
	}
	return v
}

// quantize rounds to nearest and clamps to [0, maxv].
func quantize(v float32, maxv uint16) uint16 {
	v += 0.5
	if v <= 0 {
		return 0
	}
	if v >= float32(maxv) {
		return maxv
	}
	return uint16(v)
}
