package vpp

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp/internal/pack"
)

// CSCParams configures a pixel-format conversion.
type CSCParams struct {
	Device *Device

	// Async makes Run return without waiting for the kernel.
	Async bool

	InFormat  Format
	OutFormat Format
	Width     int
	Height    int
}

// CSC converts frames between two pixel formats.
type CSC struct {
	params CSCParams
	kernel *cscKernel
	event  atomic.Pointer[Event]
	closed atomic.Bool
}

type cscPair struct {
	in, out Format
}

type cscShape uint8

const (
	// shapeRepack422 copies every sample between two 4:2:2 layouts, one
	// grid row per frame row.
	shapeRepack422 cscShape = iota

	// shapeUp420 expands 4:2:0 chroma to 4:2:2, one grid row per row pair.
	shapeUp420

	// shapeDown420 reduces 4:2:2 chroma to 4:2:0, one grid row per row pair.
	shapeDown420
)

type cscKernel struct {
	index int
	name  string
	pair  cscPair
	shape cscShape

	// average selects (top+bottom)/2 chroma for shapeDown420; otherwise the
	// top row is taken.
	average bool
}

// cscTable lists the supported conversions in function-table order.
var cscTable = []cscKernel{
	{pair: cscPair{FormatY210, FormatV210}},
	{pair: cscPair{FormatV210, FormatY210}},
	{pair: cscPair{FormatYUV422P10LE, FormatV210}},
	{pair: cscPair{FormatV210, FormatYUV422P10LE}},
	{pair: cscPair{FormatYUV422P10LE, FormatY210}},
	{pair: cscPair{FormatY210, FormatYUV422P10LE}},
	{pair: cscPair{FormatNV12, FormatYUV422YCbCr10BE}, shape: shapeUp420},
	{pair: cscPair{FormatYUV422YCbCr10BE, FormatNV12}, shape: shapeDown420},
	{pair: cscPair{FormatYUV422YCbCr10BE, FormatV210}},
	{pair: cscPair{FormatV210, FormatYUV422YCbCr10BE}},
	{pair: cscPair{FormatYUV422YCbCr10BE, FormatY210}},
	{pair: cscPair{FormatY210, FormatYUV422YCbCr10BE}},
	{pair: cscPair{FormatYUV422YCbCr10BE, FormatYUV422P10LE}},
	{pair: cscPair{FormatYUV422YCbCr10BE, FormatYUV420P10LE}, shape: shapeDown420, average: true},
	{pair: cscPair{FormatYUV422YCbCr10BE, FormatI420}, shape: shapeDown420, average: true},
	{pair: cscPair{FormatYUV422YCbCr10BE, FormatP010}, shape: shapeDown420, average: true},
	{pair: cscPair{FormatYUV422P10LE, FormatYUV422YCbCr10BE}},
	{pair: cscPair{FormatYUV422YCbCr10LE, FormatV210}},
	{pair: cscPair{FormatV210, FormatYUV422YCbCr10LE}},
	{pair: cscPair{FormatYUV422YCbCr10LE, FormatY210}},
	{pair: cscPair{FormatY210, FormatYUV422YCbCr10LE}},
}

var cscIndex = func() map[cscPair]*cscKernel {
	m := make(map[cscPair]*cscKernel, len(cscTable))
	for i := range cscTable {
		k := &cscTable[i]
		k.index = i + 1
		k.name = "csc_" + k.pair.in.String() + "_to_" + k.pair.out.String()
		m[k.pair] = k
	}
	return m
}()

// SupportedCSC reports whether a conversion from in to out exists.
func SupportedCSC(in, out Format) bool {
	_, ok := cscIndex[cscPair{in, out}]
	return ok
}

// CSCPairs returns the supported (in, out) pairs in function-table order.
func CSCPairs() [][2]Format {
	out := make([][2]Format, len(cscTable))
	for i, k := range cscTable {
		out[i] = [2]Format{k.pair.in, k.pair.out}
	}
	return out
}

// NewCSC validates p and resolves the conversion kernel.
//
// It returns ErrInvalidParams for unsupported pairs, non-positive or odd
// dimensions, and V210 frames whose width is not a multiple of 48.
func NewCSC(p CSCParams) (*CSC, error) {
	if p.Device == nil {
		return nil, invalidf("csc: nil device")
	}
	k, ok := cscIndex[cscPair{p.InFormat, p.OutFormat}]
	if !ok {
		return nil, invalidf("csc: unsupported conversion %s -> %s", p.InFormat, p.OutFormat)
	}
	if p.Width <= 0 || p.Height <= 0 || p.Width%2 != 0 || p.Height%2 != 0 {
		return nil, invalidf("csc: %dx%d must be positive and even", p.Width, p.Height)
	}
	if (p.InFormat == FormatV210 || p.OutFormat == FormatV210) && p.Width%pack.V210Align != 0 {
		return nil, invalidf("csc: v210 width %d is not a multiple of %d", p.Width, pack.V210Align)
	}

	Logger().WithFields(logrus.Fields{
		"op":     k.name,
		"index":  k.index,
		"width":  p.Width,
		"height": p.Height,
	}).Debug("vpp: csc kernel selected")

	return &CSC{params: p, kernel: k}, nil
}

// Params returns the parameters the conversion was created with.
func (c *CSC) Params() CSCParams { return c.params }

// Kernel returns the name of the resolved kernel.
func (c *CSC) Kernel() string { return c.kernel.name }

// Event returns the event of the most recent Run, or nil.
func (c *CSC) Event() *Event { return c.event.Load() }

// Close releases the conversion. Later Run calls fail with ErrClosed.
func (c *CSC) Close() error {
	c.closed.Store(true)
	return nil
}

// Run converts src into dst once dep has completed.
func (c *CSC) Run(src, dst []byte, dep *Event) (*Event, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	p := c.params
	if n := ImageSize(p.InFormat, p.Width, p.Height); len(src) < n {
		return nil, failf("%s: src is %d bytes, need %d", c.kernel.name, len(src), n)
	}
	if n := ImageSize(p.OutFormat, p.Width, p.Height); len(dst) < n {
		return nil, failf("%s: dst is %d bytes, need %d", c.kernel.name, len(dst), n)
	}

	rows, kernel := c.kernel.bind(src, dst, p.Width, p.Height)
	ev, err := p.Device.submit(c.kernel.name, dep, p.Async, rows, kernel)
	if ev != nil {
		c.event.Store(ev)
	}
	return ev, err
}

// bind builds the row kernel over concrete buffers.
func (k *cscKernel) bind(src, dst []byte, w, h int) (int, func(row int)) {
	in, out := k.pair.in, k.pair.out
	switch k.shape {
	case shapeUp420:
		s := view420(in, src, w, h)
		d := view422(out, dst, w, h)
		return h / 2, func(r int) { up420(d, s, r, w) }
	case shapeDown420:
		s := view422(in, src, w, h)
		d := view420(out, dst, w, h)
		return h / 2, func(r int) { down420(d, s, r, w, k.average) }
	default:
		s := view422(in, src, w, h)
		d := view422(out, dst, w, h)
		return h, func(y int) { repack422(d, s, y, w) }
	}
}

func repack422(dst, src pack.View422, y, w int) {
	for x := 0; x < w; x++ {
		dst.SetLuma(x, y, src.Luma(x, y))
	}
	for cx := 0; cx < w/2; cx++ {
		dst.SetCb(cx, y, src.Cb(cx, y))
		dst.SetCr(cx, y, src.Cr(cx, y))
	}
}

// up420 writes rows 2r and 2r+1 of a 10-bit 4:2:2 frame. Both rows reuse
// chroma row r.
func up420(dst pack.View422, src pack.Frame420, r, w int) {
	shift := 10 - src.Depth
	for dy := 0; dy < 2; dy++ {
		y := 2*r + dy
		for x := 0; x < w; x++ {
			dst.SetLuma(x, y, src.Y.At(x, y)<<shift)
		}
		for cx := 0; cx < w/2; cx++ {
			dst.SetCb(cx, y, src.U.At(cx, r)<<shift)
			dst.SetCr(cx, y, src.V.At(cx, r)<<shift)
		}
	}
}

// down420 writes luma rows 2r, 2r+1 and chroma row r of a 4:2:0 frame.
// Averaged chroma uses truncating integer division.
func down420(dst pack.Frame420, src pack.View422, r, w int, average bool) {
	shift := 10 - dst.Depth
	top, bot := 2*r, 2*r+1
	for x := 0; x < w; x++ {
		dst.Y.Set(x, top, src.Luma(x, top)>>shift)
		dst.Y.Set(x, bot, src.Luma(x, bot)>>shift)
	}
	for cx := 0; cx < w/2; cx++ {
		cb, cr := src.Cb(cx, top), src.Cr(cx, top)
		if average {
			cb = (cb + src.Cb(cx, bot)) / 2
			cr = (cr + src.Cr(cx, bot)) / 2
		}
		dst.U.Set(cx, r, cb>>shift)
		dst.V.Set(cx, r, cr>>shift)
	}
}
