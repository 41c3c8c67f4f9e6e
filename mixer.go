package vpp

import (
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp/internal/blend"
	"github.com/gogpu/vpp/internal/pack"
)

// Layer limits of a mixer, base layer included.
const (
	MinMixerLayers = 2
	MaxMixerLayers = 20
)

// MixerField is one layer of a Mixer. Field 0 is the base frame every other
// field is drawn onto; its crop, offset and alpha settings are ignored.
type MixerField struct {
	Buffer []byte
	Width  int
	Height int

	// Crop selects the source rectangle. Zero CropW or CropH extends the
	// crop to the right or bottom edge.
	CropX, CropY int
	CropW, CropH int

	// OffsetX and OffsetY place the crop on the base frame.
	OffsetX, OffsetY int

	// Blend selects alpha blending; otherwise the crop is copied.
	// With a nil AlphaSurface, Alpha is applied to every sample. Otherwise
	// AlphaSurface is an 8-bit plane indexed from the crop origin with a row
	// stride of Width. 4:2:0 chroma sample (cx, cy) of the crop reads byte
	// (cy/2)*(Width/2) + cx/2.
	Blend        bool
	Alpha        uint8
	AlphaSurface []byte

	// Dep is the event this field waits for before it is drawn.
	Dep *Event
}

// Rect returns the destination rectangle of the field on the base frame.
func (f MixerField) Rect() image.Rectangle {
	return image.Rect(f.OffsetX, f.OffsetY, f.OffsetX+f.CropW, f.OffsetY+f.CropH)
}

// MixerParams configures a Mixer.
type MixerParams struct {
	Device *Device
	Async  bool
	Format Format
	Fields []MixerField
}

// MixMode is the per-field drawing mode resolved at construction.
type MixMode uint8

const (
	// MixCompose copies the crop onto the base frame.
	MixCompose MixMode = iota

	// MixStaticAlpha blends the crop with one alpha for every sample.
	MixStaticAlpha

	// MixPerPixelAlpha blends the crop with alpha read from the field's
	// alpha surface.
	MixPerPixelAlpha
)

// String returns the mode name.
func (m MixMode) String() string {
	switch m {
	case MixCompose:
		return "composition"
	case MixStaticAlpha:
		return "alphablend_static"
	case MixPerPixelAlpha:
		return "alphablend_surface"
	default:
		return fmt.Sprintf("MixMode(%d)", uint8(m))
	}
}

var mixerFormats = map[Format]bool{
	FormatI420:        true,
	FormatV210:        true,
	FormatYUV420P10LE: true,
}

// Mixer composites or blends fields 1..n-1 onto field 0.
//
// Run must not be called concurrently on the same Mixer.
type Mixer struct {
	params MixerParams
	modes  []MixMode
	names  []string

	// overlaps[i] lists the earlier fields whose rectangles intersect
	// field i.
	overlaps [][]int

	mu     sync.Mutex
	events []*Event
	closed bool
}

// NewMixer validates p and resolves each field's kernel.
//
// All violations return ErrInvalidParams: layer count outside [2, 20], an
// unsupported format, odd sizes, offsets or crops, crops outside the field,
// V210 geometry not aligned to 48 pixels (6 for crops), and short alpha
// surfaces.
func NewMixer(p MixerParams) (*Mixer, error) {
	if p.Device == nil {
		return nil, invalidf("mixer: nil device")
	}
	n := len(p.Fields)
	if n < MinMixerLayers || n > MaxMixerLayers {
		return nil, invalidf("mixer: %d layers, want %d..%d", n, MinMixerLayers, MaxMixerLayers)
	}
	if !mixerFormats[p.Format] {
		return nil, invalidf("mixer: %s is not supported", p.Format)
	}

	fields := make([]MixerField, n)
	copy(fields, p.Fields)
	p.Fields = fields

	m := &Mixer{
		params:   p,
		modes:    make([]MixMode, n),
		names:    make([]string, n),
		overlaps: make([][]int, n),
		events:   make([]*Event, n),
	}
	for i := range fields {
		f := &fields[i]
		if err := validateField(p.Format, i, f); err != nil {
			return nil, err
		}
		if i == 0 {
			continue
		}
		switch {
		case !f.Blend:
			m.modes[i] = MixCompose
		case f.AlphaSurface == nil:
			m.modes[i] = MixStaticAlpha
		default:
			m.modes[i] = MixPerPixelAlpha
		}
		m.names[i] = m.modes[i].String() + "_" + p.Format.String()

		r := f.Rect()
		for j := 1; j < i; j++ {
			if r.Overlaps(fields[j].Rect()) {
				m.overlaps[i] = append(m.overlaps[i], j)
			}
		}
	}

	Logger().WithFields(logrus.Fields{
		"format": p.Format,
		"layers": n,
	}).Debug("vpp: mixer created")
	return m, nil
}

func validateField(format Format, i int, f *MixerField) error {
	if f.Width <= 0 || f.Height <= 0 || odd(f.Width, f.Height) {
		return invalidf("mixer: field %d size %dx%d must be positive and even", i, f.Width, f.Height)
	}
	if format == FormatV210 && f.Width%pack.V210Align != 0 {
		return invalidf("mixer: field %d v210 width %d is not a multiple of %d", i, f.Width, pack.V210Align)
	}
	if i == 0 {
		return nil
	}

	if f.CropW == 0 {
		f.CropW = f.Width - f.CropX
	}
	if f.CropH == 0 {
		f.CropH = f.Height - f.CropY
	}
	if f.OffsetX < 0 || f.OffsetY < 0 || odd(f.OffsetX, f.OffsetY) {
		return invalidf("mixer: field %d offset (%d,%d) must be even and non-negative", i, f.OffsetX, f.OffsetY)
	}
	if f.CropX < 0 || f.CropY < 0 || f.CropW <= 0 || f.CropH <= 0 ||
		f.CropX+f.CropW > f.Width || f.CropY+f.CropH > f.Height {
		return invalidf("mixer: field %d crop %dx%d at (%d,%d) is outside %dx%d",
			i, f.CropW, f.CropH, f.CropX, f.CropY, f.Width, f.Height)
	}
	if odd(f.CropX, f.CropY, f.CropW, f.CropH) {
		return invalidf("mixer: field %d crop %dx%d at (%d,%d) must be even", i, f.CropW, f.CropH, f.CropX, f.CropY)
	}
	if format == FormatV210 {
		if f.OffsetX%pack.V210Align != 0 {
			return invalidf("mixer: field %d v210 offset %d is not a multiple of %d", i, f.OffsetX, pack.V210Align)
		}
		if f.CropX%pack.V210GroupPixels != 0 || f.CropW%pack.V210GroupPixels != 0 {
			return invalidf("mixer: field %d v210 crop x %d width %d must be multiples of %d",
				i, f.CropX, f.CropW, pack.V210GroupPixels)
		}
	}
	if f.Blend && f.AlphaSurface != nil && len(f.AlphaSurface) < f.Width*f.Height {
		return invalidf("mixer: field %d alpha surface is %d bytes, need %d", i, len(f.AlphaSurface), f.Width*f.Height)
	}
	return nil
}

// Params returns the parameters with crop defaults applied.
func (m *Mixer) Params() MixerParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.params
	p.Fields = append([]MixerField(nil), m.params.Fields...)
	return p
}

// Mode returns the drawing mode of field i (i >= 1).
func (m *Mixer) Mode(i int) MixMode { return m.modes[i] }

// FieldEvent returns the event of field i from the most recent Run, or nil
// if the field was skipped or has not run.
func (m *Mixer) FieldEvent(i int) *Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[i]
}

// Close releases the mixer. Later Run calls fail with ErrClosed.
func (m *Mixer) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Run draws fields 1..n-1 onto field 0 in index order.
//
// Non-nil entries of buffers replace the corresponding field buffers and
// non-nil entries of deps replace their dependencies before drawing. A field
// whose crop does not fit the base frame at its offset is skipped with a
// warning. If a dispatch fails, Run stops and returns the error; later
// fields are not drawn.
//
// The returned slice holds one event per field; entry 0 and skipped fields
// are nil.
func (m *Mixer) Run(buffers [][]byte, deps []*Event) ([]*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	p := &m.params
	fields := p.Fields
	for i := range fields {
		if i < len(buffers) && buffers[i] != nil {
			fields[i].Buffer = buffers[i]
		}
		if i < len(deps) && deps[i] != nil {
			fields[i].Dep = deps[i]
		}
	}
	for i := range m.events {
		m.events[i] = nil
	}

	base := &fields[0]
	if n := ImageSize(p.Format, base.Width, base.Height); len(base.Buffer) < n {
		return nil, failf("mixer: base buffer is %d bytes, need %d", len(base.Buffer), n)
	}

	out := make([]*Event, len(fields))
	for i := 1; i < len(fields); i++ {
		f := &fields[i]
		if f.CropW+f.OffsetX > base.Width || f.CropH+f.OffsetY > base.Height {
			Logger().WithFields(logrus.Fields{
				"layer":  i,
				"rect":   f.Rect(),
				"width":  base.Width,
				"height": base.Height,
			}).Warn("vpp: mixer field exceeds base frame, skipped")
			continue
		}
		if n := ImageSize(p.Format, f.Width, f.Height); len(f.Buffer) < n {
			return out, failf("mixer: field %d buffer is %d bytes, need %d", i, len(f.Buffer), n)
		}

		// Every field waits for the base frame and for earlier fields it
		// overlaps.
		after := []*Event{f.Dep, base.Dep}
		for _, j := range m.overlaps[i] {
			after = append(after, out[j])
		}
		dep := joinEvents(m.names[i]+"_deps", p.Device.profiling, after...)

		ev, err := m.dispatchField(i, dep)
		out[i] = ev
		m.events[i] = ev
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (m *Mixer) dispatchField(i int, dep *Event) (*Event, error) {
	p := &m.params
	base, f := &p.Fields[0], &p.Fields[i]
	name := m.names[i]
	mode := m.modes[i]

	var (
		rows   int
		kernel func(int)
	)
	switch p.Format {
	case FormatV210:
		rows, kernel = f.CropH, bindMixV210(base, f, mode)
	default:
		rows, kernel = f.CropH/2, bindMix420(p.Format, base, f, mode)
	}

	if p.Format == FormatI420 && mode == MixStaticAlpha {
		if a := p.Device.accelerator(AccelBlend8); a != nil {
			log := Logger().WithFields(logrus.Fields{"op": name, "layer": i, "accelerator": a.Name()})
			b, fc := *base, *f
			return p.Device.submitFunc(name, dep, p.Async, func() error {
				return blendI420GPU(p.Device, a, log, &b, &fc)
			})
		}
	}
	return p.Device.submit(name, dep, p.Async, rows, kernel)
}

// span addresses n samples at (sx, sy) of a source plane and (dx, dy) of a
// destination plane.
type span struct {
	dx, dy int
	sx, sy int
	n      int
}

// bindMix420 returns a kernel over crop row pairs: row r draws luma rows
// 2r, 2r+1 and chroma row r.
func bindMix420(format Format, base, f *MixerField, mode MixMode) func(int) {
	d := view420(format, base.Buffer, base.Width, base.Height)
	s := view420(format, f.Buffer, f.Width, f.Height)
	alpha := pack.Plane8{Data: f.AlphaSurface, Stride: f.Width}
	chromaAlpha := pack.Plane8{Data: f.AlphaSurface, Stride: f.Width / 2}
	a := f.Alpha

	return func(r int) {
		for dy := 0; dy < 2; dy++ {
			y := 2*r + dy
			sp := span{dx: f.OffsetX, dy: f.OffsetY + y, sx: f.CropX, sy: f.CropY + y, n: f.CropW}
			switch mode {
			case MixCompose:
				composeSpan(d.Y, s.Y, sp)
			case MixStaticAlpha:
				blendSpan(d.Y, s.Y, sp, a)
			case MixPerPixelAlpha:
				blendSpanAlpha(d.Y, s.Y, sp, alpha, y, 0)
			}
		}

		sp := span{dx: f.OffsetX / 2, dy: f.OffsetY/2 + r, sx: f.CropX / 2, sy: f.CropY/2 + r, n: f.CropW / 2}
		for _, pl := range [2][2]pack.Plane{{d.U, s.U}, {d.V, s.V}} {
			switch mode {
			case MixCompose:
				composeSpan(pl[0], pl[1], sp)
			case MixStaticAlpha:
				blendSpan(pl[0], pl[1], sp, a)
			case MixPerPixelAlpha:
				// Quarter-resolution lookup into a half-width plane.
				blendSpanAlpha(pl[0], pl[1], sp, chromaAlpha, r>>1, 1)
			}
		}
	}
}

func composeSpan(dst, src pack.Plane, s span) {
	if db, ok := dst.(pack.RowBytes); ok {
		if sb, ok := src.(pack.RowBytes); ok {
			copy(db.Bytes(s.dx, s.dy, s.n), sb.Bytes(s.sx, s.sy, s.n))
			return
		}
	}
	for i := 0; i < s.n; i++ {
		dst.Set(s.dx+i, s.dy, src.At(s.sx+i, s.sy))
	}
}

func blendSpan(dst, src pack.Plane, s span, a uint8) {
	if d8, ok := dst.(pack.Plane8); ok {
		if s8, ok := src.(pack.Plane8); ok {
			blend.Row8(d8.Bytes(s.dx, s.dy, s.n), s8.Bytes(s.sx, s.sy, s.n), a)
			return
		}
	}
	if d16, ok := dst.(pack.Plane16); ok {
		if s16, ok := src.(pack.Plane16); ok {
			blend.Row16(d16.Bytes(s.dx, s.dy, s.n), s16.Bytes(s.sx, s.sy, s.n), a)
			return
		}
	}
	for i := 0; i < s.n; i++ {
		dst.Set(s.dx+i, s.dy, blend.Mix(dst.At(s.dx+i, s.dy), src.At(s.sx+i, s.sy), a))
	}
}

// blendSpanAlpha blends sample i with the alpha at (i>>shift, ay) of the
// crop-relative alpha plane.
func blendSpanAlpha(dst, src pack.Plane, s span, alpha pack.Plane8, ay int, shift uint) {
	if shift == 0 {
		if d8, ok := dst.(pack.Plane8); ok {
			if s8, ok := src.(pack.Plane8); ok {
				blend.RowAlpha8(d8.Bytes(s.dx, s.dy, s.n), s8.Bytes(s.sx, s.sy, s.n), alpha.Bytes(0, ay, s.n))
				return
			}
		}
	}
	for i := 0; i < s.n; i++ {
		a := uint8(alpha.At(i>>shift, ay))
		dst.Set(s.dx+i, s.dy, blend.Mix(dst.At(s.dx+i, s.dy), src.At(s.sx+i, s.sy), a))
	}
}

// bindMixV210 returns a kernel over crop rows. Composition copies whole
// word groups; blending works on the 10-bit fields of each word.
func bindMixV210(base, f *MixerField, mode MixMode) func(int) {
	d := pack.V210(base.Buffer, base.Width, base.Height)
	s := pack.V210(f.Buffer, f.Width, f.Height)
	alpha := pack.Plane8{Data: f.AlphaSurface, Stride: f.Width}

	words := f.CropW * 2 / 3
	dw, sw := f.OffsetX*2/3, f.CropX*2/3

	return func(y int) {
		ty, sy := f.OffsetY+y, f.CropY+y
		if mode == MixCompose {
			copy(d.RowBytes(dw, ty, words), s.RowBytes(sw, sy, words))
			return
		}

		alphaAt := func(x int) uint8 {
			if mode == MixStaticAlpha {
				return f.Alpha
			}
			return uint8(alpha.At(x, y))
		}
		for x := 0; x < f.CropW; x++ {
			dx, sx := f.OffsetX+x, f.CropX+x
			d.SetLuma(dx, ty, blend.Mix(d.Luma(dx, ty), s.Luma(sx, sy), alphaAt(x)))
		}
		for k := 0; k < f.CropW/2; k++ {
			// Chroma pair k takes the alpha of its even pixel.
			a := alphaAt(2 * k)
			dc, sc := f.OffsetX/2+k, f.CropX/2+k
			d.SetCb(dc, ty, blend.Mix(d.Cb(dc, ty), s.Cb(sc, sy), a))
			d.SetCr(dc, ty, blend.Mix(d.Cr(dc, ty), s.Cr(sc, sy), a))
		}
	}
}

// blendI420GPU offers the three planes of a static-alpha I420 blend to the
// accelerator. A declined plane is blended on the worker pool instead.
func blendI420GPU(d *Device, a GPUAccelerator, log logrus.FieldLogger, base, f *MixerField) error {
	bw, bh := base.Width, base.Height
	fw, fh := f.Width, f.Height
	planes := [3]struct {
		dstOff, dstStride int
		srcOff, srcStride int
		w, h              int
	}{
		{
			dstOff: f.OffsetY*bw + f.OffsetX, dstStride: bw,
			srcOff: f.CropY*fw + f.CropX, srcStride: fw,
			w: f.CropW, h: f.CropH,
		},
		{
			dstOff: bw*bh + f.OffsetY/2*(bw/2) + f.OffsetX/2, dstStride: bw / 2,
			srcOff: fw*fh + f.CropY/2*(fw/2) + f.CropX/2, srcStride: fw / 2,
			w: f.CropW / 2, h: f.CropH / 2,
		},
		{
			dstOff: bw*bh*5/4 + f.OffsetY/2*(bw/2) + f.OffsetX/2, dstStride: bw / 2,
			srcOff: fw*fh*5/4 + f.CropY/2*(fw/2) + f.CropX/2, srcStride: fw / 2,
			w: f.CropW / 2, h: f.CropH / 2,
		},
	}
	for _, pl := range planes {
		job := BlendJob{
			Dst: base.Buffer[pl.dstOff:], DstStride: pl.dstStride,
			Src: f.Buffer[pl.srcOff:], SrcStride: pl.srcStride,
			Width: pl.w, Height: pl.h,
			Alpha: f.Alpha,
		}
		err := a.Blend(job)
		if err == nil {
			continue
		}
		log.WithError(err).Warn("vpp: accelerator declined plane, running on CPU")
		if err := blendJobCPU(d, job); err != nil {
			return err
		}
	}
	return nil
}

// blendJobCPU runs a BlendJob on the worker pool.
func blendJobCPU(d *Device, job BlendJob) error {
	return d.pool.For(job.Height, func(y int) {
		dst := job.Dst[y*job.DstStride : y*job.DstStride+job.Width]
		src := job.Src[y*job.SrcStride : y*job.SrcStride+job.Width]
		blend.Row8(dst, src, job.Alpha)
	})
}
