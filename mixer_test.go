package vpp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/vpp/internal/blend"
)

func newMixer(t *testing.T, p MixerParams) *Mixer {
	t.Helper()
	m, err := NewMixer(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMixerStaticAlphaScenario(t *testing.T) {
	d := newTestDevice(t)
	const bw, bh, fw, fh = 1920, 1080, 960, 540
	const ox, oy = 480, 270

	base := testFrame(t, FormatI420, bw, bh, 1)
	orig := append([]byte(nil), base...)
	field := testFrame(t, FormatI420, fw, fh, 2)

	m := newMixer(t, MixerParams{
		Device: d,
		Format: FormatI420,
		Fields: []MixerField{
			{Buffer: base, Width: bw, Height: bh},
			{Buffer: field, Width: fw, Height: fh, OffsetX: ox, OffsetY: oy, Blend: true, Alpha: 128},
		},
	})
	assert.Equal(t, MixStaticAlpha, m.Mode(1))

	events, err := m.Run(nil, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Nil(t, events[0])
	assert.Same(t, events[1], m.FieldEvent(1))

	dv := view420(FormatI420, base, bw, bh)
	ov := view420(FormatI420, orig, bw, bh)
	sv := view420(FormatI420, field, fw, fh)
	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			want := ov.Y.At(x, y)
			if x >= ox && x < ox+fw && y >= oy && y < oy+fh {
				want = (want + sv.Y.At(x-ox, y-oy)) >> 1
			}
			if dv.Y.At(x, y) != want {
				t.Fatalf("luma %d,%d = %d, want %d", x, y, dv.Y.At(x, y), want)
			}
		}
	}
	for cy := 0; cy < bh/2; cy++ {
		for cx := 0; cx < bw/2; cx++ {
			want := ov.V.At(cx, cy)
			if cx >= ox/2 && cx < (ox+fw)/2 && cy >= oy/2 && cy < (oy+fh)/2 {
				want = (want + sv.V.At(cx-ox/2, cy-oy/2)) >> 1
			}
			if dv.V.At(cx, cy) != want {
				t.Fatalf("cr %d,%d = %d, want %d", cx, cy, dv.V.At(cx, cy), want)
			}
		}
	}
}

func TestMixerAlphaBoundaries(t *testing.T) {
	d := newTestDevice(t)
	const w, h = 8, 8

	for _, f := range []Format{FormatI420, FormatYUV420P10LE} {
		t.Run(f.String(), func(t *testing.T) {
			src := testFrame(t, f, w, h, 3)

			base := testFrame(t, f, w, h, 4)
			orig := append([]byte(nil), base...)
			m := newMixer(t, MixerParams{Device: d, Format: f, Fields: []MixerField{
				{Buffer: base, Width: w, Height: h},
				{Buffer: src, Width: w, Height: h, Blend: true, Alpha: 0},
			}})
			_, err := m.Run(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, orig, base, "alpha 0 leaves the base unchanged")

			m = newMixer(t, MixerParams{Device: d, Format: f, Fields: []MixerField{
				{Buffer: base, Width: w, Height: h},
				{Buffer: src, Width: w, Height: h, Blend: true, Alpha: 255},
			}})
			_, err = m.Run(nil, nil)
			require.NoError(t, err)

			dv, sv := view420(f, base, w, h), view420(f, src, w, h)
			maxDiff := int(dv.Max()) / 256
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					diff := int(sv.Y.At(x, y)) - int(dv.Y.At(x, y))
					assert.LessOrEqual(t, diff, maxDiff+1, "luma %d,%d", x, y)
					assert.GreaterOrEqual(t, diff, -maxDiff-1, "luma %d,%d", x, y)
				}
			}
		})
	}
}

func TestMixerStaticAlpha10Bit(t *testing.T) {
	d := newTestDevice(t)
	const bw, bh, fw, fh = 16, 8, 8, 4
	f := FormatYUV420P10LE

	base := testFrame(t, f, bw, bh, 30)
	orig := append([]byte(nil), base...)
	src := testFrame(t, f, fw, fh, 31)

	m := newMixer(t, MixerParams{Device: d, Format: f, Fields: []MixerField{
		{Buffer: base, Width: bw, Height: bh},
		{Buffer: src, Width: fw, Height: fh, OffsetX: 4, OffsetY: 2, Blend: true, Alpha: 77},
	}})
	_, err := m.Run(nil, nil)
	require.NoError(t, err)

	dv, ov, sv := view420(f, base, bw, bh), view420(f, orig, bw, bh), view420(f, src, fw, fh)
	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			want := ov.Y.At(x, y)
			if x >= 4 && x < 12 && y >= 2 && y < 6 {
				want = blend.Mix(want, sv.Y.At(x-4, y-2), 77)
			}
			assert.Equal(t, want, dv.Y.At(x, y), "luma %d,%d", x, y)
		}
	}
	for cy := 0; cy < bh/2; cy++ {
		for cx := 0; cx < bw/2; cx++ {
			want := ov.V.At(cx, cy)
			if cx >= 2 && cx < 6 && cy >= 1 && cy < 3 {
				want = blend.Mix(want, sv.V.At(cx-2, cy-1), 77)
			}
			assert.Equal(t, want, dv.V.At(cx, cy), "cr %d,%d", cx, cy)
		}
	}
}

func TestMixerCompose(t *testing.T) {
	d := newTestDevice(t)
	const bw, bh = 16, 8

	base := make([]byte, ImageSize(FormatYUV420P10LE, bw, bh))
	src := testFrame(t, FormatYUV420P10LE, 8, 8, 5)

	m := newMixer(t, MixerParams{Device: d, Format: FormatYUV420P10LE, Fields: []MixerField{
		{Buffer: base, Width: bw, Height: bh},
		{Buffer: src, Width: 8, Height: 8, CropX: 2, CropY: 2, CropW: 4, CropH: 4, OffsetX: 10, OffsetY: 4},
	}})
	assert.Equal(t, MixCompose, m.Mode(1))
	f := m.Params().Fields[1]
	assert.Equal(t, 4, f.CropW)

	_, err := m.Run(nil, nil)
	require.NoError(t, err)

	dv := view420(FormatYUV420P10LE, base, bw, bh)
	sv := view420(FormatYUV420P10LE, src, 8, 8)
	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			var want uint16
			if x >= 10 && x < 14 && y >= 4 && y < 8 {
				want = sv.Y.At(x-10+2, y-4+2)
			}
			assert.Equal(t, want, dv.Y.At(x, y), "luma %d,%d", x, y)
		}
	}
	for cy := 0; cy < bh/2; cy++ {
		for cx := 0; cx < bw/2; cx++ {
			var want uint16
			if cx >= 5 && cx < 7 && cy >= 2 {
				want = sv.U.At(cx-5+1, cy-2+1)
			}
			assert.Equal(t, want, dv.U.At(cx, cy), "cb %d,%d", cx, cy)
		}
	}
}

func TestMixerCropDefaults(t *testing.T) {
	d := newTestDevice(t)
	m := newMixer(t, MixerParams{Device: d, Format: FormatI420, Fields: []MixerField{
		{Buffer: make([]byte, 96), Width: 8, Height: 8},
		{Buffer: make([]byte, 96), Width: 8, Height: 8, CropX: 2, CropY: 4},
	}})
	f := m.Params().Fields[1]
	assert.Equal(t, 6, f.CropW)
	assert.Equal(t, 4, f.CropH)
	assert.Equal(t, 6, f.Rect().Dx())
}

func TestMixerSkipsOutOfBounds(t *testing.T) {
	d := newTestDevice(t)
	const w, h = 8, 8
	base := testFrame(t, FormatI420, w, h, 6)
	orig := append([]byte(nil), base...)
	src := testFrame(t, FormatI420, 4, 4, 7)

	m := newMixer(t, MixerParams{Device: d, Format: FormatI420, Fields: []MixerField{
		{Buffer: base, Width: w, Height: h},
		{Buffer: src, Width: 4, Height: 4, OffsetX: 6},
		{Buffer: src, Width: 4, Height: 4, OffsetY: 6},
	}})

	events, err := m.Run(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, events[1])
	assert.Nil(t, events[2])
	assert.Nil(t, m.FieldEvent(1))
	assert.Equal(t, orig, base)
}

func TestMixerLayerOrder(t *testing.T) {
	d := newTestDevice(t)
	const w, h = 8, 8
	base := make([]byte, ImageSize(FormatI420, w, h))
	first := fillBytes(len(base), 10)
	second := fillBytes(len(base), 200)

	fields := []MixerField{{Buffer: base, Width: w, Height: h}}
	for i := 0; i < 6; i++ {
		buf := first
		if i%2 == 1 {
			buf = second
		}
		fields = append(fields, MixerField{Buffer: buf, Width: w, Height: h})
	}
	m := newMixer(t, MixerParams{Device: d, Async: true, Format: FormatI420, Fields: fields})

	events, err := m.Run(nil, nil)
	require.NoError(t, err)
	require.NoError(t, WaitAll(t.Context(), events...))
	assert.Equal(t, second, base, "the last field is drawn on top")
}

func TestMixerHotSwap(t *testing.T) {
	d := newTestDevice(t)
	const w, h = 4, 4
	base := make([]byte, ImageSize(FormatI420, w, h))
	m := newMixer(t, MixerParams{Device: d, Async: true, Format: FormatI420, Fields: []MixerField{
		{Buffer: base, Width: w, Height: h},
		{Buffer: fillBytes(len(base), 1), Width: w, Height: h},
	}})

	events, err := m.Run(nil, nil)
	require.NoError(t, err)
	require.NoError(t, WaitAll(t.Context(), events...))
	assert.Equal(t, fillBytes(len(base), 1), base)

	next := make([]byte, len(base))
	gate := newEvent("producer", false)
	events, err = m.Run([][]byte{next, fillBytes(len(base), 9)}, []*Event{nil, gate})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	assert.False(t, events[1].Complete(), "field ran before its dependency")

	gate.finish(nil)
	require.NoError(t, events[1].Wait(t.Context()))
	assert.Equal(t, fillBytes(len(base), 9), next)
	assert.Equal(t, fillBytes(len(base), 1), base)
}

func TestMixerV210(t *testing.T) {
	d := newTestDevice(t)
	const bw, bh, fw, fh = 96, 4, 48, 2

	base := testFrame(t, FormatV210, bw, bh, 8)
	orig := append([]byte(nil), base...)
	src := testFrame(t, FormatV210, fw, fh, 9)

	m := newMixer(t, MixerParams{Device: d, Format: FormatV210, Fields: []MixerField{
		{Buffer: base, Width: bw, Height: bh},
		{Buffer: src, Width: fw, Height: fh, CropX: 6, CropW: 12, OffsetX: 48, OffsetY: 2, Blend: true, Alpha: 100},
	}})
	_, err := m.Run(nil, nil)
	require.NoError(t, err)

	dv := view422(FormatV210, base, bw, bh)
	ov := view422(FormatV210, orig, bw, bh)
	sv := view422(FormatV210, src, fw, fh)
	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			want := ov.Luma(x, y)
			if x >= 48 && x < 60 && y >= 2 {
				want = blend.Mix(want, sv.Luma(x-48+6, y-2), 100)
			}
			assert.Equal(t, want, dv.Luma(x, y), "luma %d,%d", x, y)
		}
		for cx := 0; cx < bw/2; cx++ {
			want := ov.Cr(cx, y)
			if cx >= 24 && cx < 30 && y >= 2 {
				want = blend.Mix(want, sv.Cr(cx-24+3, y-2), 100)
			}
			assert.Equal(t, want, dv.Cr(cx, y), "cr %d,%d", cx, y)
		}
	}

	// Composition copies the packed words unchanged.
	m = newMixer(t, MixerParams{Device: d, Format: FormatV210, Fields: []MixerField{
		{Buffer: base, Width: bw, Height: bh},
		{Buffer: src, Width: fw, Height: fh},
	}})
	_, err = m.Run(nil, nil)
	require.NoError(t, err)
	row := fw * 2 / 3 * 4
	for y := 0; y < fh; y++ {
		assert.Equal(t, src[y*row:(y+1)*row], base[y*2*row:y*2*row+row])
	}
}

func TestMixerPerPixelAlpha(t *testing.T) {
	d := newTestDevice(t)
	const w, h = 8, 4

	base := testFrame(t, FormatI420, w, h, 10)
	orig := append([]byte(nil), base...)
	src := testFrame(t, FormatI420, w, h, 11)
	alpha := make([]byte, w*h)
	g := lcg(12)
	for i := range alpha {
		alpha[i] = byte(g.next(255))
	}

	m := newMixer(t, MixerParams{Device: d, Format: FormatI420, Fields: []MixerField{
		{Buffer: base, Width: w, Height: h},
		{Buffer: src, Width: w, Height: h, Blend: true, AlphaSurface: alpha},
	}})
	assert.Equal(t, MixPerPixelAlpha, m.Mode(1))
	_, err := m.Run(nil, nil)
	require.NoError(t, err)

	dv := view420(FormatI420, base, w, h)
	ov := view420(FormatI420, orig, w, h)
	sv := view420(FormatI420, src, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := blend.Mix(ov.Y.At(x, y), sv.Y.At(x, y), alpha[y*w+x])
			assert.Equal(t, want, dv.Y.At(x, y), "luma %d,%d", x, y)
		}
	}
	for cy := 0; cy < h/2; cy++ {
		for cx := 0; cx < w/2; cx++ {
			a := alpha[(cy>>1)*(w/2)+cx>>1]
			assert.Equal(t, blend.Mix(ov.U.At(cx, cy), sv.U.At(cx, cy), a), dv.U.At(cx, cy), "cb %d,%d", cx, cy)
		}
	}
}

func TestMixerPerPixelAlphaCropOrigin(t *testing.T) {
	d := newTestDevice(t)
	const w, h = 16, 16

	base := make([]byte, ImageSize(FormatI420, w, h))
	src := make([]byte, ImageSize(FormatI420, w, h))
	fill420(view420(FormatI420, src, w, h), 200, 200, 200)

	// Opaque only in the top-left 8×8 of the plane, which is the whole crop
	// when the surface is read from the crop origin.
	alpha := make([]byte, w*h)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			alpha[y*w+x] = 255
		}
	}

	m := newMixer(t, MixerParams{Device: d, Format: FormatI420, Fields: []MixerField{
		{Buffer: base, Width: w, Height: h},
		{Buffer: src, Width: w, Height: h, CropX: 4, CropY: 4, CropW: 8, CropH: 8, Blend: true, AlphaSurface: alpha},
	}})
	_, err := m.Run(nil, nil)
	require.NoError(t, err)

	dv := view420(FormatI420, base, w, h)
	for _, p := range [][2]int{{0, 0}, {5, 0}, {5, 5}, {7, 7}} {
		assert.Equal(t, uint16(199), dv.Y.At(p[0], p[1]), "luma %v", p)
	}
	assert.Zero(t, dv.Y.At(8, 0), "outside the crop")

	// Chroma row cy reads alpha row cy/2 of a half-width plane, so rows 0
	// and 1 see byte 0..1 of alpha row 0 and rows 2 and 3 see the start of
	// alpha row 1 (bytes 8..9, zero).
	for cx := 0; cx < 4; cx++ {
		want0 := blend.Mix(0, 200, alpha[cx>>1])
		want2 := blend.Mix(0, 200, alpha[w/2+cx>>1])
		assert.Equal(t, want0, dv.U.At(cx, 0), "cb %d,0", cx)
		assert.Equal(t, want0, dv.V.At(cx, 1), "cr %d,1", cx)
		assert.Equal(t, want2, dv.U.At(cx, 2), "cb %d,2", cx)
	}
	assert.Equal(t, uint16(199), dv.U.At(0, 0))
	assert.Zero(t, dv.U.At(0, 2))
}

func TestMixerV210PerPixelAlphaCropOrigin(t *testing.T) {
	d := newTestDevice(t)
	const bw, bh, fw, fh = 48, 2, 48, 4

	base := testFrame(t, FormatV210, bw, bh, 20)
	orig := append([]byte(nil), base...)
	src := testFrame(t, FormatV210, fw, fh, 21)
	alpha := make([]byte, fw*fh)
	g := lcg(22)
	for i := range alpha {
		alpha[i] = byte(g.next(255))
	}

	m := newMixer(t, MixerParams{Device: d, Format: FormatV210, Fields: []MixerField{
		{Buffer: base, Width: bw, Height: bh},
		{Buffer: src, Width: fw, Height: fh, CropX: 12, CropY: 2, CropW: 12, CropH: 2, Blend: true, AlphaSurface: alpha},
	}})
	_, err := m.Run(nil, nil)
	require.NoError(t, err)

	dv := view422(FormatV210, base, bw, bh)
	ov := view422(FormatV210, orig, bw, bh)
	sv := view422(FormatV210, src, fw, fh)
	for y := 0; y < 2; y++ {
		for x := 0; x < 12; x++ {
			want := blend.Mix(ov.Luma(x, y), sv.Luma(12+x, 2+y), alpha[y*fw+x])
			assert.Equal(t, want, dv.Luma(x, y), "luma %d,%d", x, y)
		}
		for k := 0; k < 6; k++ {
			a := alpha[y*fw+2*k]
			assert.Equal(t, blend.Mix(ov.Cb(k, y), sv.Cb(6+k, 2+y), a), dv.Cb(k, y), "cb %d,%d", k, y)
			assert.Equal(t, blend.Mix(ov.Cr(k, y), sv.Cr(6+k, 2+y), a), dv.Cr(k, y), "cr %d,%d", k, y)
		}
	}
}

func TestNewMixerValidation(t *testing.T) {
	d := newTestDevice(t)
	buf := make([]byte, 4096)
	ok := func() []MixerField {
		return []MixerField{
			{Buffer: buf, Width: 96, Height: 4},
			{Buffer: buf, Width: 48, Height: 4},
		}
	}

	tests := []struct {
		name   string
		format Format
		modify func([]MixerField) []MixerField
	}{
		{"one layer", FormatI420, func(f []MixerField) []MixerField { return f[:1] }},
		{"too many layers", FormatI420, func(f []MixerField) []MixerField {
			for len(f) <= MaxMixerLayers {
				f = append(f, f[1])
			}
			return f
		}},
		{"nv12", FormatNV12, nil},
		{"odd base", FormatI420, func(f []MixerField) []MixerField { f[0].Height = 3; return f }},
		{"odd offset", FormatI420, func(f []MixerField) []MixerField { f[1].OffsetX = 1; return f }},
		{"negative offset", FormatI420, func(f []MixerField) []MixerField { f[1].OffsetY = -2; return f }},
		{"odd crop", FormatI420, func(f []MixerField) []MixerField { f[1].CropW = 3; return f }},
		{"crop outside field", FormatI420, func(f []MixerField) []MixerField { f[1].CropX, f[1].CropW = 8, 48; return f }},
		{"v210 width", FormatV210, func(f []MixerField) []MixerField { f[1].Width = 50; return f }},
		{"v210 offset", FormatV210, func(f []MixerField) []MixerField { f[1].OffsetX = 6; return f }},
		{"v210 crop", FormatV210, func(f []MixerField) []MixerField { f[1].CropX = 2; return f }},
		{"short alpha surface", FormatI420, func(f []MixerField) []MixerField {
			f[1].Blend, f[1].AlphaSurface = true, make([]byte, 10)
			return f
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := ok()
			if tt.modify != nil {
				fields = tt.modify(fields)
			}
			_, err := NewMixer(MixerParams{Device: d, Format: tt.format, Fields: fields})
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}

	_, err := NewMixer(MixerParams{Format: FormatI420, Fields: ok()})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestMixerRunErrors(t *testing.T) {
	d := newTestDevice(t)
	m := newMixer(t, MixerParams{Device: d, Format: FormatI420, Fields: []MixerField{
		{Buffer: make([]byte, 96), Width: 8, Height: 8},
		{Buffer: make([]byte, 24), Width: 4, Height: 4},
	}})

	_, err := m.Run([][]byte{make([]byte, 10)}, nil)
	assert.ErrorIs(t, err, ErrFail)

	_, err = m.Run([][]byte{make([]byte, 96), make([]byte, 10)}, nil)
	assert.ErrorIs(t, err, ErrFail)

	require.NoError(t, m.Close())
	_, err = m.Run(nil, nil)
	assert.ErrorIs(t, err, ErrClosed)
}
