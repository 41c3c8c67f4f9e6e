package vpp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/vpp/internal/pack"
)

func newTestDevice(t *testing.T, opts ...DeviceOption) *Device {
	t.Helper()
	d, err := NewDevice(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// lcg yields a reproducible sample sequence.
type lcg uint32

func (g *lcg) next(max uint16) uint16 {
	*g = *g*1664525 + 1013904223
	return uint16(uint32(*g)>>16) % (max + 1)
}

// testFrame returns a w×h frame in f filled with pseudo-random samples.
func testFrame(t *testing.T, f Format, w, h int, seed uint32) []byte {
	t.Helper()
	buf := make([]byte, ImageSize(f, w, h))
	require.NotZero(t, len(buf))
	g := lcg(seed)

	if f.Info().Subsampling == Chroma422 {
		v := view422(f, buf, AlignedWidth(f, w), h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v.SetLuma(x, y, g.next(1023))
			}
			for cx := 0; cx < w/2; cx++ {
				v.SetCb(cx, y, g.next(1023))
				v.SetCr(cx, y, g.next(1023))
			}
		}
		return buf
	}

	v := view420(f, buf, w, h)
	maxv := v.Max()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v.Y.Set(x, y, g.next(maxv))
		}
	}
	for cy := 0; cy < h/2; cy++ {
		for cx := 0; cx < w/2; cx++ {
			v.U.Set(cx, cy, g.next(maxv))
			v.V.Set(cx, cy, g.next(maxv))
		}
	}
	return buf
}

// fillBytes returns n bytes of value v.
func fillBytes(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}

// fill420 sets every sample of a 4:2:0 frame to constant values.
func fill420(f pack.Frame420, y, u, v uint16) {
	for py := 0; py < f.Height; py++ {
		for px := 0; px < f.Width; px++ {
			f.Y.Set(px, py, y)
		}
	}
	for cy := 0; cy < f.Height/2; cy++ {
		for cx := 0; cx < f.Width/2; cx++ {
			f.U.Set(cx, cy, u)
			f.V.Set(cx, cy, v)
		}
	}
}
