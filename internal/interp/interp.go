// Package interp computes destination-to-source sampling tables for
// separable resampling.
//
// A table is built once per axis: for every destination coordinate it holds
// the clamped source indices (taps) and their float32 weights. Kernels then
// evaluate a pixel as a weighted sum over the taps of both axes.
package interp

import (
	"math"

	"github.com/gogpu/vpp/internal/cache"
)

// sharedAxes bounds the number of tables kept for reuse.
const sharedAxes = 64

type axisKey struct {
	m        Method
	src, dst int
}

var axes = cache.New[axisKey, Axis](sharedAxes)

// Shared returns the table for (m, src, dst), building it on first use.
// Tables are read-only and may be shared by any number of kernels.
func Shared(m Method, src, dst int) Axis {
	return axes.GetOrCreate(axisKey{m, src, dst}, func() Axis { return NewAxis(m, src, dst) })
}

// SharedStats returns the counters of the shared table cache.
func SharedStats() cache.Stats { return axes.Stats() }

// Method selects the reconstruction filter.
type Method uint8

const (
	// Bilinear uses 2 taps with linear weights.
	Bilinear Method = iota

	// Bicubic uses 4 taps with Catmull-Rom style weights.
	Bicubic
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case Bilinear:
		return "bilinear"
	case Bicubic:
		return "bicubic"
	default:
		return "unknown"
	}
}

// Taps returns the number of source samples per destination sample.
func (m Method) Taps() int {
	if m == Bicubic {
		return 4
	}
	return 2
}

// Axis is a precomputed sampling table for one axis.
type Axis struct {
	Taps   int
	Index  []int32
	Weight []float32
}

// NewAxis builds the table mapping dst coordinates onto src samples.
//
// Each destination coordinate d maps to srcid = (d+0.5)*src/dst - 0.5 in
// float32. The integer part selects the taps and the fraction their weights.
// Tap indices are clamped to [0, src-1].
func NewAxis(m Method, src, dst int) Axis {
	taps := m.Taps()
	a := Axis{
		Taps:   taps,
		Index:  make([]int32, dst*taps),
		Weight: make([]float32, dst*taps),
	}
	scale := float32(src) / float32(dst)
	hi := int32(src - 1)

	for d := 0; d < dst; d++ {
		// Conversions keep each step rounded to float32.
		srcid := float32((float32(d)+0.5)*scale) - 0.5
		base := float32(math.Floor(float64(srcid)))
		frac := srcid - base
		i0 := int32(base)

		idx := a.Index[d*taps : (d+1)*taps]
		wt := a.Weight[d*taps : (d+1)*taps]
		switch m {
		case Bicubic:
			BicubicWeights(frac, wt)
			for k := range idx {
				idx[k] = clamp(i0-1+int32(k), hi)
			}
		default:
			BilinearWeights(frac, wt)
			idx[0] = clamp(i0, hi)
			idx[1] = clamp(i0+1, hi)
		}
	}
	return a
}

// At returns the taps and weights for destination coordinate d.
func (a Axis) At(d int) ([]int32, []float32) {
	return a.Index[d*a.Taps : (d+1)*a.Taps], a.Weight[d*a.Taps : (d+1)*a.Taps]
}

// Len returns the number of destination coordinates.
func (a Axis) Len() int {
	if a.Taps == 0 {
		return 0
	}
	return len(a.Index) / a.Taps
}

// BilinearWeights writes the 2 linear weights for fraction t.
func BilinearWeights(t float32, w []float32) {
	w[0] = 1 - t
	w[1] = t
}

// BicubicWeights writes the 4 cubic weights for fraction t.
func BicubicWeights(t float32, w []float32) {
	t2 := t * t
	t3 := t2 * t
	w[0] = t2 - 0.5*t - 0.5*t3
	w[1] = 1 - 2.5*t2 + 1.5*t3
	w[2] = 0.5*t + 2*t2 - 1.5*t3
	w[3] = 0.5*t3 - 0.5*t2
}

func clamp(v, hi int32) int32 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
