package vpp

import (
	"github.com/sirupsen/logrus"
)

// copyChunk is the byte span one grid row of Copy moves.
const copyChunk = 256 << 10

// Alloc returns a zeroed buffer of n bytes, reusing one released with Free
// when available. All memory types are host memory on the CPU target; mt is
// recorded for logging only.
func (d *Device) Alloc(n int, mt MemType) []byte {
	Logger().WithFields(logrus.Fields{"bytes": n, "mem": mt}).Debug("vpp: alloc")
	return d.buffers.Get(n)
}

// Free hands buf back for reuse by later Alloc calls of the same length.
// buf must not be used afterwards.
func (d *Device) Free(buf []byte) {
	d.buffers.Put(buf)
}

// AllocImage returns a zeroed buffer sized for a w×h frame in format f.
// V210 rows are padded to a multiple of 48 pixels.
func (d *Device) AllocImage(f Format, w, h int, mt MemType) ([]byte, error) {
	if !f.Valid() {
		return nil, invalidf("alloc: unknown format %d", uint8(f))
	}
	if w <= 0 || h <= 0 {
		return nil, invalidf("alloc: %s %dx%d", f, w, h)
	}
	return d.Alloc(ImageSize(f, w, h), mt), nil
}

// Copy copies src into dst after dep completes. dst must be at least as
// long as src.
func (d *Device) Copy(dst, src []byte, dep *Event, async bool) (*Event, error) {
	if len(dst) < len(src) {
		return nil, invalidf("copy: dst %d bytes < src %d bytes", len(dst), len(src))
	}
	rows := (len(src) + copyChunk - 1) / copyChunk
	return d.submit("memcpy", dep, async, rows, func(row int) {
		lo := row * copyChunk
		hi := min(lo+copyChunk, len(src))
		copy(dst[lo:hi], src[lo:hi])
	})
}
