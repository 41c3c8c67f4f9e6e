// Package vpp is a video-frame transform engine for packed and planar YUV
// layouts used in broadcast pipelines.
//
// # Overview
//
// Four operations share one bit-packing vocabulary and one dispatch model:
//
//   - CSC converts between pixel formats (21 supported pairs).
//   - Resize rescales with bilinear or bicubic interpolation, optionally into
//     a window of a larger surface for mosaic layouts.
//   - Mixer composites or alpha-blends up to 19 layers onto a base frame.
//   - Rotation rotates I420 and V210 frames by 0, 90, 180 or 270 degrees.
//
// # Quick Start
//
//	dev, err := vpp.NewDevice()
//	if err != nil { ... }
//	defer dev.Close()
//
//	csc, err := vpp.NewCSC(vpp.CSCParams{
//	    Device:    dev,
//	    InFormat:  vpp.FormatYUV422YCbCr10BE,
//	    OutFormat: vpp.FormatV210,
//	    Width:     1920,
//	    Height:    1080,
//	})
//	if err != nil { ... }
//	defer csc.Close()
//
//	ev, err := csc.Run(src, dst, nil)
//
// # Lifecycle
//
// Each operation follows init, run, uninit: New* validates parameters and
// resolves the kernel once, Run dispatches it any number of times, and Close
// releases it. Parameter errors are reported at construction as
// ErrInvalidParams, capability gaps as ErrFail. StatusOf maps errors to the
// numeric Status codes.
//
// # Execution
//
// Every Run is one parallel dispatch onto the Device. A dispatch may depend
// on one earlier Event. With Async set, Run returns immediately and the
// returned Event must be waited on or chained; otherwise Run blocks until the
// kernel finishes. Dispatched work cannot be cancelled.
//
// # Formats
//
// Samples are 8-bit or 10-bit. Multi-byte elements are little-endian except
// the bit order of YUV422YCbCr10BE. V210 rows are padded to 48 pixels; see
// ImageSize for buffer sizing.
package vpp
