package vpp

import (
	"fmt"
	"strings"

	"github.com/gogpu/vpp/internal/interp"
	"github.com/gogpu/vpp/internal/pack"
)

// Format identifies a pixel layout. The set is fixed; adding a format means
// extending every operation's dispatch table.
type Format uint8

const (
	// FormatI420 is 8-bit planar 4:2:0: Y, then U and V at quarter size.
	FormatI420 Format = iota

	// FormatV210 is packed 10-bit 4:2:2, 6 pixels in four 32-bit words.
	// Rows are padded to a multiple of 48 pixels.
	FormatV210

	// FormatY210 is packed 10-bit 4:2:2, Y0 Cb Y1 Cr as left-justified
	// 16-bit words.
	FormatY210

	// FormatNV12 is 8-bit semi-planar 4:2:0 with interleaved UV.
	FormatNV12

	// FormatP010 is 10-bit semi-planar 4:2:0, left-justified in 16 bits.
	FormatP010

	// FormatYUV420P10LE is 10-bit planar 4:2:0, right-justified in 16 bits.
	FormatYUV420P10LE

	// FormatYUV422P10LE is 10-bit planar 4:2:2, right-justified in 16 bits.
	FormatYUV422P10LE

	// FormatYUV422YCbCr10BE is packed 10-bit 4:2:2, 5 bytes per pixel pair
	// in big-endian bit order.
	FormatYUV422YCbCr10BE

	// FormatYUV422YCbCr10LE is packed 10-bit 4:2:2, 5 bytes per pixel pair
	// in little-endian bit order.
	FormatYUV422YCbCr10LE

	formatCount
)

// Storage describes how samples are held in memory.
type Storage uint8

const (
	Storage8         Storage = iota // one byte per sample
	Storage16LSB                    // 10 bits right-justified in 16
	Storage16MSB                    // 10 bits left-justified in 16
	StorageV210Words                // 3 samples per 32-bit word
	StoragePacked5                  // 4 samples per 5 bytes
)

// Layout describes how planes are arranged.
type Layout uint8

const (
	LayoutPacked     Layout = iota // all components interleaved in one plane
	LayoutPlanar                   // Y, U and V in separate planes
	LayoutSemiPlanar               // Y plane, then interleaved UV
)

// Subsampling is the chroma subsampling scheme.
type Subsampling uint8

const (
	Chroma420 Subsampling = iota // chroma halved in both directions
	Chroma422                    // chroma halved horizontally
)

// FormatInfo contains metadata about a pixel format.
type FormatInfo struct {
	Name        string
	BitDepth    int
	Storage     Storage
	Layout      Layout
	Subsampling Subsampling

	// A frame holds AlignedWidth*Height*SizeNum/SizeDen elements of
	// ElemBytes bytes each.
	SizeNum   int
	SizeDen   int
	ElemBytes int

	// WidthAlign is the row width alignment in pixels.
	WidthAlign int
}

var formatInfoTable = [formatCount]FormatInfo{
	FormatI420: {
		Name: "i420", BitDepth: 8, Storage: Storage8, Layout: LayoutPlanar, Subsampling: Chroma420,
		SizeNum: 3, SizeDen: 2, ElemBytes: 1, WidthAlign: 2,
	},
	FormatV210: {
		Name: "v210", BitDepth: 10, Storage: StorageV210Words, Layout: LayoutPacked, Subsampling: Chroma422,
		SizeNum: 2, SizeDen: 3, ElemBytes: 4, WidthAlign: pack.V210Align,
	},
	FormatY210: {
		Name: "y210", BitDepth: 10, Storage: Storage16MSB, Layout: LayoutPacked, Subsampling: Chroma422,
		SizeNum: 2, SizeDen: 1, ElemBytes: 2, WidthAlign: 2,
	},
	FormatNV12: {
		Name: "nv12", BitDepth: 8, Storage: Storage8, Layout: LayoutSemiPlanar, Subsampling: Chroma420,
		SizeNum: 3, SizeDen: 2, ElemBytes: 1, WidthAlign: 2,
	},
	FormatP010: {
		Name: "p010", BitDepth: 10, Storage: Storage16MSB, Layout: LayoutSemiPlanar, Subsampling: Chroma420,
		SizeNum: 3, SizeDen: 2, ElemBytes: 2, WidthAlign: 2,
	},
	FormatYUV420P10LE: {
		Name: "yuv420p10le", BitDepth: 10, Storage: Storage16LSB, Layout: LayoutPlanar, Subsampling: Chroma420,
		SizeNum: 3, SizeDen: 2, ElemBytes: 2, WidthAlign: 2,
	},
	FormatYUV422P10LE: {
		Name: "yuv422p10le", BitDepth: 10, Storage: Storage16LSB, Layout: LayoutPlanar, Subsampling: Chroma422,
		SizeNum: 2, SizeDen: 1, ElemBytes: 2, WidthAlign: 2,
	},
	FormatYUV422YCbCr10BE: {
		Name: "yuv422ycbcr10be", BitDepth: 10, Storage: StoragePacked5, Layout: LayoutPacked, Subsampling: Chroma422,
		SizeNum: 5, SizeDen: 2, ElemBytes: 1, WidthAlign: 2,
	},
	FormatYUV422YCbCr10LE: {
		Name: "yuv422ycbcr10le", BitDepth: 10, Storage: StoragePacked5, Layout: LayoutPacked, Subsampling: Chroma422,
		SizeNum: 5, SizeDen: 2, ElemBytes: 1, WidthAlign: 2,
	},
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool { return f < formatCount }

// Info returns the format metadata. It panics for unknown formats.
func (f Format) Info() FormatInfo { return formatInfoTable[f] }

// String returns the lower-case format name.
func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
	return formatInfoTable[f].Name
}

// ParseFormat returns the format with the given name. Matching ignores case;
// "be" and "le" are accepted for the 5-byte packed formats.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(name)
	switch name {
	case "be":
		return FormatYUV422YCbCr10BE, nil
	case "le":
		return FormatYUV422YCbCr10LE, nil
	}
	for f := range formatCount {
		if formatInfoTable[f].Name == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidParams, name)
}

// Formats returns every format in enumeration order.
func Formats() []Format {
	out := make([]Format, formatCount)
	for i := range out {
		out[i] = Format(i)
	}
	return out
}

// AlignedWidth rounds w up to the row alignment of f.
func AlignedWidth(f Format, w int) int {
	a := formatInfoTable[f].WidthAlign
	return (w + a - 1) / a * a
}

// ImageSize returns the byte size of a w×h frame in format f, including
// row padding.
func ImageSize(f Format, w, h int) int {
	if !f.Valid() || w <= 0 || h <= 0 {
		return 0
	}
	info := formatInfoTable[f]
	elems := AlignedWidth(f, w) * h * info.SizeNum / info.SizeDen
	return elems * info.ElemBytes
}

// view422 returns an accessor for a 4:2:2 frame of w pixels per row.
func view422(f Format, data []byte, w, h int) pack.View422 {
	switch f {
	case FormatV210:
		return pack.V210(data, w, h)
	case FormatY210:
		return pack.Y210(data, w, h)
	case FormatYUV422P10LE:
		return pack.YUV422P10(data, w, h)
	case FormatYUV422YCbCr10BE:
		return pack.Packed5BE(data, w, h)
	case FormatYUV422YCbCr10LE:
		return pack.Packed5LE(data, w, h)
	}
	panic("vpp: not a 4:2:2 format: " + f.String())
}

// view420 returns an accessor for a 4:2:0 frame with luma pitch w.
func view420(f Format, data []byte, w, h int) pack.Frame420 {
	switch f {
	case FormatI420:
		return pack.I420(data, w, h)
	case FormatNV12:
		return pack.NV12(data, w, h)
	case FormatP010:
		return pack.P010(data, w, h)
	case FormatYUV420P10LE:
		return pack.YUV420P10(data, w, h)
	}
	panic("vpp: not a 4:2:0 format: " + f.String())
}

// Interp selects the resize interpolation method.
type Interp uint8

const (
	// InterpBilinear weights the 2 nearest source samples per axis.
	InterpBilinear Interp = iota

	// InterpBicubic weights the 4 nearest source samples per axis.
	InterpBicubic
)

// String returns the method name.
func (i Interp) String() string { return i.method().String() }

func (i Interp) method() interp.Method {
	if i == InterpBicubic {
		return interp.Bicubic
	}
	return interp.Bilinear
}

// MemType is the memory kind requested from Device.Alloc.
type MemType uint8

const (
	MemDevice MemType = iota // device-resident memory
	MemHost                  // host memory
	MemShared                // memory visible to host and device
)

// String returns the memory type name.
func (m MemType) String() string {
	switch m {
	case MemDevice:
		return "device"
	case MemHost:
		return "host"
	case MemShared:
		return "shared"
	default:
		return "unknown"
	}
}
