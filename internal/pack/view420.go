package pack

// Frame420 is a 4:2:0 frame split into luma and two half-resolution chroma
// planes. Depth is the native sample depth (8 or 10).
type Frame420 struct {
	Y, U, V Plane
	Width   int
	Height  int
	Depth   uint
}

// Max returns the largest sample value for the frame depth.
func (f Frame420) Max() uint16 { return 1<<f.Depth - 1 }

// I420 views data as 8-bit planar Y, U, V. w is the luma pitch and h the
// surface height.
func I420(data []byte, w, h int) Frame420 {
	n := w * h
	return Frame420{
		Y:     Plane8{Data: data[:n], Stride: w},
		U:     Plane8{Data: data[n : n+n/4], Stride: w / 2},
		V:     Plane8{Data: data[n*5/4 : n*3/2], Stride: w / 2},
		Width: w, Height: h, Depth: 8,
	}
}

// YUV420P10 views data as 10-bit planar Y, U, V in 16-bit right-justified
// elements.
func YUV420P10(data []byte, w, h int) Frame420 {
	n := 2 * w * h
	return Frame420{
		Y:     Plane16{Data: data[:n], Stride: w},
		U:     Plane16{Data: data[n : n+n/4], Stride: w / 2},
		V:     Plane16{Data: data[n*5/4 : n*3/2], Stride: w / 2},
		Width: w, Height: h, Depth: 10,
	}
}

// NV12 views data as 8-bit luma followed by an interleaved UV plane.
func NV12(data []byte, w, h int) Frame420 {
	n := w * h
	uv := Plane8{Data: data[n : n*3/2], Stride: w}
	return Frame420{
		Y:     Plane8{Data: data[:n], Stride: w},
		U:     interleaved{p: uv},
		V:     interleaved{p: uv, phase: 1},
		Width: w, Height: h, Depth: 8,
	}
}

// P010 views data as 10-bit left-justified luma followed by an interleaved
// UV plane.
func P010(data []byte, w, h int) Frame420 {
	n := 2 * w * h
	uv := Plane16{Data: data[n : n*3/2], Stride: w}
	return Frame420{
		Y:     justified{p: Plane16{Data: data[:n], Stride: w}},
		U:     justified{p: interleaved{p: uv}},
		V:     justified{p: interleaved{p: uv, phase: 1}},
		Width: w, Height: h, Depth: 10,
	}
}
