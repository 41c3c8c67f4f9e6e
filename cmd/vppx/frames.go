package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/gogpu/vpp"
	"github.com/gogpu/vpp/internal/pack"
)

func isZstd(path string) bool { return strings.HasSuffix(path, ".zst") }

// readFile reads path, decompressing .zst files.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !isZstd(path) {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader %s: %w", path, err)
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return data, nil
}

// writeFrames writes data to path, compressing .zst files.
func writeFrames(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if !isZstd(path) {
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return fmt.Errorf("zstd writer %s: %w", path, err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("compress %s: %w", path, err)
	}
	return f.Close()
}

// loadFrames returns n consecutive frames of size bytes each. With no path
// every frame is a synthesized gradient. A file holding fewer than n frames
// is repeated from its first frame.
func loadFrames(path string, f vpp.Format, w, h, n int) ([]byte, error) {
	size := vpp.ImageSize(f, w, h)
	out := make([]byte, size*n)
	if path == "" {
		first := out[:size]
		synthesize(first, f, w, h)
		for i := 1; i < n; i++ {
			copy(out[i*size:], first)
		}
		return out, nil
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	have := len(data) / size
	if have == 0 {
		return nil, fmt.Errorf("%s: %d bytes is less than one %s %dx%d frame (%d bytes)",
			path, len(data), f, w, h, size)
	}
	for i := 0; i < n; i++ {
		j := i % have
		copy(out[i*size:(i+1)*size], data[j*size:(j+1)*size])
	}
	return out, nil
}

// frame returns frame i of a buffer of equally sized frames.
func frame(buf []byte, size, i int) []byte { return buf[i*size : (i+1)*size] }

// synthesize fills data with a diagonal luma ramp and chroma bars.
func synthesize(data []byte, f vpp.Format, w, h int) {
	info := f.Info()
	if info.Subsampling == vpp.Chroma420 {
		fr := frame420(f, data, w, h)
		maxv := int(fr.Max())
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				fr.Y.Set(x, y, uint16((x+y)*maxv/(w+h)))
			}
		}
		for cy := 0; cy < h/2; cy++ {
			for cx := 0; cx < w/2; cx++ {
				fr.U.Set(cx, cy, uint16(cx*2*maxv/w))
				fr.V.Set(cx, cy, uint16(maxv-cy*2*maxv/h))
			}
		}
		return
	}

	v := frame422(f, data, w, h)
	const maxv = pack.Mask10
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v.SetLuma(x, y, uint16((x+y)*maxv/(w+h)))
		}
		for cx := 0; cx < w/2; cx++ {
			v.SetCb(cx, y, uint16(cx*2*maxv/w))
			v.SetCr(cx, y, uint16(maxv-y*maxv/h))
		}
	}
}

func frame420(f vpp.Format, data []byte, w, h int) pack.Frame420 {
	switch f {
	case vpp.FormatNV12:
		return pack.NV12(data, w, h)
	case vpp.FormatP010:
		return pack.P010(data, w, h)
	case vpp.FormatYUV420P10LE:
		return pack.YUV420P10(data, w, h)
	}
	return pack.I420(data, w, h)
}

func frame422(f vpp.Format, data []byte, w, h int) pack.View422 {
	switch f {
	case vpp.FormatV210:
		return pack.V210(data, vpp.AlignedWidth(f, w), h)
	case vpp.FormatY210:
		return pack.Y210(data, w, h)
	case vpp.FormatYUV422P10LE:
		return pack.YUV422P10(data, w, h)
	case vpp.FormatYUV422YCbCr10LE:
		return pack.Packed5LE(data, w, h)
	}
	return pack.Packed5BE(data, w, h)
}
