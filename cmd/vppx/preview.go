package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/vpp"
)

// previewWidth is the width of the PNG written by -preview.
const previewWidth = 480

// i420Image wraps the first I420 frame of data as an image.YCbCr.
func i420Image(data []byte, w, h int) *image.YCbCr {
	ySize, cSize := w*h, (w/2)*(h/2)
	return &image.YCbCr{
		Y:              data[:ySize],
		Cb:             data[ySize : ySize+cSize],
		Cr:             data[ySize+cSize : ySize+2*cSize],
		YStride:        w,
		CStride:        w / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}
}

// scalePreview scales src to previewWidth keeping the aspect ratio.
func scalePreview(src image.Image) *image.RGBA {
	b := src.Bounds()
	pw := min(previewWidth, b.Dx())
	ph := max(1, b.Dy()*pw/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, pw, ph))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func writePreview(path string, f vpp.Format, data []byte, w, h int) error {
	if f != vpp.FormatI420 {
		return fmt.Errorf("preview: %s output is not supported, only i420", f)
	}
	if len(data) < vpp.ImageSize(f, w, h) {
		return fmt.Errorf("preview: %d bytes is less than one %dx%d frame", len(data), w, h)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, scalePreview(i420Image(data, w, h))); err != nil {
		out.Close()
		return fmt.Errorf("preview: %w", err)
	}
	return out.Close()
}
