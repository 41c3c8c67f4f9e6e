package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp"
)

func runCSC(ctx context.Context, c *common, fs *flag.FlagSet, args []string) error {
	in := fs.String("in", "y210", "input format")
	out := fs.String("out", "v210", "output format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w, h, err := parseSize(c.size)
	if err != nil {
		return err
	}
	inF, err := vpp.ParseFormat(*in)
	if err != nil {
		return err
	}
	outF, err := vpp.ParseFormat(*out)
	if err != nil {
		return err
	}

	dev, err := c.open()
	if err != nil {
		return err
	}
	defer dev.Close()

	op, err := vpp.NewCSC(vpp.CSCParams{Device: dev, Async: !c.sync, InFormat: inF, OutFormat: outF, Width: w, Height: h})
	if err != nil {
		return err
	}
	defer op.Close()
	c.log.WithField("kernel", op.Kernel()).Info("vppx: csc")

	inSize, outSize := vpp.ImageSize(inF, w, h), vpp.ImageSize(outF, w, h)
	src, err := loadFrames(c.input, inF, w, h, c.frames)
	if err != nil {
		return err
	}
	dst := dev.Alloc(outSize*c.frames, vpp.MemHost)

	events, wall, err := c.loop(ctx, dev, func(i int, dep *vpp.Event) (*vpp.Event, error) {
		return op.Run(frame(src, inSize, i), frame(dst, outSize, i), dep)
	})
	if err != nil {
		return err
	}
	return c.finish(outF, w, h, dst, events, wall)
}

func runResize(ctx context.Context, c *common, fs *flag.FlagSet, args []string) error {
	format := fs.String("fmt", "i420", "pixel format")
	dstSize := fs.String("dst", "1280x720", "destination size WxH")
	method := fs.String("interp", "bilinear", "interpolation: bilinear or bicubic")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w, h, err := parseSize(c.size)
	if err != nil {
		return err
	}
	dw, dh, err := parseSize(*dstSize)
	if err != nil {
		return err
	}
	f, err := vpp.ParseFormat(*format)
	if err != nil {
		return err
	}
	m, err := parseInterp(*method)
	if err != nil {
		return err
	}

	dev, err := c.open()
	if err != nil {
		return err
	}
	defer dev.Close()

	op, err := vpp.NewResize(vpp.ResizeParams{
		Device: dev, Async: !c.sync, Format: f, Interp: m,
		SrcWidth: w, SrcHeight: h, DstWidth: dw, DstHeight: dh,
	})
	if err != nil {
		return err
	}
	defer op.Close()

	inSize, outSize := vpp.ImageSize(f, w, h), vpp.ImageSize(f, dw, dh)
	src, err := loadFrames(c.input, f, w, h, c.frames)
	if err != nil {
		return err
	}
	dst := dev.Alloc(outSize*c.frames, vpp.MemHost)

	events, wall, err := c.loop(ctx, dev, func(i int, dep *vpp.Event) (*vpp.Event, error) {
		return op.Run(frame(src, inSize, i), frame(dst, outSize, i), dep)
	})
	if err != nil {
		return err
	}
	return c.finish(f, dw, dh, dst, events, wall)
}

func runComposition(ctx context.Context, c *common, fs *flag.FlagSet, args []string) error {
	return runMix(ctx, c, fs, args, false)
}

func runAlphaBlend(ctx context.Context, c *common, fs *flag.FlagSet, args []string) error {
	return runMix(ctx, c, fs, args, true)
}

// runMix draws one field onto the base frames.
func runMix(ctx context.Context, c *common, fs *flag.FlagSet, args []string, blend bool) error {
	format := fs.String("fmt", "i420", "pixel format: i420, v210 or yuv420p10le")
	fieldSize := fs.String("field", "", "field size WxH (default: half the base size)")
	fieldIn := fs.String("fi", "", "field input file (default: synthesized gradient)")
	offset := fs.String("off", "", "field offset X,Y (default: centered)")
	alpha := fs.Uint("alpha", 128, "constant alpha 0..255")
	alphaSurf := fs.Bool("alphasurf", false, "use a horizontal alpha ramp instead of -alpha")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *alpha > 255 {
		return fmt.Errorf("-alpha %d: must be 0..255", *alpha)
	}
	w, h, err := parseSize(c.size)
	if err != nil {
		return err
	}
	f, err := vpp.ParseFormat(*format)
	if err != nil {
		return err
	}
	fw, fh := w/2, h/2
	if *fieldSize != "" {
		if fw, fh, err = parseSize(*fieldSize); err != nil {
			return err
		}
	}
	ox, oy := (w-fw)/2&^1, (h-fh)/2&^1
	if *offset != "" {
		if ox, oy, err = parsePoint(*offset); err != nil {
			return err
		}
	}

	dev, err := c.open()
	if err != nil {
		return err
	}
	defer dev.Close()

	baseSize, fieldBytes := vpp.ImageSize(f, w, h), vpp.ImageSize(f, fw, fh)
	base, err := loadFrames(c.input, f, w, h, c.frames)
	if err != nil {
		return err
	}
	field, err := loadFrames(*fieldIn, f, fw, fh, c.frames)
	if err != nil {
		return err
	}

	fl := vpp.MixerField{
		Buffer: frame(field, fieldBytes, 0), Width: fw, Height: fh,
		OffsetX: ox, OffsetY: oy,
		Blend: blend, Alpha: uint8(*alpha), //nolint:gosec // checked above
	}
	if blend && *alphaSurf {
		fl.AlphaSurface = alphaRamp(fw, fh)
	}
	mixer, err := vpp.NewMixer(vpp.MixerParams{
		Device: dev, Async: !c.sync, Format: f,
		Fields: []vpp.MixerField{{Buffer: frame(base, baseSize, 0), Width: w, Height: h}, fl},
	})
	if err != nil {
		return err
	}
	defer mixer.Close()
	c.log.WithFields(logrus.Fields{"mode": mixer.Mode(1), "rect": fl.Rect()}).Info("vppx: mixer")

	events, wall, err := c.loop(ctx, dev, func(i int, dep *vpp.Event) (*vpp.Event, error) {
		out, err := mixer.Run(
			[][]byte{frame(base, baseSize, i), frame(field, fieldBytes, i)},
			[]*vpp.Event{dep},
		)
		if err != nil {
			return nil, err
		}
		return out[len(out)-1], nil
	})
	if err != nil {
		return err
	}
	return c.finish(f, w, h, base, events, wall)
}

// alphaRamp returns a w×h alpha plane rising from 0 to 255 left to right.
func alphaRamp(w, h int) []byte {
	a := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a[y*w+x] = uint8(x * 255 / max(1, w-1)) //nolint:gosec // at most 255
		}
	}
	return a
}

func runRotate(ctx context.Context, c *common, fs *flag.FlagSet, args []string) error {
	format := fs.String("fmt", "i420", "pixel format: i420 or v210")
	angle := fs.Int("angle", 90, "clockwise angle: 0, 90, 180 or 270")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w, h, err := parseSize(c.size)
	if err != nil {
		return err
	}
	f, err := vpp.ParseFormat(*format)
	if err != nil {
		return err
	}

	dev, err := c.open()
	if err != nil {
		return err
	}
	defer dev.Close()

	op, err := vpp.NewRotation(vpp.RotationParams{
		Device: dev, Async: !c.sync, Format: f, Angle: vpp.Angle(*angle),
		SrcWidth: w, SrcHeight: h,
	})
	if err != nil {
		return err
	}
	defer op.Close()
	p := op.Params()

	inSize, outSize := vpp.ImageSize(f, w, h), vpp.ImageSize(f, p.DstWidth, p.DstHeight)
	src, err := loadFrames(c.input, f, w, h, c.frames)
	if err != nil {
		return err
	}
	dst := dev.Alloc(outSize*c.frames, vpp.MemHost)

	events, wall, err := c.loop(ctx, dev, func(i int, dep *vpp.Event) (*vpp.Event, error) {
		return op.Run(frame(src, inSize, i), frame(dst, outSize, i), dep)
	})
	if err != nil {
		return err
	}
	return c.finish(f, p.DstWidth, p.DstHeight, dst, events, wall)
}

// tileSize returns the largest tile that fits n times across size and
// satisfies the alignment of f.
func tileSize(f vpp.Format, size, n int) int {
	t := size / n &^ 1
	if f == vpp.FormatV210 {
		t = t / 48 * 48
	}
	return t
}

func runMultiview(ctx context.Context, c *common, fs *flag.FlagSet, args []string) error {
	format := fs.String("fmt", "be", "pixel format")
	sub := fs.Int("sub", 2, "tiles per row and column")
	method := fs.String("interp", "bilinear", "interpolation: bilinear or bicubic")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sub < 1 {
		return fmt.Errorf("-sub %d: must be positive", *sub)
	}
	w, h, err := parseSize(c.size)
	if err != nil {
		return err
	}
	f, err := vpp.ParseFormat(*format)
	if err != nil {
		return err
	}
	m, err := parseInterp(*method)
	if err != nil {
		return err
	}
	n := *sub
	tw, th := tileSize(f, w, n), tileSize(vpp.FormatI420, h, n)
	if tw == 0 || th == 0 {
		return fmt.Errorf("multiview: %dx%d is too small for %d×%d %s tiles", w, h, n, n, f)
	}

	dev, err := c.open()
	if err != nil {
		return err
	}
	defer dev.Close()

	tiles := make([]*vpp.Resize, 0, n*n)
	for ty := 0; ty < n; ty++ {
		for tx := 0; tx < n; tx++ {
			r, err := vpp.NewResize(vpp.ResizeParams{
				Device: dev, Async: !c.sync, Format: f, Interp: m,
				SrcWidth: w, SrcHeight: h, DstWidth: tw, DstHeight: th,
				Pitch: w, SurfaceHeight: h, OffsetX: tx * tw, OffsetY: ty * th,
			})
			if err != nil {
				return fmt.Errorf("tile (%d,%d): %w", tx, ty, err)
			}
			defer r.Close()
			c.log.WithFields(layoutFields(r)).Debug("vppx: multiview tile")
			tiles = append(tiles, r)
		}
	}

	size := vpp.ImageSize(f, w, h)
	src, err := loadFrames(c.input, f, w, h, c.frames)
	if err != nil {
		return err
	}
	dst := dev.Alloc(size*c.frames, vpp.MemHost)

	events, wall, err := c.loop(ctx, dev, func(i int, dep *vpp.Event) (*vpp.Event, error) {
		var last *vpp.Event
		for _, r := range tiles {
			ev, err := r.Run(frame(src, size, i), frame(dst, size, i), dep)
			if err != nil {
				return nil, err
			}
			last = ev
		}
		return last, nil
	})
	if err != nil {
		return err
	}
	return c.finish(f, w, h, dst, events, wall)
}

// layoutFields describes where a tile lands and which source samples its
// tables read.
func layoutFields(r *vpp.Resize) logrus.Fields {
	p := r.Params()
	x, y := r.Weights()
	return logrus.Fields{
		"tile":  fmt.Sprintf("%dx%d+%d+%d", p.DstWidth, p.DstHeight, p.OffsetX, p.OffsetY),
		"taps":  x.Taps,
		"src_x": fmt.Sprintf("%d..%d", x.Index[0], x.Index[len(x.Index)-1]),
		"src_y": fmt.Sprintf("%d..%d", y.Index[0], y.Index[len(y.Index)-1]),
	}
}
