package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp"
)

// common holds the flags every subcommand accepts.
type common struct {
	name string
	log  *logrus.Logger

	size    string
	frames  int
	sync    bool
	profile bool
	target  string
	input   string
	output  string
	report  string
	preview string
	verbose bool
}

func registerCommon(fs *flag.FlagSet) *common {
	c := &common{}
	fs.StringVar(&c.size, "size", "1920x1080", "source frame size WxH")
	fs.IntVar(&c.frames, "frames", 1, "number of frames to process")
	fs.BoolVar(&c.sync, "sync", false, "wait for every dispatch instead of chaining events")
	fs.BoolVar(&c.profile, "profile", false, "record kernel timestamps")
	fs.StringVar(&c.target, "d", "cpu", "execution target: cpu or gpu")
	fs.StringVar(&c.input, "i", "", "input file (default: synthesized gradient)")
	fs.StringVar(&c.output, "o", "", "output file")
	fs.StringVar(&c.report, "report", "", "write per-frame profiling records to this file")
	fs.StringVar(&c.preview, "preview", "", "write a PNG preview of the first I420 output frame")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	return c
}

// parseSize parses "WxH".
func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	if w, err = strconv.Atoi(ws); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if h, err = strconv.Atoi(hs); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: must be positive", s)
	}
	return w, h, nil
}

// parsePoint parses "X,Y".
func parsePoint(s string) (x, y int, err error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("point %q: want X,Y", s)
	}
	if x, err = strconv.Atoi(xs); err != nil {
		return 0, 0, fmt.Errorf("point %q: %w", s, err)
	}
	if y, err = strconv.Atoi(ys); err != nil {
		return 0, 0, fmt.Errorf("point %q: %w", s, err)
	}
	return x, y, nil
}

func parseTarget(s string) (vpp.Target, error) {
	switch strings.ToLower(s) {
	case "cpu":
		return vpp.TargetCPU, nil
	case "gpu":
		return vpp.TargetGPU, nil
	}
	return 0, fmt.Errorf("unknown target %q", s)
}

func parseInterp(s string) (vpp.Interp, error) {
	switch strings.ToLower(s) {
	case "bilinear":
		return vpp.InterpBilinear, nil
	case "bicubic":
		return vpp.InterpBicubic, nil
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

// open applies the verbosity flag and creates the device.
func (c *common) open() (*vpp.Device, error) {
	if c.verbose {
		c.log.SetLevel(logrus.DebugLevel)
	}
	vpp.SetLogger(c.log)

	if c.frames <= 0 {
		return nil, fmt.Errorf("-frames %d: must be positive", c.frames)
	}
	t, err := parseTarget(c.target)
	if err != nil {
		return nil, err
	}
	return vpp.NewDevice(vpp.WithTarget(t), vpp.WithProfiling(c.profile || c.report != ""))
}

// stepFunc runs frame i after dep.
type stepFunc func(i int, dep *vpp.Event) (*vpp.Event, error)

// loop runs step for every frame, chaining each frame on the previous
// event unless -sync is set, and waits for the last one.
func (c *common) loop(ctx context.Context, dev *vpp.Device, step stepFunc) ([]*vpp.Event, time.Duration, error) {
	events := make([]*vpp.Event, 0, c.frames)
	start := time.Now()
	var prev *vpp.Event
	for i := 0; i < c.frames; i++ {
		ev, err := step(i, prev)
		if err != nil {
			return events, time.Since(start), fmt.Errorf("frame %d: %w", i, err)
		}
		events = append(events, ev)
		prev = ev
	}
	if err := dev.Sync(ctx); err != nil {
		return events, time.Since(start), err
	}
	if err := vpp.WaitAll(ctx, events...); err != nil {
		return events, time.Since(start), err
	}
	return events, time.Since(start), nil
}

// finish writes the output, the preview, the report and the summary.
func (c *common) finish(format vpp.Format, w, h int, out []byte, events []*vpp.Event, wall time.Duration) error {
	if c.output != "" {
		if err := writeFrames(c.output, out); err != nil {
			return err
		}
	}
	if c.preview != "" {
		if err := writePreview(c.preview, format, out, w, h); err != nil {
			return err
		}
	}
	if c.report != "" {
		if err := writeReport(c.report, c.name, events); err != nil {
			return err
		}
	}
	printSummary(c.name, events, len(out), wall)
	return nil
}
