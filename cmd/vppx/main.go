// Command vppx runs vpp operations over raw frame files.
//
// Usage:
//
//	vppx csc -in y210 -out v210 -size 1920x1080 -i in.y210 -o out.v210
//	vppx resize -fmt i420 -size 1920x1080 -dst 1280x720 -interp bicubic -preview out.png
//	vppx alphablend -fmt i420 -alpha 128 -off 480,270
//	vppx rotate -fmt v210 -angle 90 -size 1920x1080 -o rotated.v210.zst
//	vppx multiview -fmt be -sub 3 -frames 10 -report prof.msgpack
//
// A missing -i synthesizes a gradient test frame. Files ending in .zst are
// zstd-compressed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/gogpu/vpp"
	_ "github.com/gogpu/vpp/gpu" // enable GPU blending for -d gpu
)

type command struct {
	usage string
	run   func(ctx context.Context, c *common, fs *flag.FlagSet, args []string) error
}

var commands = map[string]command{
	"csc":         {"convert between pixel formats", runCSC},
	"resize":      {"rescale frames", runResize},
	"composition": {"copy a field onto a base frame", runComposition},
	"alphablend":  {"alpha blend a field onto a base frame", runAlphaBlend},
	"rotate":      {"rotate I420 or V210 frames", runRotate},
	"multiview":   {"tile n×n resized copies into one frame", runMultiview},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: vppx <command> [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, commands[name].usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	c := registerCommon(fs)
	c.name = os.Args[1]
	c.log = log

	if err := cmd.run(context.Background(), c, fs, os.Args[2:]); err != nil {
		log.WithField("status", vpp.StatusOf(err)).WithError(err).Error("vppx failed")
		os.Exit(1)
	}
}
