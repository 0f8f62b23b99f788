// Command randomchunks cuts segments into random sub-segments.
package main

import (
	"io"
	"math/rand"

	"github.com/alexflint/go-arg"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	MinChunk     float64 `arg:"--min-chunk-duration" help:"minimum chunk length in seconds"`
	MaxChunk     float64 `arg:"--max-chunk-duration" help:"maximum chunk length in seconds"`
	Intersegment float64 `arg:"--intersegment-duration" help:"gap between chunks in seconds"`
	Seed         int64   `arg:"--seed" help:"random seed"`
	Input        string  `arg:"positional,required" help:"input segments, - for stdin"`
	Output       string  `arg:"positional,required" help:"output sub-segments, - for stdout"`
}

func run(a args) error {
	opts := datadir.ChunkOptions{MinDuration: a.MinChunk, MaxDuration: a.MaxChunk, IntersegmentDuration: a.Intersegment}
	if err := opts.Validate(); err != nil {
		return err
	}
	in, err := cmdutil.Open(a.Input)
	if err != nil {
		return err
	}
	defer in.Close()
	segs, err := datadir.ParseSegments(in, a.Input)
	if err != nil {
		return err
	}
	chunks, err := datadir.RandomChunks(rand.New(rand.NewSource(a.Seed)), segs, opts)
	if err != nil {
		return err
	}
	return cmdutil.WriteTo(a.Output, func(w io.Writer) error { return datadir.WriteSubsegments(w, chunks) })
}

func main() {
	d := datadir.DefaultChunkOptions()
	a := args{MinChunk: d.MinDuration, MaxChunk: d.MaxDuration, Intersegment: d.IntersegmentDuration}
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
