// Command padsegments widens segments on both sides, clamped to the
// recording.
package main

import (
	"io"

	"github.com/alexflint/go-arg"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	Left        float64 `arg:"--pad-length-left" help:"seconds added before each segment"`
	Right       float64 `arg:"--pad-length-right" help:"seconds added after each segment"`
	RecoLengths string  `arg:"--reco-lengths" help:"reco2dur file used to clamp segment ends"`
	Input       string  `arg:"positional,required" help:"input segments, - for stdin"`
	Output      string  `arg:"positional,required" help:"output segments, - for stdout"`
}

func run(a args) error {
	in, err := cmdutil.Open(a.Input)
	if err != nil {
		return err
	}
	defer in.Close()
	segs, err := datadir.ParseSegments(in, a.Input)
	if err != nil {
		return err
	}
	var lengths map[string]float64
	if a.RecoLengths != "" {
		if lengths, err = datadir.ReadReco2Dur(a.RecoLengths); err != nil {
			return err
		}
	}
	padded := datadir.PadSegments(segs, a.Left, a.Right, lengths)
	return cmdutil.WriteTo(a.Output, func(w io.Writer) error { return datadir.WriteSegments(w, padded) })
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
