// Command downsamplewavscp appends a sox downsampling stage to every entry
// of a wav.scp.
package main

import (
	"github.com/alexflint/go-arg"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	Channel   int     `arg:"--channel" help:"output channel count"`
	Frequency float64 `arg:"--sample-frequency" help:"output sampling rate in Hz"`
	ExtraOpts string  `arg:"--extra-sox-opts" help:"extra sox output options, e.g. -b 16"`
	InScp     string  `arg:"positional,required" help:"input wav.scp"`
	OutScp    string  `arg:"positional,required" help:"output wav.scp"`
}

func run(a args) error {
	in, err := datadir.ReadWavScp(a.InScp)
	if err != nil {
		return err
	}
	out := datadir.NewTable()
	for _, reco := range in.Keys() {
		spec, _ := in.Value(reco)
		out.Set(reco, datadir.DownsamplePipe(spec, a.Channel, a.Frequency, a.ExtraOpts))
	}
	return out.WriteFile(a.OutScp)
}

func main() {
	a := args{Channel: 1, Frequency: 8000}
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
