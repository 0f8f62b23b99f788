// Command segments2rttm converts utt2spk and segments into an RTTM file.
package main

import (
	"io"

	"github.com/alexflint/go-arg"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
	"github.com/ieee0824/speechdata-go/rttm"
)

type args struct {
	cmdutil.Common
	Reco2FileAndChannel string `arg:"--reco2file-and-channel" help:"maps recordings to file and channel"`
	Utt2Spk             string `arg:"positional,required" help:"input utt2spk"`
	Segments            string `arg:"positional,required" help:"input segments"`
	RTTM                string `arg:"positional,required" help:"output RTTM, - for stdout"`
}

func run(a args) error {
	utt2spk, err := datadir.ReadUtt2Spk(a.Utt2Spk)
	if err != nil {
		return err
	}
	segs, err := datadir.ReadSegments(a.Segments)
	if err != nil {
		return err
	}
	var reco2fc map[string]datadir.FileAndChannel
	if a.Reco2FileAndChannel != "" {
		if reco2fc, err = datadir.ReadReco2FileAndChannel(a.Reco2FileAndChannel); err != nil {
			return err
		}
	}
	recs, err := rttm.FromSegments(utt2spk, segs, reco2fc)
	if err != nil {
		return err
	}
	return cmdutil.WriteTo(a.RTTM, func(w io.Writer) error { return rttm.Write(w, recs) })
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
