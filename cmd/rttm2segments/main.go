// Command rttm2segments converts an RTTM file into utt2spk and segments.
package main

import (
	"io"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
	"github.com/ieee0824/speechdata-go/rttm"
)

type args struct {
	cmdutil.Common
	RTTM                string `arg:"positional,required" help:"input RTTM"`
	Reco2FileAndChannel string `arg:"positional,required" help:"maps recordings to file and channel"`
	Utt2Spk             string `arg:"positional,required" help:"output utt2spk"`
	Segments            string `arg:"positional,required" help:"output segments"`
}

func run(a args) error {
	recs, err := rttm.ReadFile(a.RTTM)
	if err != nil {
		return err
	}
	reco2fc, err := datadir.ReadReco2FileAndChannel(a.Reco2FileAndChannel)
	if err != nil {
		return err
	}
	utt2spk, segs, err := rttm.ToSegments(recs, reco2fc)
	if err != nil {
		return err
	}
	if err := datadir.WritePairsFile(a.Utt2Spk, utt2spk); err != nil {
		return err
	}
	log.Infof("wrote %d segments", len(segs))
	return cmdutil.WriteTo(a.Segments, func(w io.Writer) error { return datadir.WriteAlignedSegments(w, segs) })
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
