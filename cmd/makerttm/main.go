// Command makerttm writes an RTTM file from segments and their cluster
// labels, splitting overlapping segments and merging contiguous ones.
package main

import (
	"os"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
	"github.com/ieee0824/speechdata-go/rttm"
)

type args struct {
	cmdutil.Common
	Reco2FileAndChannel string `arg:"--reco2file-and-channel" help:"maps recordings to file and channel"`
	Segments            string `arg:"positional,required" help:"input segments"`
	Labels              string `arg:"positional,required" help:"utterance to cluster label"`
	RTTM                string `arg:"positional" help:"output RTTM, stdout when omitted"`
}

func run(a args) error {
	segs, err := datadir.ReadSegments(a.Segments)
	if err != nil {
		return err
	}
	t, err := datadir.ReadTable(a.Labels)
	if err != nil {
		return err
	}
	labels := make(map[string]string, t.Len())
	for _, utt := range t.Keys() {
		fields, _ := t.Get(utt)
		if len(fields) != 1 {
			return errors.Errorf("%s: expected one label for %s", a.Labels, utt)
		}
		labels[utt] = fields[0]
	}
	var reco2fc map[string]datadir.FileAndChannel
	if a.Reco2FileAndChannel != "" {
		if reco2fc, err = datadir.ReadReco2FileAndChannel(a.Reco2FileAndChannel); err != nil {
			return err
		}
	}
	recs, err := rttm.FromLabels(segs, labels, reco2fc)
	if err != nil {
		return err
	}
	if a.RTTM == "" {
		return rttm.Write(os.Stdout, recs)
	}
	return rttm.WriteFile(a.RTTM, recs)
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
