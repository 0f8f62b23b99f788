// Command aligntext aligns hypothesis transcripts to reference transcripts
// and writes per-utterance evaluation blocks for appendctmedits.
package main

import (
	"io"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/ctm"
	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	Special string `arg:"--special-symbol" help:"symbol padding insertions and deletions"`
	RefText string `arg:"positional,required" help:"reference text"`
	HypText string `arg:"positional,required" help:"hypothesis text"`
	EvalOut string `arg:"positional,required" help:"evaluation output, - for stdout"`
}

func run(a args) error {
	refs, err := datadir.ReadTable(a.RefText)
	if err != nil {
		return err
	}
	hyps, err := datadir.ReadTable(a.HypText)
	if err != nil {
		return err
	}

	var total ctm.Counts
	var refWords int
	err = cmdutil.WriteTo(a.EvalOut, func(w io.Writer) error {
		for _, utt := range refs.SortedKeys() {
			ref, _ := refs.Get(utt)
			hyp, ok := hyps.Get(utt)
			if !ok {
				log.Warnf("no hypothesis for utterance %s", utt)
			}
			pairs := ctm.Align(ref, hyp, a.Special)
			c := ctm.Count(pairs)
			total.Correct += c.Correct
			total.Substitutions += c.Substitutions
			total.Insertions += c.Insertions
			total.Deletions += c.Deletions
			refWords += len(ref)
			if err := ctm.WriteEvaluation(w, utt, pairs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if refWords > 0 {
		log.Infof("%%WER %.2f [ %s / %s, %d ins, %d del, %d sub ]",
			100*float64(total.Errors())/float64(refWords),
			humanize.Comma(int64(total.Errors())), humanize.Comma(int64(refWords)),
			total.Insertions, total.Deletions, total.Substitutions)
	}
	return nil
}

func main() {
	a := args{Special: ctm.DefaultEpsilon}
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
