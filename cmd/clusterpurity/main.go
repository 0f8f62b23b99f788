// Command clusterpurity prints the purity of every reference speaker in an
// md-eval speaker mapping.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/internal/cmdutil"
	"github.com/ieee0824/speechdata-go/scoring"
)

type args struct {
	cmdutil.Common
	Mapping string `arg:"positional,required" help:"mapping CSV from md-eval.pl"`
}

func run(a args, w io.Writer) error {
	rows, err := scoring.ReadMappingFile(a.Mapping)
	if err != nil {
		return err
	}
	ps := scoring.ClusterPurity(rows)
	if len(ps) == 0 {
		log.Warnf("%s has no reference speakers", a.Mapping)
		return nil
	}
	for _, p := range ps {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	s, err := scoring.Summarize(ps)
	if err != nil {
		return err
	}
	log.Infof("%d speakers: mean purity %.3f, median %.3f, min %.3f, time-weighted %.3f",
		s.Speakers, s.Mean, s.Median, s.Min, s.Weighted)
	return nil
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a, os.Stdout))
}
