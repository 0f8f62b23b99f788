// Command bestmapping maps every reference speaker to the system speaker it
// overlaps most.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
	"github.com/ieee0824/speechdata-go/scoring"
)

type args struct {
	cmdutil.Common
	RefSpeakers string `arg:"--ref-speakers" help:"reference speaker list; unmatched speakers map to Silence"`
	OverlapInfo string `arg:"--write-overlapping-info" help:"write the fraction of time on other system speakers"`
	Mapping     string `arg:"positional,required" help:"mapping CSV from md-eval.pl"`
}

func run(a args, w io.Writer) error {
	rows, err := scoring.ReadMappingFile(a.Mapping)
	if err != nil {
		return err
	}
	var refs []string
	if a.RefSpeakers != "" {
		t, err := datadir.ReadTable(a.RefSpeakers)
		if err != nil {
			return err
		}
		refs = t.Keys()
	}
	mappings := scoring.BestMapping(rows, refs)
	for _, m := range mappings {
		if _, err := fmt.Fprintf(w, "%s %s\n", m.Ref, m.Sys); err != nil {
			return err
		}
	}
	if a.OverlapInfo == "" {
		return nil
	}
	return cmdutil.WriteTo(a.OverlapInfo, func(w io.Writer) error {
		for _, m := range mappings {
			if _, err := fmt.Fprintf(w, "%s %v\n", m.Ref, m.OverlapFraction); err != nil {
				return err
			}
		}
		return nil
	})
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a, os.Stdout))
}
