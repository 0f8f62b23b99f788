// Command appendctmedits tags the words of a hypothesis CTM with the
// reference words and edits from an align-text evaluation.
package main

import (
	"io"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/ctm"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	Special string `arg:"--special-symbol" help:"symbol align-text uses for a missing word"`
	Silence string `arg:"--silence-symbol" help:"silence word passed through untagged"`
	EvalIn  string `arg:"positional,required" help:"per-utterance align-text evaluation"`
	CTMIn   string `arg:"positional,required" help:"hypothesis CTM"`
	CTMOut  string `arg:"positional,required" help:"tagged CTM, - for stdout"`
}

func run(a args) error {
	if a.Silence != "" && a.Silence == a.Special {
		log.Warn("--silence-symbol and --special-symbol are the same")
	}
	eval, err := ctm.ReadEvaluationFile(a.EvalIn)
	if err != nil {
		return err
	}
	entries, err := ctm.ReadFile(a.CTMIn)
	if err != nil {
		return err
	}
	tagged, err := ctm.AppendEdits(entries, eval, ctm.EditOptions{Special: a.Special, Silence: a.Silence})
	if err != nil {
		return err
	}
	return cmdutil.WriteTo(a.CTMOut, func(w io.Writer) error { return ctm.Write(w, tagged) })
}

func main() {
	a := args{Special: ctm.DefaultEpsilon}
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a))
}
