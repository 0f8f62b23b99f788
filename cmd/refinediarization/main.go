// Command refinediarization refines a speaker clustering with per-recording
// HMM-GMM Viterbi resegmentation.
package main

import (
	"context"

	"github.com/alexflint/go-arg"

	speechdata "github.com/ieee0824/speechdata-go"
	"github.com/ieee0824/speechdata-go/diarize"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	diarize.Config
}

func main() {
	a := args{Config: diarize.DefaultConfig()}
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(speechdata.RefineDiarization(context.Background(), a.Config))
}
