// Command wavscp2noiselist turns a wav.scp into a foreground point-source
// noise list for reverberate.
package main

import (
	"fmt"
	"io"

	"github.com/alexflint/go-arg"

	"github.com/ieee0824/speechdata-go/augment"
	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	WavScp    string `arg:"positional,required" help:"input wav.scp"`
	NoiseList string `arg:"positional,required" help:"output noise list"`
}

func run(a args) error {
	scp, err := datadir.ReadWavScp(a.WavScp)
	if err != nil {
		return err
	}
	return cmdutil.WriteTo(a.NoiseList, func(w io.Writer) error {
		for _, line := range augment.NoiseListFromWavScp(scp) {
			if _, err := fmt.Fprintln(w, line); err != nil {
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
	cmdutil.Fail(run(a))
}
