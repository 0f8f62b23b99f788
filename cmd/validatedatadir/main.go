// Command validatedatadir checks that the files of a data directory agree
// with each other.
package main

import (
	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

type args struct {
	cmdutil.Common
	Dir string `arg:"positional,required" help:"data directory"`
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(datadir.Validate(a.Dir))
	log.Infof("%s is valid", a.Dir)
}
