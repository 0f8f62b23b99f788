// Command cmulexicon looks up the words read from stdin in a CMU
// dictionary. Pronunciations go to stdout and unknown words to stderr.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/internal/cmdutil"
	"github.com/ieee0824/speechdata-go/lexicon"
)

type args struct {
	cmdutil.Common
	Dict string `arg:"positional,required" help:"CMU pronouncing dictionary"`
}

func run(a args, in io.Reader, out, oov io.Writer) error {
	dict, err := lexicon.LoadCMUFile(a.Dict)
	if err != nil {
		return err
	}
	var words []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read words")
	}

	entries, unknown := dict.Lookup(words)
	bw := bufio.NewWriter(out)
	for _, e := range entries {
		fmt.Fprintln(bw, e)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	for _, w := range unknown {
		if _, err := fmt.Fprintln(oov, w); err != nil {
			return err
		}
	}
	log.Infof("%d words, %d out of vocabulary", len(words), len(unknown))
	return nil
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)
	cmdutil.Fail(run(a, os.Stdin, os.Stdout, os.Stderr))
}
