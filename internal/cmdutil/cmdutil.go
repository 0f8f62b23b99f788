// Package cmdutil holds the plumbing shared by the commands.
package cmdutil

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/internal/logging"
)

// Common are the flags every command accepts.
type Common struct {
	LogLevel string `arg:"--log-level" help:"debug, info, warn or error"`
}

// Init configures logging and logs the invocation.
func Init(c Common) {
	logging.Setup(c.LogLevel)
	logging.Invocation(os.Args)
}

// Fail logs err and exits with status 1. A nil err is ignored.
func Fail(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// Open opens path for reading; "-" is stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Create opens path for writing; "-" is stdout.
func Create(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

// WriteTo creates path and hands it to write, closing it afterwards.
func WriteTo(path string, write func(io.Writer) error) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
