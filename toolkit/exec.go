package toolkit

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Exec runs args[0] directly with the remaining args.
type Exec struct {
	Dir   string
	Env   []string
	Stdin io.Reader
}

// Invoke runs the program and waits for it. A non-zero exit is returned as
// a *ToolError together with the captured Result.
func (e Exec) Invoke(ctx context.Context, args ...string) (Result, error) {
	if len(args) == 0 {
		return Result{}, errors.New("no program given")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}
	cmd.Stdin = e.Stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.WithField("cmd", strings.Join(args, " ")).Debug("invoke")
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}
	return res, &ToolError{Args: args, Result: res, Err: err}
}

// Shell runs its arguments, joined by spaces, as a bash pipeline with
// pipefail set, so a failure anywhere in the pipe fails the invocation.
type Shell struct {
	Exec
}

// Invoke runs the pipeline.
func (s Shell) Invoke(ctx context.Context, args ...string) (Result, error) {
	line := strings.Join(args, " ")
	res, err := s.Exec.Invoke(ctx, "bash", "-c", "set -o pipefail; "+line)
	var te *ToolError
	if errors.As(err, &te) {
		te.Args = []string{line}
	}
	return res, err
}
