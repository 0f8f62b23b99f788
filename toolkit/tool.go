// Package toolkit runs the external acoustic toolkit binaries behind a
// small Tool interface so that command construction can be tested without
// the binaries installed.
package toolkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrToolFailed is matched by every error from a failed invocation.
var ErrToolFailed = errors.New("external tool failed")

// Result is the captured output of an invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Tool invokes an external program.
type Tool interface {
	Invoke(ctx context.Context, args ...string) (Result, error)
}

// ToolError reports a failed invocation. ExitCode is -1 when the program
// could not be started.
type ToolError struct {
	Args   []string
	Result Result
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: exit %d", strings.Join(e.Args, " "), e.Result.ExitCode)
	if stderr := lastLine(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrToolFailed) hold for every ToolError.
func (e *ToolError) Is(target error) bool { return target == ErrToolFailed }

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Quote single-quotes s for a POSIX shell when it contains anything other
// than safe characters.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("-_./=:,+@%", c)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
