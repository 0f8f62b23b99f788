package toolkit

import (
	"context"
	"fmt"
)

// JobRunner dispatches commands through a job wrapper such as run.pl or
// queue.pl, which writes the command's output to a log file.
type JobRunner struct {
	Tool Tool
	// Cmd is the wrapper with its options, e.g. "queue.pl --mem 2G".
	Cmd string
}

// Run executes command once, logging to logPath.
func (j JobRunner) Run(ctx context.Context, logPath, command string) error {
	_, err := j.Tool.Invoke(ctx, j.Cmd, logPath, command)
	return err
}

// RunArray executes command as an array job JOB=1:n. logPath and command
// may reference JOB.
func (j JobRunner) RunArray(ctx context.Context, n int, logPath, command string) error {
	_, err := j.Tool.Invoke(ctx, j.Cmd, fmt.Sprintf("JOB=1:%d", n), logPath, command)
	return err
}
