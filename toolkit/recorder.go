package toolkit

import (
	"context"
	"strings"
	"sync"
)

// Recorder is a Tool that records its invocations instead of running them.
// It is safe for concurrent use.
type Recorder struct {
	// Handler, when set, produces the result of each invocation.
	Handler func(args []string) (Result, error)

	mu    sync.Mutex
	calls [][]string
}

// Invoke records args and returns the Handler's result.
func (r *Recorder) Invoke(ctx context.Context, args ...string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	cp := append([]string(nil), args...)
	r.mu.Lock()
	r.calls = append(r.calls, cp)
	r.mu.Unlock()
	if r.Handler == nil {
		return Result{}, nil
	}
	return r.Handler(cp)
}

// Calls returns a copy of the recorded argument lists.
func (r *Recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Lines returns each recorded call joined by spaces.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = strings.Join(c, " ")
	}
	return out
}
