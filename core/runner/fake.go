package runner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Call records one invocation seen by Fake.
type Call struct {
	Program string
	Args    []string
	Stdin   string
}

// Line returns the invocation as a single space separated string.
func (c Call) Line() string {
	return strings.TrimSpace(c.Program + " " + strings.Join(c.Args, " "))
}

// Fake is a Runner that records calls and answers from a handler.
// It is used by tests of packages that shell out.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	// Handler produces the result for a call. When nil every call succeeds
	// with empty output.
	Handler func(call Call) (*Result, error)
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, program string, args []string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	call := Call{Program: program, Args: append([]string(nil), args...)}
	if options.Stdin != nil {
		data, err := io.ReadAll(options.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		call.Stdin = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return &Result{}, nil
	}
	return handler(call)
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded calls rendered with Call.Line.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Line()
	}
	return out
}

// ExitError builds the error Exec would return for a non-zero exit status.
func ExitError(code int, stderr string) (*Result, error) {
	return &Result{Stderr: stderr, ExitCode: code}, fmt.Errorf("exit status %d", code)
}
