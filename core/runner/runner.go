// Package runner executes external programs: the synchronization engine, the
// OS scheduler tools (launchctl, systemctl, crontab) and mount helpers.
//
// Callers depend on the Runner interface so that tests can substitute a fake
// that records invocations instead of spawning processes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Result holds the output and exit status of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined, trimmed of surrounding whitespace.
func (r *Result) Combined() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner runs a program to completion.
type Runner interface {
	// Run executes program with args. A non-zero exit status is returned as an
	// error wrapping *exec.ExitError, together with a populated Result.
	Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error)
}

// Options configures a single execution.
type Options struct {
	// Stdin is fed to the process when non-nil.
	Stdin io.Reader
	// Env is appended to the current environment.
	Env map[string]string
	// Dir is the working directory.
	Dir string
	// StdoutWriter and StderrWriter receive output in addition to capture.
	StdoutWriter io.Writer
	StderrWriter io.Writer
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithStdin feeds r to the process.
func WithStdin(r io.Reader) Option {
	return func(o *Options) {
		o.Stdin = r
	}
}

// WithEnvVar adds a single environment variable.
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithDir sets the working directory.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithOutput tees stdout and stderr to the given writers.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Options) {
		o.StdoutWriter = stdout
		o.StderrWriter = stderr
	}
}

// Exec is the Runner backed by os/exec.
type Exec struct{}

// New returns the os/exec backed Runner.
func New() *Exec {
	return &Exec{}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, program string, args []string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	cmd := exec.CommandContext(ctx, program, args...)
	if options.Dir != "" {
		cmd.Dir = options.Dir
	}
	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	if options.Stdin != nil {
		cmd.Stdin = options.Stdin
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeTo(&stdoutBuf, options.StdoutWriter)
	cmd.Stderr = teeTo(&stderrBuf, options.StderrWriter)

	err := cmd.Run()

	result := &Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("%s %s: %w", program, strings.Join(Redact(args), " "), err)
	}
	return result, nil
}

// secretKeys are key=value arguments whose values never appear in errors or logs.
var secretKeys = []string{"pass", "password", "secret_access_key", "session_token", "token", "bearer_token"}

// Redact returns args with the values of secret key=value arguments masked.
func Redact(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a
		key, _, ok := strings.Cut(a, "=")
		if !ok {
			continue
		}
		for _, secret := range secretKeys {
			if strings.EqualFold(key, secret) {
				out[i] = key + "=***"
				break
			}
		}
	}
	return out
}

func teeTo(buf *bytes.Buffer, extra io.Writer) io.Writer {
	if extra == nil {
		return buf
	}
	return io.MultiWriter(buf, extra)
}
