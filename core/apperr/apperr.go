package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a class of failure.
type Kind string

const (
	// KindInvalidName means a destination name contains disallowed characters.
	KindInvalidName Kind = "INVALID_NAME"
	// KindNotFound means a destination is not registered.
	KindNotFound Kind = "NOT_FOUND"
	// KindConfiguration covers missing or invalid configuration.
	KindConfiguration Kind = "CONFIGURATION"
	// KindEngineFailure means the synchronization engine reported failure.
	KindEngineFailure Kind = "ENGINE_FAILURE"
	// KindConnectivity means the remote could not be reached or listed.
	KindConnectivity Kind = "CONNECTIVITY"
)

// Exit codes returned by the CLI.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitConnectivity  = 3
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "orchestrator.sync".
	Op string
	// Name is the destination the failure relates to, if any.
	Name string
	// Message is a short human readable description.
	Message string
	// Err is the underlying cause.
	Err error
	// Suggestions are commands or actions the operator can take.
	Suggestions []string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Name != "" && !strings.Contains(e.Message, e.Name) {
		fmt.Fprintf(&b, " (%s)", e.Name)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, op, name, message string, cause error, suggestions ...string) *Error {
	return &Error{
		Kind:        kind,
		Op:          op,
		Name:        name,
		Message:     message,
		Err:         cause,
		Suggestions: suggestions,
	}
}

// InvalidName reports a destination name outside [A-Za-z0-9_-] or a reserved one.
func InvalidName(op, name string) *Error {
	return New(KindInvalidName, op, name,
		fmt.Sprintf("invalid destination name %q: only letters, digits, '-' and '_' are allowed, and \"ls\" and \"rm\" are reserved", name), nil)
}

// NotFound reports an unknown destination.
func NotFound(op, name string) *Error {
	return New(KindNotFound, op, name, fmt.Sprintf("destination %q not found", name), nil,
		"sync ls")
}

// Configuration reports a configuration problem.
func Configuration(op, message string, cause error, suggestions ...string) *Error {
	return New(KindConfiguration, op, "", message, cause, suggestions...)
}

// Engine reports a failed engine run for a destination.
func Engine(op, name string, cause error, suggestions ...string) *Error {
	return New(KindEngineFailure, op, name, "sync engine failed", cause, suggestions...)
}

// Connectivity reports an unreachable remote.
func Connectivity(op string, cause error) *Error {
	return New(KindConnectivity, op, "", "remote is not reachable", cause, "setup")
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsConfiguration reports whether err is a configuration error of any flavour.
func IsConfiguration(err error) bool {
	switch KindOf(err) {
	case KindConfiguration, KindInvalidName, KindNotFound:
		return true
	default:
		return false
	}
}

// Suggestions collects suggestions from every *Error in err's chain, including
// errors combined with errors.Join.
func Suggestions(err error) []string {
	var out []string
	seen := make(map[string]struct{})
	walk(err, func(e *Error) {
		for _, s := range e.Suggestions {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	})
	return out
}

// walk calls fn for every *Error in err's tree, depth first.
func walk(err error, fn func(*Error)) {
	if err == nil {
		return
	}
	if e, ok := err.(*Error); ok {
		fn(e)
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			walk(inner, fn)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), fn)
	}
}

// ExitCode maps an error to the process exit code.
// Every error in a joined chain is considered. Configuration errors take
// precedence over connectivity errors, which take precedence over everything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	code := ExitFailure
	walk(err, func(e *Error) {
		switch e.Kind {
		case KindConfiguration, KindInvalidName, KindNotFound:
			code = ExitConfiguration
		case KindConnectivity:
			if code != ExitConfiguration {
				code = ExitConnectivity
			}
		}
	})
	return code
}
