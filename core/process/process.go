// Package process answers questions about operating system processes.
package process

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Checker reports whether a process identifier denotes a live process.
type Checker interface {
	Alive(pid int) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(pid int) bool

// Alive implements Checker.
func (f CheckerFunc) Alive(pid int) bool {
	return f(pid)
}

// OS is the Checker backed by kill(pid, 0).
var OS Checker = CheckerFunc(Alive)

// Alive reports whether pid is a running process.
// EPERM means the process exists but belongs to another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Self returns the current process identifier.
func Self() int {
	return os.Getpid()
}

// Hostname returns the host name, or "localhost" when it cannot be determined.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	return h
}
