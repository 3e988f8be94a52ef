package env

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"rltest/internal/assertion"
	"rltest/internal/runner"
)

// ErrNoActiveEnvironment is returned by operations that need a running
// deployment when none is installed.
var ErrNoActiveEnvironment = errors.New("no active environment")

// Context is the environment bound to one test: the descriptor it was
// obtained with, the runner serving it and the failures recorded so far.
// A reused deployment gets a fresh Context sharing the previous runner.
type Context struct {
	// ID identifies the deployment; reused contexts keep the ID
	ID         string
	Descriptor Descriptor
	Runner     runner.Runner
	Verbose    int
	LogDir     string
	// Reused is set when the deployment was carried over from the
	// previous context
	Reused bool

	failures assertion.Failures
}

var _ assertion.Sink = (*Context)(nil)

func newContextID() string {
	return uuid.NewString()
}

// Conn returns the runner's default connection. A restart replaces it, so
// callers resolve it per command instead of keeping it.
func (c *Context) Conn() (runner.Conn, error) {
	if c.Runner == nil {
		return nil, ErrNoActiveEnvironment
	}
	return c.Runner.Conn(0)
}

func (c *Context) AddFailure(msg string) { c.failures.AddFailure(msg) }

func (c *Context) FailureCount() int { return c.failures.FailureCount() }

// Failures returns the failure messages recorded in this context.
func (c *Context) Failures() []string { return c.failures.List() }

// PrintEnvData writes the descriptor and the runner's process data.
func (c *Context) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%senv %s: %s\n", prefix, c.ID, c.Descriptor)
	if c.Runner != nil {
		c.Runner.PrintEnvData(w, prefix+"\t")
	}
}
