package env

import (
	"context"
	"fmt"
	"io"
	"os"

	"rltest/pkg/logging"
)

// Settings are the run-wide knobs that are not part of a Descriptor.
type Settings struct {
	Verbose       int
	LogDir        string
	HaltOnFailure bool
	DebugPrint    bool
	DebugPause    bool
	// Out receives assertion and debug output, os.Stdout when nil
	Out io.Writer
	// In is read for the debug pause, os.Stdin when nil
	In io.Reader
}

func (s Settings) out() io.Writer {
	if s.Out == nil {
		return os.Stdout
	}
	return s.Out
}

func (s Settings) in() io.Reader {
	if s.In == nil {
		return os.Stdin
	}
	return s.In
}

// Select returns the context for desc given the previous one. An equal
// descriptor reuses prev's runner without stopping or starting anything.
// Otherwise prev's runner is stopped, a new runner is built by f, the log
// directory is created and the runner is started. A start failure is
// returned as is; there is no retry.
func Select(ctx context.Context, prev *Context, desc Descriptor, f Factory, s Settings) (*Context, error) {
	if prev != nil && prev.Runner != nil && prev.Descriptor.Equal(desc) {
		logging.Debug("Selector", "Reusing environment %s (%s)", prev.ID, desc)
		return &Context{
			ID:         prev.ID,
			Descriptor: desc,
			Runner:     prev.Runner,
			Verbose:    s.Verbose,
			LogDir:     s.LogDir,
			Reused:     true,
		}, nil
	}

	if prev != nil && prev.Runner != nil {
		logging.Info("Selector", "Stopping environment %s (%s)", prev.ID, prev.Descriptor)
		if err := prev.Runner.Stop(ctx); err != nil {
			return nil, fmt.Errorf("failed to stop environment %s: %w", prev.ID, err)
		}
	}

	r, err := f.Build(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s environment: %w", desc.Topology, err)
	}

	if s.LogDir != "" {
		if err := os.MkdirAll(s.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", s.LogDir, err)
		}
	}

	next := &Context{
		ID:         newContextID(),
		Descriptor: desc,
		Runner:     r,
		Verbose:    s.Verbose,
		LogDir:     s.LogDir,
	}
	logging.Info("Selector", "Starting environment %s (%s)", next.ID, desc)
	if err := r.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start %s environment: %w", desc.Topology, err)
	}
	if _, err := r.Conn(0); err != nil {
		_ = r.Stop(ctx)
		return nil, fmt.Errorf("failed to connect to %s environment: %w", desc.Topology, err)
	}
	return next, nil
}
