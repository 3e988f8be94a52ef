package env

import (
	"bufio"
	"context"
	"fmt"

	"rltest/pkg/logging"
)

// Manager carries the current Context from one test to the next. It is
// owned by the run orchestrator and used from one goroutine.
type Manager struct {
	factory  Factory
	settings Settings
	current  *Context
}

// NewManager creates a Manager with no active environment.
func NewManager(f Factory, s Settings) *Manager {
	return &Manager{factory: f, settings: s}
}

// Settings returns the run-wide settings.
func (m *Manager) Settings() Settings { return m.settings }

// Current returns the active context, nil when there is none.
func (m *Manager) Current() *Context { return m.current }

// Obtain selects the context for desc and installs it as current. On
// failure no context is active afterwards.
func (m *Manager) Obtain(ctx context.Context, desc Descriptor) (*Context, error) {
	next, err := Select(ctx, m.current, desc, m.factory, m.settings)
	if err != nil {
		m.current = nil
		return nil, err
	}
	m.current = next

	if m.settings.Verbose >= 2 {
		fmt.Fprintln(m.settings.out(), "\tenv data:")
		next.PrintEnvData(m.settings.out(), "\t\t")
	}
	if m.settings.DebugPause {
		fmt.Fprint(m.settings.out(), "\tenv is up, attach to any process with a debugger and press Enter to continue.")
		if _, err := bufio.NewReader(m.settings.in()).ReadString('\n'); err != nil {
			logging.Debug("Selector", "Debug pause ended: %v", err)
		}
		fmt.Fprintln(m.settings.out())
	}
	return next, nil
}

// Stop tears down the active environment, if any.
func (m *Manager) Stop(ctx context.Context) error {
	if m.current == nil {
		return nil
	}
	cur := m.current
	m.current = nil
	logging.Info("Selector", "Stopping environment %s (%s)", cur.ID, cur.Descriptor)
	if err := cur.Runner.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop environment %s: %w", cur.ID, err)
	}
	return nil
}
