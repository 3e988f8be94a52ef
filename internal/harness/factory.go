package harness

import (
	"io"
	"os"

	"rltest/internal/config"
	"rltest/internal/env"
)

// Options configure NewFramework.
type Options struct {
	// Out receives reporter and assertion output, os.Stdout when nil
	Out io.Writer
	// In is read for the debug pause, os.Stdin when nil
	In io.Reader
	// Quiet only reports failures and a one line summary
	Quiet bool
	// ReportPath, when set, receives a JSON report of the run
	ReportPath string
	// FailFast stops the run after the first failed or errored case
	FailFast bool
	// Factory builds runners, env.DefaultFactory over the defaults when nil
	Factory env.Factory
	// Debug logs every scenario file the loader reads
	Debug bool
}

// Framework holds all components needed for a run.
type Framework struct {
	Runner   *Runner
	Loader   *ScenarioLoader
	Reporter Reporter
	Manager  *env.Manager
}

// SettingsFrom derives the run-wide environment settings from d.
func SettingsFrom(d config.Defaults, out io.Writer, in io.Reader) env.Settings {
	return env.Settings{
		Verbose:       d.Verbose,
		LogDir:        d.LogDir,
		HaltOnFailure: d.HaltOnFailure,
		DebugPrint:    d.DebugPrint,
		DebugPause:    d.DebugPause,
		Out:           out,
		In:            in,
	}
}

// NewFramework creates a fully configured framework for defaults d.
func NewFramework(d config.Defaults, opts Options) *Framework {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	factory := opts.Factory
	if factory == nil {
		factory = env.DefaultFactory{Defaults: d}
	}
	manager := env.NewManager(factory, SettingsFrom(d, out, opts.In))

	var reporter Reporter
	if opts.Quiet {
		reporter = NewQuietReporter(out)
	} else {
		reporter = NewConsoleReporter(out, d.Verbose > 0, opts.ReportPath)
	}

	runner := NewRunner(manager, d, reporter)
	runner.FailFast = opts.FailFast

	return &Framework{
		Runner:   runner,
		Loader:   NewScenarioLoader(opts.Debug),
		Reporter: reporter,
		Manager:  manager,
	}
}
