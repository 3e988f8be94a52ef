package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"rltest/internal/assertion"
	"rltest/internal/env"
	"rltest/internal/query"
	"rltest/pkg/logging"
)

// Scenario is a case written as YAML: environment overrides and a list of
// command steps.
type Scenario struct {
	// Name is the unique identifier for the scenario
	Name string `yaml:"name"`
	// Description provides a human-readable summary
	Description string `yaml:"description,omitempty"`
	// Env overrides the configured environment defaults
	Env ScenarioEnv `yaml:"env,omitempty"`
	// SkipOnCluster skips the scenario on cluster topologies
	SkipOnCluster bool `yaml:"skip_on_cluster,omitempty"`
	// Steps run in order
	Steps []Step `yaml:"steps"`

	// file the scenario was loaded from
	file string
}

// ScenarioEnv mirrors env.Options in YAML form.
type ScenarioEnv struct {
	Topology    string   `yaml:"topology,omitempty"`
	Module      string   `yaml:"module,omitempty"`
	ModuleArgs  []string `yaml:"module_args,omitempty"`
	UseReplicas *bool    `yaml:"use_replicas,omitempty"`
	Shards      int      `yaml:"shards,omitempty"`
	UseAOF      *bool    `yaml:"use_aof,omitempty"`
}

// Step is either a command with expectations or an environment action.
type Step struct {
	// Name labels the failures of the step when set
	Name string `yaml:"name,omitempty"`
	// Command is sent to the default connection
	Command []string `yaml:"command,omitempty"`
	// Expect holds the checks on the reply
	Expect Expectation `yaml:"expect,omitempty"`
	// Flush removes all data before Command runs
	Flush bool `yaml:"flush,omitempty"`
	// Reload dumps and reloads the data set before Command runs
	Reload bool `yaml:"reload,omitempty"`

	line int
}

// Expectation lists the checks on a step's reply. With nothing set the
// command is only expected not to fail.
type Expectation struct {
	OK            bool        `yaml:"ok,omitempty"`
	Equal         interface{} `yaml:"equal,omitempty"`
	NotEqual      interface{} `yaml:"not_equal,omitempty"`
	Contains      interface{} `yaml:"contains,omitempty"`
	NotContains   interface{} `yaml:"not_contains,omitempty"`
	Nil           bool        `yaml:"nil,omitempty"`
	Truthy        *bool       `yaml:"truthy,omitempty"`
	Error         *bool       `yaml:"error,omitempty"`
	ErrorContains string      `yaml:"error_contains,omitempty"`
}

// UnmarshalYAML records the line a step starts at so failures point into
// the scenario file. Unknown keys are rejected; Node.Decode does not carry
// the outer decoder's KnownFields, so the step is decoded on its own.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	type plain Step
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode((*plain)(s)); err != nil {
		return fmt.Errorf("step at line %d: %w", node.Line, err)
	}
	s.line = node.Line
	return nil
}

// Validate checks that the scenario can be turned into a Case.
func (s Scenario) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("scenario name is required"))
	}
	if len(s.Steps) == 0 {
		errs = append(errs, fmt.Errorf("scenario %q has no steps", s.Name))
	}
	for i, st := range s.Steps {
		if len(st.Command) == 0 && !st.Flush && !st.Reload {
			errs = append(errs, fmt.Errorf("scenario %q step %d has neither a command nor an action", s.Name, i+1))
		}
	}
	return errors.Join(errs...)
}

// Options converts the env overrides.
func (s Scenario) Options() env.Options {
	return env.Options{
		Topology:    s.Env.Topology,
		Module:      s.Env.Module,
		ModuleArgs:  s.Env.ModuleArgs,
		UseReplicas: s.Env.UseReplicas,
		Shards:      s.Env.Shards,
		UseAOF:      s.Env.UseAOF,
	}
}

// Case turns the scenario into a runnable case.
func (s Scenario) Case() Case {
	return Case{
		Name:        s.Name,
		Description: s.Description,
		Options:     s.Options(),
		Fn:          s.run,
	}
}

func (s Scenario) run(e *env.Env) {
	if s.SkipOnCluster {
		e.SkipOnCluster()
	}
	for _, st := range s.Steps {
		st.run(e, s.site(st))
	}
}

func (s Scenario) site(st Step) assertion.CallSite {
	file := s.file
	if file == "" {
		file = s.Name
	}
	return assertion.CallSite{File: filepath.Base(file), Line: st.line}
}

func (st Step) run(e *env.Env, site assertion.CallSite) {
	rec := e.Recorder()
	if st.Flush {
		if err := e.Flush(); err != nil {
			rec.Record(site, "flush", false, err.Error())
		}
	}
	if st.Reload {
		if err := e.DumpAndReload(false, 0); err != nil {
			rec.Record(site, "dump and reload", false, err.Error())
		}
	}
	if len(st.Command) == 0 {
		return
	}

	args := make([]interface{}, len(st.Command))
	for i, a := range st.Command {
		args[i] = a
	}
	var msg []string
	if st.Name != "" {
		msg = []string{"step " + assertion.Repr(st.Name)}
	}
	st.Expect.check(e.Expect(args...), rec, site, msg)
}

func (x Expectation) check(q *query.Query, rec *assertion.Recorder, site assertion.CallSite, msg []string) {
	cmd := assertion.Repr(q.Args())

	switch {
	case x.ErrorContains != "":
		rec.Record(site, cmd+" raised an error containing "+assertion.Repr(x.ErrorContains),
			q.Failed() && strings.Contains(fmt.Sprint(q.Res()), x.ErrorContains), msg...)
		return
	case x.Error != nil && *x.Error:
		rec.Record(site, cmd+" raised an error", q.Failed(), msg...)
		return
	case q.Failed():
		rec.Record(site, cmd+" did not raise an error", false, append(msg, fmt.Sprint(q.Res()))...)
		return
	}

	res := q.Res()
	if x.OK {
		rec.OK(site, res, msg...)
	}
	if x.Equal != nil {
		rec.Equal(site, res, x.Equal, msg...)
	}
	if x.NotEqual != nil {
		rec.NotEqual(site, res, x.NotEqual, msg...)
	}
	if x.Contains != nil {
		rec.Contains(site, x.Contains, res, msg...)
	}
	if x.NotContains != nil {
		rec.NotContains(site, x.NotContains, res, msg...)
	}
	if x.Nil {
		rec.IsNil(site, res)
	}
	if x.Truthy != nil {
		if *x.Truthy {
			rec.True(site, res, msg...)
		} else {
			rec.False(site, res, msg...)
		}
	}
}

// GetDefaultScenarioPath returns the directory scenarios are loaded from
// when none is given.
func GetDefaultScenarioPath() string {
	return filepath.Join("tests", "scenarios")
}

// ScenarioLoader reads scenario files.
type ScenarioLoader struct {
	debug bool
}

// NewScenarioLoader creates a loader. debug logs every file it reads.
func NewScenarioLoader(debug bool) *ScenarioLoader {
	return &ScenarioLoader{debug: debug}
}

// LoadScenarios reads path, a single file or a directory walked
// recursively for .yaml and .yml files. A file may hold several
// documents. Scenarios are returned sorted by file, then document order.
func (l *ScenarioLoader) LoadScenarios(path string) ([]Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access scenario path %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ext := filepath.Ext(p); ext == ".yaml" || ext == ".yml" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk scenario directory %s: %w", path, err)
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	var scenarios []Scenario
	seen := make(map[string]string)
	for _, f := range files {
		loaded, err := l.loadFile(f)
		if err != nil {
			return nil, err
		}
		for _, s := range loaded {
			if prev, dup := seen[s.Name]; dup {
				return nil, fmt.Errorf("scenario %q in %s already defined in %s", s.Name, f, prev)
			}
			seen[s.Name] = f
			scenarios = append(scenarios, s)
		}
	}
	return scenarios, nil
}

func (l *ScenarioLoader) loadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	if l.debug {
		logging.Debug("Harness", "Loading scenarios from %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []Scenario
	for {
		var s Scenario
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario in %s: %w", path, err)
		}
		s.file = path
		out = append(out, s)
	}
	return out, nil
}

// Cases converts scenarios into cases.
func Cases(scenarios []Scenario) []Case {
	cases := make([]Case, 0, len(scenarios))
	for _, s := range scenarios {
		cases = append(cases, s.Case())
	}
	return cases
}
