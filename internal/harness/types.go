package harness

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"rltest/internal/env"
)

// Result is the outcome of a single case.
type Result string

const (
	// ResultPassed indicates the case finished with no failed assertion
	ResultPassed Result = "PASSED"
	// ResultFailed indicates at least one assertion failed
	ResultFailed Result = "FAILED"
	// ResultSkipped indicates the case skipped itself
	ResultSkipped Result = "SKIPPED"
	// ResultError indicates the environment could not be set up or the body panicked
	ResultError Result = "ERROR"
)

// Case is one test: a name, the environment it needs and its body.
type Case struct {
	// Name identifies the case in reports
	Name string
	// Description is an optional human-readable summary
	Description string
	// Options override the configured environment defaults
	Options env.Options
	// Fn is the test body
	Fn func(*env.Env)
}

// CaseResult records how a case went.
type CaseResult struct {
	Name      string        `json:"name"`
	Result    Result        `json:"result"`
	Env       string        `json:"env,omitempty"`
	Reused    bool          `json:"reused"`
	Failures  []string      `json:"failures,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// Summary aggregates the results of a run.
type Summary struct {
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Errored   int           `json:"errored"`
	// Failures is the number of failed assertions over all cases
	Failures int          `json:"failures"`
	Cases    []CaseResult `json:"cases"`
}

// OK reports whether no case failed or errored.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}

// ExitCode is the process status for the run: 0 when OK, 1 otherwise.
func (s Summary) ExitCode() int {
	if s.OK() {
		return 0
	}
	return 1
}

func (s *Summary) add(r CaseResult) {
	s.Cases = append(s.Cases, r)
	s.Failures += len(r.Failures)
	switch r.Result {
	case ResultPassed:
		s.Passed++
	case ResultFailed:
		s.Failed++
	case ResultSkipped:
		s.Skipped++
	case ResultError:
		s.Errored++
	}
}

// Reporter receives progress notifications from the Runner.
type Reporter interface {
	// ReportStart is called once before the first case
	ReportStart(total int)
	// ReportCaseStart is called before a case obtains its environment
	ReportCaseStart(c Case)
	// ReportCaseResult is called when a case completes
	ReportCaseResult(r CaseResult)
	// ReportSummary is called once after the last case
	ReportSummary(s Summary)
}

// Suite is a registry of cases, kept in registration order.
type Suite struct {
	mu    sync.Mutex
	cases []Case
	names map[string]struct{}
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{names: make(map[string]struct{})}
}

// Add registers c. Names must be unique and bodies non-nil.
func (s *Suite) Add(c Case) error {
	if c.Name == "" {
		return fmt.Errorf("case name must not be empty")
	}
	if c.Fn == nil {
		return fmt.Errorf("case %s has no body", c.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.names[c.Name]; exists {
		return fmt.Errorf("case %s already registered", c.Name)
	}
	s.names[c.Name] = struct{}{}
	s.cases = append(s.cases, c)
	return nil
}

// Cases returns the registered cases in registration order.
func (s *Suite) Cases() []Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Case, len(s.cases))
	copy(out, s.cases)
	return out
}

// Names returns the registered case names, sorted.
func (s *Suite) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Filter returns the cases whose name is in names, or all cases when names
// is empty.
func Filter(cases []Case, names []string) []Case {
	if len(names) == 0 {
		return cases
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var out []Case
	for _, c := range cases {
		if _, ok := want[c.Name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Missing returns the names in names that match no case, in the order given.
func Missing(cases []Case, names []string) []string {
	have := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		have[c.Name] = struct{}{}
	}
	var missing []string
	for _, n := range names {
		if _, ok := have[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}
