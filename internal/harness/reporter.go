package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"rltest/internal/color"
)

const nameColumnWidth = 48

// safeIcon pads an icon so that wide glyphs do not swallow the next
// character.
func safeIcon(icon string) string {
	spaces := 1
	if runewidth.StringWidth(icon) >= 2 {
		spaces = 2
	}
	return icon + strings.Repeat(" ", spaces)
}

// column fits s into exactly width display cells.
func column(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func resultIcon(r Result) string {
	switch r {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultSkipped:
		return "⏭️"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

func resultStyle(r Result) lipgloss.Style {
	switch r {
	case ResultPassed:
		return color.Pass
	case ResultSkipped:
		return color.Warn
	default:
		return color.Fail
	}
}

// consoleReporter prints one line per case and a summary.
type consoleReporter struct {
	out        io.Writer
	verbose    bool
	reportPath string
}

// NewConsoleReporter creates the default reporter. verbose adds case
// descriptions and environment details; reportPath, when set, receives a
// JSON report of the run.
func NewConsoleReporter(out io.Writer, verbose bool, reportPath string) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &consoleReporter{out: out, verbose: verbose, reportPath: reportPath}
}

func (r *consoleReporter) ReportStart(total int) {
	fmt.Fprintf(r.out, "%s\n", color.Emphasis.Render(fmt.Sprintf("🧪 Running %d test(s)", total)))
}

func (r *consoleReporter) ReportCaseStart(c Case) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "%s\n", color.Emphasis.Render(c.Name))
	if c.Description != "" {
		fmt.Fprintf(r.out, "   %s\n", color.Muted.Render(c.Description))
	}
}

func (r *consoleReporter) ReportCaseResult(res CaseResult) {
	line := safeIcon(resultIcon(res.Result)) + column(res.Name, nameColumnWidth) + " " +
		resultStyle(res.Result).Render(string(res.Result)) + " " +
		color.Muted.Render(fmt.Sprintf("(%v)", res.Duration.Round(time.Millisecond)))
	fmt.Fprintln(r.out, line)

	if r.verbose && res.Env != "" {
		reuse := "started"
		if res.Reused {
			reuse = "reused"
		}
		fmt.Fprintf(r.out, "   %s\n", color.Muted.Render(fmt.Sprintf("env: %s (%s)", res.Env, reuse)))
	}
	if res.Error != "" {
		fmt.Fprintf(r.out, "   %s\n", resultStyle(res.Result).Render(res.Error))
	}
	for _, f := range res.Failures {
		fmt.Fprintf(r.out, "   %s %s\n", color.Fail.Render("•"), f)
	}
}

func (r *consoleReporter) ReportSummary(s Summary) {
	fmt.Fprintf(r.out, "\n%s\n", color.Emphasis.Render("🏁 Summary"))
	fmt.Fprintf(r.out, "   Duration: %v\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.out, "   %s\n", color.Pass.Render(fmt.Sprintf("Passed: %d", s.Passed)))
	if s.Failed > 0 {
		fmt.Fprintf(r.out, "   %s\n", color.Fail.Render(fmt.Sprintf("Failed: %d", s.Failed)))
	}
	if s.Errored > 0 {
		fmt.Fprintf(r.out, "   %s\n", color.Fail.Render(fmt.Sprintf("Errors: %d", s.Errored)))
	}
	if s.Skipped > 0 {
		fmt.Fprintf(r.out, "   %s\n", color.Warn.Render(fmt.Sprintf("Skipped: %d", s.Skipped)))
	}
	fmt.Fprintf(r.out, "   Total: %d, failed assertions: %d\n", s.Total, s.Failures)

	if s.OK() {
		fmt.Fprintf(r.out, "\n%s\n", color.Pass.Render("🎉 All tests passed!"))
	} else {
		fmt.Fprintf(r.out, "\n%s\n", color.Fail.Render("💔 Some tests failed"))
		for _, c := range s.Cases {
			if c.Result == ResultFailed || c.Result == ResultError {
				fmt.Fprintf(r.out, "   %s%s\n", safeIcon(resultIcon(c.Result)), c.Name)
			}
		}
	}

	if r.reportPath != "" {
		path, err := saveReport(r.reportPath, s)
		if err != nil {
			fmt.Fprintf(r.out, "⚠️  Failed to save report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "📄 Report saved to: %s\n", path)
		}
	}
}

// saveReport writes s as JSON into dir and returns the file path.
func saveReport(dir string, s Summary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("rltest-report-%s.json", s.StartTime.Format("20060102-150405")))

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

// NewQuietReporter creates a reporter that only prints failures and a one
// line summary.
func NewQuietReporter(out io.Writer) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &quietReporter{out: out}
}

type quietReporter struct {
	out io.Writer
}

func (r *quietReporter) ReportStart(int) {}

func (r *quietReporter) ReportCaseStart(Case) {}

func (r *quietReporter) ReportCaseResult(res CaseResult) {
	if res.Result != ResultFailed && res.Result != ResultError {
		return
	}
	detail := res.Error
	if detail == "" && len(res.Failures) > 0 {
		detail = res.Failures[0]
	}
	fmt.Fprintf(r.out, "%s%s: %s\n", safeIcon(resultIcon(res.Result)), res.Name, detail)
}

func (r *quietReporter) ReportSummary(s Summary) {
	if s.OK() {
		fmt.Fprintf(r.out, "✅ All %d tests passed\n", s.Passed)
		return
	}
	fmt.Fprintf(r.out, "❌ %d/%d tests failed\n", s.Failed+s.Errored, s.Total)
}
