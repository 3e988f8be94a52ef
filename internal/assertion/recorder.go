package assertion

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"rltest/internal/color"
)

// ErrHalt is wrapped by every HaltError.
var ErrHalt = errors.New("assertion failed with halt on failure enabled")

// HaltError is the panic value raised by a Recorder with HaltOnFailure
// set when an assertion fails.
type HaltError struct {
	Description string
	Site        CallSite
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("%s: %s at %s", ErrHalt, e.Description, e.Site)
}

func (e *HaltError) Unwrap() error { return ErrHalt }

// AsHalt reports whether a recovered panic value is a HaltError.
func AsHalt(recovered interface{}) (*HaltError, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}
	var halt *HaltError
	if errors.As(err, &halt) {
		return halt, true
	}
	return nil, false
}

// Sink collects failure messages.
type Sink interface {
	AddFailure(msg string)
	FailureCount() int
}

// Failures is a Sink backed by a slice.
type Failures struct {
	list []string
}

func (f *Failures) AddFailure(msg string) { f.list = append(f.list, msg) }

func (f *Failures) FailureCount() int { return len(f.list) }

// List returns a copy of the recorded failures in order.
func (f *Failures) List() []string {
	return append([]string(nil), f.list...)
}

// Reset drops every recorded failure.
func (f *Failures) Reset() { f.list = nil }

// Recorder records assertion outcomes into its Sink.
type Recorder struct {
	Sink Sink
	// Verbose at 1 or above prints passing assertions too
	Verbose int
	// HaltOnFailure panics with *HaltError on the first failure
	HaltOnFailure bool
	// Out receives the printed outcome lines, os.Stdout when nil
	Out io.Writer
}

func (r *Recorder) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

// Record prints and records one outcome and returns ok. A failure is
// appended to the Sink before the halt panic, if any.
func (r *Recorder) Record(site CallSite, desc string, ok bool, msg ...string) bool {
	suffix := ""
	if m := strings.Join(msg, " "); m != "" {
		suffix = " [" + m + "]"
	}
	styled := color.Warn.Render(desc) + "\t" + color.Muted.Render(site.String()) + suffix

	if ok {
		if r.Verbose >= 1 {
			fmt.Fprintf(r.out(), "\t%s\t%s\n", color.Pass.Render("✅  (OK):"), styled)
		}
		return true
	}

	fmt.Fprintf(r.out(), "\t%s\t%s\n", color.Fail.Render("❌  (FAIL):"), styled)
	if r.Sink != nil {
		r.Sink.AddFailure(desc + "\t" + site.String() + suffix)
	}
	if r.HaltOnFailure {
		panic(&HaltError{Description: desc, Site: site})
	}
	return false
}

// Count returns the number of failures recorded in the Sink.
func (r *Recorder) Count() int {
	if r.Sink == nil {
		return 0
	}
	return r.Sink.FailureCount()
}

func (r *Recorder) Equal(site CallSite, first, second interface{}, msg ...string) bool {
	return r.Record(site, Repr(first)+" == "+Repr(second), ValuesEqual(first, second), msg...)
}

func (r *Recorder) NotEqual(site CallSite, first, second interface{}, msg ...string) bool {
	return r.Record(site, Repr(first)+" != "+Repr(second), !ValuesEqual(first, second), msg...)
}

// OK checks that v is the "OK" status reply.
func (r *Recorder) OK(site CallSite, v interface{}, msg ...string) bool {
	return r.Equal(site, v, "OK", msg...)
}

func (r *Recorder) True(site CallSite, v interface{}, msg ...string) bool {
	return r.Record(site, Repr(v)+" is true", Truthy(v), msg...)
}

func (r *Recorder) False(site CallSite, v interface{}, msg ...string) bool {
	return r.Record(site, Repr(v)+" is false", !Truthy(v), msg...)
}

// Contains checks that holder contains value: a substring of a string or
// an element of a list.
func (r *Recorder) Contains(site CallSite, value, holder interface{}, msg ...string) bool {
	found, _ := ContainsValue(holder, value)
	return r.Record(site, Repr(holder)+" should contain "+Repr(value), found, msg...)
}

// NotContains is the complement of Contains. A holder that cannot contain
// anything fails as well.
func (r *Recorder) NotContains(site CallSite, value, holder interface{}, msg ...string) bool {
	found, supported := ContainsValue(holder, value)
	return r.Record(site, Repr(holder)+" should not contain "+Repr(value), supported && !found, msg...)
}

func (r *Recorder) compare(site CallSite, a, b interface{}, op string, pass func(int) bool) bool {
	desc := Repr(a) + " " + op + " " + Repr(b)
	c, err := Compare(a, b)
	if err != nil {
		return r.Record(site, desc, false, err.Error())
	}
	return r.Record(site, desc, pass(c))
}

func (r *Recorder) Greater(site CallSite, a, b interface{}) bool {
	return r.compare(site, a, b, ">", func(c int) bool { return c > 0 })
}

func (r *Recorder) GreaterEqual(site CallSite, a, b interface{}) bool {
	return r.compare(site, a, b, ">=", func(c int) bool { return c >= 0 })
}

func (r *Recorder) Less(site CallSite, a, b interface{}) bool {
	return r.compare(site, a, b, "<", func(c int) bool { return c < 0 })
}

func (r *Recorder) LessEqual(site CallSite, a, b interface{}) bool {
	return r.compare(site, a, b, "<=", func(c int) bool { return c <= 0 })
}

func (r *Recorder) IsNil(site CallSite, v interface{}) bool {
	return r.Record(site, Repr(v)+" is nil", isNil(v))
}

func (r *Recorder) IsNotNil(site CallSite, v interface{}) bool {
	return r.Record(site, Repr(v)+" is not nil", !isNil(v))
}

// IsInstance checks that v has the same dynamic type as sample.
func (r *Recorder) IsInstance(site CallSite, v, sample interface{}) bool {
	return r.Record(site, fmt.Sprintf("%s instance of %T", Repr(v), sample), sameType(v, sample))
}

// AlmostEqual checks that two numbers differ by at most delta.
func (r *Recorder) AlmostEqual(site CallSite, a, b interface{}, delta float64) bool {
	desc := fmt.Sprintf("%s almost equals %s (delta %v)", Repr(a), Repr(b), delta)
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if !okA || !okB {
		return r.Record(site, desc, false, "not a number")
	}
	diff := fa - fb
	if diff < 0 {
		diff = -diff
	}
	return r.Record(site, desc, diff <= delta)
}
