// Package query evaluates one command and exposes fluent assertions over
// its outcome.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"rltest/internal/assertion"
	"rltest/internal/deprecation"
)

// ErrNoExecutor is the captured outcome of a query evaluated without a
// connection.
var ErrNoExecutor = errors.New("no connection to execute the command on")

// Executor runs one command.
type Executor interface {
	Do(ctx context.Context, args ...interface{}) (interface{}, error)
}

// Query is one evaluated command. Its outcome is fixed at evaluation:
// either a result or, when Failed, the error text as the result.
type Query struct {
	args   []interface{}
	rec    *assertion.Recorder
	res    interface{}
	failed bool
}

// Evaluate runs the command once and captures its outcome. Errors and
// panics from the executor become the error outcome; Evaluate itself
// never fails. A nil rec records into a private failure list.
func Evaluate(ctx context.Context, exec Executor, rec *assertion.Recorder, args ...interface{}) *Query {
	if rec == nil {
		rec = &assertion.Recorder{Sink: &assertion.Failures{}}
	}
	q := &Query{args: args, rec: rec}
	res, err := run(ctx, exec, args)
	if err != nil {
		q.res = err.Error()
		q.failed = true
		return q
	}
	q.res = res
	return q
}

func run(ctx context.Context, exec Executor, args []interface{}) (res interface{}, err error) {
	if exec == nil {
		return nil, ErrNoExecutor
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %v panicked: %v", args[0], r)
		}
	}()
	return exec.Do(ctx, args...)
}

// Args returns the evaluated command.
func (q *Query) Args() []interface{} { return q.args }

// Res returns the result, or the error text when the command failed.
func (q *Query) Res() interface{} { return q.res }

// Failed reports whether the command returned an error.
func (q *Query) Failed() bool { return q.failed }

func (q *Query) Equal(expected interface{}) *Query {
	q.rec.Equal(assertion.Here(1), q.res, expected)
	return q
}

func (q *Query) NotEqual(expected interface{}) *Query {
	q.rec.NotEqual(assertion.Here(1), q.res, expected)
	return q
}

func (q *Query) True() *Query {
	q.rec.True(assertion.Here(1), q.res)
	return q
}

func (q *Query) False() *Query {
	q.rec.False(assertion.Here(1), q.res)
	return q
}

// OK checks for the "OK" status reply.
func (q *Query) OK() *Query {
	q.rec.OK(assertion.Here(1), q.res)
	return q
}

func (q *Query) Contains(v interface{}) *Query {
	q.rec.Contains(assertion.Here(1), v, q.res)
	return q
}

func (q *Query) NotContains(v interface{}) *Query {
	q.rec.NotContains(assertion.Here(1), v, q.res)
	return q
}

// Error checks that the command failed.
func (q *Query) Error() *Query {
	return q.ErrorAt(assertion.Here(1))
}

// ErrorAt is Error recorded at an explicit call site, for wrappers.
func (q *Query) ErrorAt(site assertion.CallSite) *Query {
	q.rec.Record(site, q.describe()+" raised an error", q.failed)
	return q
}

// NoError checks that the command succeeded.
func (q *Query) NoError() *Query {
	return q.NoErrorAt(assertion.Here(1))
}

// NoErrorAt is NoError recorded at an explicit call site, for wrappers.
func (q *Query) NoErrorAt(site assertion.CallSite) *Query {
	q.rec.Record(site, q.describe()+" did not raise an error", !q.failed, errorText(q))
	return q
}

// ErrorContains checks that the command failed with a message containing
// substr.
func (q *Query) ErrorContains(substr string) *Query {
	site := assertion.Here(1)
	q.rec.Record(site, q.describe()+" raised an error containing "+assertion.Repr(substr),
		q.failed && strings.Contains(fmt.Sprint(q.res), substr))
	return q
}

// Apply returns a new Query holding fn applied to the result, for
// assertions on a derived value. A failed query is returned unchanged.
func (q *Query) Apply(fn func(interface{}) interface{}) *Query {
	if q.failed {
		return q
	}
	return &Query{args: q.args, rec: q.rec, res: fn(q.res)}
}

// PrettyPrint writes the result to w, one nesting level per tab.
func (q *Query) PrettyPrint(w io.Writer) *Query {
	assertion.Render(w, q.res)
	return q
}

// DebugPrint writes the command and its result to w on one line.
func (q *Query) DebugPrint(w io.Writer) *Query {
	fmt.Fprintf(w, "\tdebug:\tquery: %s, result: %s\n", q.describe(), assertion.Repr(q.res))
	return q
}

func (q *Query) describe() string {
	return assertion.Repr(q.args)
}

func errorText(q *Query) string {
	if !q.failed {
		return ""
	}
	return fmt.Sprint(q.res)
}

var bridge = deprecation.New(deprecation.Table{
	"RaiseError":    "Error",
	"NotRaiseError": "NoError",
}, nil)

var (
	raiseError    = deprecation.Forward(bridge, "RaiseError", (*Query).ErrorAt)
	notRaiseError = deprecation.Forward(bridge, "NotRaiseError", (*Query).NoErrorAt)
)

// RaiseError is the old name of Error.
//
// Deprecated: use Error.
func (q *Query) RaiseError() *Query {
	return raiseError(q, assertion.Here(1))
}

// NotRaiseError is the old name of NoError.
//
// Deprecated: use NoError.
func (q *Query) NotRaiseError() *Query {
	return notRaiseError(q, assertion.Here(1))
}
