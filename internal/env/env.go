package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"rltest/internal/assertion"
	"rltest/internal/color"
	"rltest/internal/config"
	"rltest/internal/query"
	"rltest/internal/runner"
)

// Env is the handle a test body uses: commands, queries, assertions and
// runner operations on the test's Context.
type Env struct {
	name     string
	ctx      context.Context
	ec       *Context
	rec      *assertion.Recorder
	settings Settings
}

// New binds a test named name to ec. ctx is used for every command the
// test issues.
func New(ctx context.Context, name string, ec *Context, s Settings) *Env {
	return &Env{
		name: name,
		ctx:  ctx,
		ec:   ec,
		rec: &assertion.Recorder{
			Sink:          ec,
			Verbose:       s.Verbose,
			HaltOnFailure: s.HaltOnFailure,
			Out:           s.out(),
		},
		settings: s,
	}
}

// Name returns the test name.
func (e *Env) Name() string { return e.name }

// Context returns the environment context the test is bound to.
func (e *Env) Context() *Context { return e.ec }

// Recorder returns the recorder assertions go through.
func (e *Env) Recorder() *assertion.Recorder { return e.rec }

// Topology returns the topology the test runs against.
func (e *Env) Topology() config.Topology { return e.ec.Descriptor.Topology }

// FailureCount returns the number of failed assertions so far.
func (e *Env) FailureCount() int { return e.rec.Count() }

// Cmd executes one command on the default connection and returns its reply.
func (e *Env) Cmd(args ...interface{}) (interface{}, error) {
	conn, err := e.ec.Conn()
	if err != nil {
		return nil, err
	}
	res, err := conn.Do(e.ctx, args...)
	if err != nil {
		e.DebugPrint(fmt.Sprintf("query: %s, error: %v", assertion.Repr(args), err), false)
	} else {
		e.DebugPrint(fmt.Sprintf("query: %s, result: %s", assertion.Repr(args), assertion.Repr(res)), false)
	}
	return res, err
}

// Do implements query.Executor over Cmd.
func (e *Env) Do(_ context.Context, args ...interface{}) (interface{}, error) {
	return e.Cmd(args...)
}

// Expect evaluates the command and returns the query for assertions.
func (e *Env) Expect(args ...interface{}) *query.Query {
	return query.Evaluate(e.ctx, e, e.rec, args...)
}

// DebugPrint prints msg when command echo is enabled or force is set.
func (e *Env) DebugPrint(msg string, force bool) {
	if !e.settings.DebugPrint && !force {
		return
	}
	fmt.Fprintf(e.settings.out(), "\t%s\t%s\n", color.Emphasis.Render("debug:"), color.Muted.Render(msg))
}

func (e *Env) runner() (runner.Runner, error) {
	if e.ec.Runner == nil {
		return nil, ErrNoActiveEnvironment
	}
	return e.ec.Runner, nil
}

// Conn returns the default connection, nil when the runner has none.
func (e *Env) Conn() runner.Conn {
	conn, err := e.ec.Conn()
	if err != nil {
		return nil
	}
	return conn
}

// ShardConn returns the connection to a 1-based shard; 0 is the default
// connection.
func (e *Env) ShardConn(shard int) (runner.Conn, error) {
	r, err := e.runner()
	if err != nil {
		return nil, err
	}
	return r.Conn(shard)
}

// ReplicaConn returns a connection to the replica.
func (e *Env) ReplicaConn() (runner.Conn, error) {
	r, err := e.runner()
	if err != nil {
		return nil, err
	}
	return r.ReplicaConn()
}

// Flush removes all data from every shard.
func (e *Env) Flush() error {
	r, err := e.runner()
	if err != nil {
		return err
	}
	return r.Flush(e.ctx)
}

// DumpAndReload persists and reloads the dataset of one shard, or of all
// shards when shard is 0. With restart the processes are restarted.
func (e *Env) DumpAndReload(restart bool, shard int) error {
	r, err := e.runner()
	if err != nil {
		return err
	}
	return r.DumpAndReload(e.ctx, restart, shard)
}

// RestartAndReload is DumpAndReload with a restart.
func (e *Env) RestartAndReload(shard int) error {
	return e.DumpAndReload(true, shard)
}

// ReloadingIterator yields 1, dumps and reloads every shard, then yields
// 2, so the loop body runs once before and once after a reload. A failed
// reload is recorded as an assertion failure and ends the loop.
func (e *Env) ReloadingIterator() iter.Seq[int] {
	return e.reloadingIteratorAt(assertion.Here(1))
}

func (e *Env) reloadingIteratorAt(site assertion.CallSite) iter.Seq[int] {
	return func(yield func(int) bool) {
		if !yield(1) {
			return
		}
		if err := e.DumpAndReload(false, 0); err != nil {
			e.rec.Record(site, "dump and reload", false, err.Error())
			return
		}
		yield(2)
	}
}

// Broadcast sends the command to every shard.
func (e *Env) Broadcast(args ...interface{}) error {
	r, err := e.runner()
	if err != nil {
		return err
	}
	return r.Broadcast(e.ctx, args...)
}

// ExitCode returns the runner's exit code, non-zero after a crash.
func (e *Env) ExitCode() int {
	if e.ec.Runner == nil {
		return 0
	}
	return e.ec.Runner.ExitCode()
}

// IsUp reports whether every process of the deployment is alive.
func (e *Env) IsUp() bool {
	return e.ec.Runner != nil && e.ec.Runner.IsUp()
}

// IsCluster reports whether the topology is one of the cluster ones.
func (e *Env) IsCluster() bool {
	return strings.Contains(string(e.ec.Descriptor.Topology), "cluster")
}

// IsEnterpriseCluster reports whether the test runs against an existing
// enterprise cluster.
func (e *Env) IsEnterpriseCluster() bool {
	return e.ec.Descriptor.Topology == config.TopologyExistingCluster
}

// PrintEnvData writes the environment description to w.
func (e *Env) PrintEnvData(w io.Writer) {
	e.ec.PrintEnvData(w, "\t")
}

func (e *Env) AssertEqual(first, second interface{}, msg ...string) bool {
	return e.assertEqualAt(assertion.Here(1), first, second, msg)
}

func (e *Env) assertEqualAt(site assertion.CallSite, first, second interface{}, msg []string) bool {
	return e.rec.Equal(site, first, second, msg...)
}

func (e *Env) AssertNotEqual(first, second interface{}, msg ...string) bool {
	return e.rec.NotEqual(assertion.Here(1), first, second, msg...)
}

func (e *Env) AssertOK(v interface{}, msg ...string) bool {
	return e.rec.OK(assertion.Here(1), v, msg...)
}

func (e *Env) AssertTrue(v interface{}, msg ...string) bool {
	return e.rec.True(assertion.Here(1), v, msg...)
}

func (e *Env) AssertFalse(v interface{}, msg ...string) bool {
	return e.rec.False(assertion.Here(1), v, msg...)
}

// AssertContains checks that holder contains value.
func (e *Env) AssertContains(value, holder interface{}) bool {
	return e.assertContainsAt(assertion.Here(1), value, holder)
}

func (e *Env) assertContainsAt(site assertion.CallSite, value, holder interface{}) bool {
	return e.rec.Contains(site, value, holder)
}

func (e *Env) AssertNotContains(value, holder interface{}) bool {
	return e.assertNotContainsAt(assertion.Here(1), value, holder)
}

func (e *Env) assertNotContainsAt(site assertion.CallSite, value, holder interface{}) bool {
	return e.rec.NotContains(site, value, holder)
}

func (e *Env) AssertGreater(a, b interface{}) bool {
	return e.rec.Greater(assertion.Here(1), a, b)
}

func (e *Env) AssertGreaterEqual(a, b interface{}) bool {
	return e.rec.GreaterEqual(assertion.Here(1), a, b)
}

func (e *Env) AssertLess(a, b interface{}) bool {
	return e.rec.Less(assertion.Here(1), a, b)
}

func (e *Env) AssertLessEqual(a, b interface{}) bool {
	return e.rec.LessEqual(assertion.Here(1), a, b)
}

func (e *Env) AssertIsNil(v interface{}) bool {
	return e.rec.IsNil(assertion.Here(1), v)
}

func (e *Env) AssertIsNotNil(v interface{}) bool {
	return e.rec.IsNotNil(assertion.Here(1), v)
}

func (e *Env) AssertIsInstance(v, sample interface{}) bool {
	return e.rec.IsInstance(assertion.Here(1), v, sample)
}

func (e *Env) AssertAlmostEqual(a, b interface{}, delta float64) bool {
	return e.rec.AlmostEqual(assertion.Here(1), a, b, delta)
}

// AssertCmdOK executes the command and checks for the "OK" reply.
func (e *Env) AssertCmdOK(args ...interface{}) bool {
	site := assertion.Here(1)
	res, err := e.Cmd(args...)
	if err != nil {
		return e.rec.Record(site, assertion.Repr(args)+" returned OK", false, err.Error())
	}
	return e.rec.OK(site, res)
}

// ErrSkip is wrapped by SkipError.
var ErrSkip = errors.New("test skipped")

// SkipError is the panic value raised by Skip.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	if e.Reason == "" {
		return ErrSkip.Error()
	}
	return ErrSkip.Error() + ": " + e.Reason
}

func (e *SkipError) Unwrap() error { return ErrSkip }

// AsSkip reports whether a recovered panic value is a SkipError.
func AsSkip(recovered interface{}) (*SkipError, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip, true
	}
	return nil, false
}

// Skip ends the test and marks it skipped.
func (e *Env) Skip(reason ...string) {
	panic(&SkipError{Reason: strings.Join(reason, " ")})
}

// SkipOnCluster skips the test on cluster topologies.
func (e *Env) SkipOnCluster() {
	if e.IsCluster() {
		e.Skip("not supported on cluster")
	}
}

// SkipOnEnterpriseCluster skips the test on an existing enterprise cluster.
func (e *Env) SkipOnEnterpriseCluster() {
	if e.IsEnterpriseCluster() {
		e.Skip("not supported on enterprise cluster")
	}
}
