package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"rltest/internal/config"
	"rltest/internal/env"
	"rltest/internal/runner"
)

type fakeConn struct {
	data map[string]string
}

func (c *fakeConn) Do(ctx context.Context, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, errors.New("ERR empty command")
	}
	switch strings.ToUpper(fmt.Sprint(args[0])) {
	case "PING":
		return "PONG", nil
	case "SET":
		c.data[fmt.Sprint(args[1])] = fmt.Sprint(args[2])
		return "OK", nil
	case "GET":
		v, ok := c.data[fmt.Sprint(args[1])]
		if !ok {
			return nil, nil
		}
		return v, nil
	case "KEYS":
		keys := make([]interface{}, 0, len(c.data))
		for k := range c.data {
			keys = append(keys, k)
		}
		return keys, nil
	case "DBSIZE":
		return int64(len(c.data)), nil
	}
	return nil, fmt.Errorf("ERR unknown command '%v'", args[0])
}

func (c *fakeConn) Close() error { return nil }

type fakeRunner struct {
	desc     env.Descriptor
	conn     *fakeConn
	startErr error
	up       bool

	starts, stops, flushes, reloads int
}

var _ runner.Runner = (*fakeRunner)(nil)

func (r *fakeRunner) Start(ctx context.Context) error {
	r.starts++
	if r.startErr != nil {
		return r.startErr
	}
	r.up = true
	return nil
}

func (r *fakeRunner) Stop(ctx context.Context) error {
	r.stops++
	r.up = false
	return nil
}

func (r *fakeRunner) Conn(shard int) (runner.Conn, error) {
	if !r.up {
		return nil, runner.ErrNotStarted
	}
	return r.conn, nil
}

func (r *fakeRunner) ReplicaConn() (runner.Conn, error) { return nil, runner.ErrNoReplica }

func (r *fakeRunner) Flush(ctx context.Context) error {
	r.flushes++
	r.conn.data = map[string]string{}
	return nil
}

func (r *fakeRunner) DumpAndReload(ctx context.Context, restart bool, shard int) error {
	r.reloads++
	return nil
}

func (r *fakeRunner) Broadcast(ctx context.Context, args ...interface{}) error { return nil }

func (r *fakeRunner) ExitCode() int { return 0 }

func (r *fakeRunner) IsUp() bool { return r.up }

func (r *fakeRunner) IsCluster() bool {
	return strings.Contains(string(r.desc.Topology), "cluster")
}

func (r *fakeRunner) ShardCount() int { return r.desc.Shards }

func (r *fakeRunner) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%sfake runner for %s\n", prefix, r.desc)
}

type fakeFactory struct {
	built    []*fakeRunner
	startErr error
}

func (f *fakeFactory) Build(desc env.Descriptor) (runner.Runner, error) {
	r := &fakeRunner{desc: desc, conn: &fakeConn{data: map[string]string{}}, startErr: f.startErr}
	f.built = append(f.built, r)
	return r, nil
}

func (f *fakeFactory) last() *fakeRunner {
	return f.built[len(f.built)-1]
}

// newTestRunner wires a Runner over a fakeFactory with output discarded.
func newTestRunner(t *testing.T, s env.Settings) (*Runner, *fakeFactory) {
	t.Helper()
	if s.Out == nil {
		s.Out = io.Discard
	}
	f := &fakeFactory{}
	m := env.NewManager(f, s)
	return NewRunner(m, config.Default(), NewQuietReporter(io.Discard)), f
}
