package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"rltest/internal/runner"
)

// fakeConn is an in-memory key-value store speaking a few commands.
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
	case "DBSIZE":
		return int64(len(c.data)), nil
	}
	return nil, fmt.Errorf("ERR unknown command '%v'", args[0])
}

func (c *fakeConn) Close() error { return nil }

// fakeRunner counts lifecycle calls.
type fakeRunner struct {
	desc     Descriptor
	conn     *fakeConn
	startErr error
	up       bool
	cluster  bool

	starts, stops, flushes int
	reloads                []string
	broadcasts             [][]interface{}
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
	r.reloads = append(r.reloads, fmt.Sprintf("restart=%t shard=%d", restart, shard))
	return nil
}

func (r *fakeRunner) Broadcast(ctx context.Context, args ...interface{}) error {
	r.broadcasts = append(r.broadcasts, args)
	return nil
}

func (r *fakeRunner) ExitCode() int { return 0 }

func (r *fakeRunner) IsUp() bool { return r.up }

func (r *fakeRunner) IsCluster() bool { return r.cluster }

func (r *fakeRunner) ShardCount() int { return 1 }

func (r *fakeRunner) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%sfake runner for %s\n", prefix, r.desc)
}

// fakeFactory hands out fakeRunners and keeps every one it built.
type fakeFactory struct {
	built    []*fakeRunner
	startErr error
	buildErr error
}

func (f *fakeFactory) Build(desc Descriptor) (runner.Runner, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	r := &fakeRunner{desc: desc, conn: &fakeConn{data: map[string]string{}}, startErr: f.startErr}
	f.built = append(f.built, r)
	return r, nil
}

func (f *fakeFactory) last() *fakeRunner {
	return f.built[len(f.built)-1]
}

func (f *fakeFactory) totals() (starts, stops int) {
	for _, r := range f.built {
		starts += r.starts
		stops += r.stops
	}
	return starts, stops
}
