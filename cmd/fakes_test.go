package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"rltest/internal/env"
	"rltest/internal/runner"
)

type echoConn struct{}

func (echoConn) Do(ctx context.Context, args ...interface{}) (interface{}, error) {
	switch strings.ToUpper(fmt.Sprint(args[0])) {
	case "PING":
		return "PONG", nil
	case "ECHO":
		return args[1], nil
	}
	return nil, fmt.Errorf("ERR unknown command '%v'", args[0])
}

func (echoConn) Close() error { return nil }

type stubRunner struct {
	desc   env.Descriptor
	up     bool
	starts int
	stops  int
}

func (r *stubRunner) Start(context.Context) error {
	r.starts++
	r.up = true
	return nil
}

func (r *stubRunner) Stop(context.Context) error {
	r.stops++
	r.up = false
	return nil
}

func (r *stubRunner) Conn(int) (runner.Conn, error) {
	if !r.up {
		return nil, runner.ErrNotStarted
	}
	return echoConn{}, nil
}

func (r *stubRunner) ReplicaConn() (runner.Conn, error) { return nil, runner.ErrNoReplica }
func (r *stubRunner) Flush(context.Context) error { return nil }
func (r *stubRunner) DumpAndReload(context.Context, bool, int) error { return nil }
func (r *stubRunner) Broadcast(context.Context, ...interface{}) error { return nil }
func (r *stubRunner) ExitCode() int { return 0 }
func (r *stubRunner) IsUp() bool { return r.up }
func (r *stubRunner) IsCluster() bool { return false }
func (r *stubRunner) ShardCount() int { return 1 }

func (r *stubRunner) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%sstub server for %s\n", prefix, r.desc)
}

type stubFactory struct {
	built []*stubRunner
}

func (f *stubFactory) Build(desc env.Descriptor) (runner.Runner, error) {
	r := &stubRunner{desc: desc}
	f.built = append(f.built, r)
	return r, nil
}
