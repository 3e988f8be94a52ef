package runner

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandalone_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dialer := newFakeDialer()
	r := NewStandalone(StandaloneConfig{
		ServerOptions: ServerOptions{Binary: fakeServerBinary(t), LogDir: t.TempDir()},
		UseReplica:    true,
		RandomPorts:   true,
		Dialer:        dialer,
	})

	assert.False(t, r.IsUp())
	require.NoError(t, r.Start(ctx))
	assert.True(t, r.IsUp())
	assert.False(t, r.IsCluster())

	primary, err := r.Conn(0)
	require.NoError(t, err)
	replica, err := r.ReplicaConn()
	require.NoError(t, err)
	assert.NotSame(t, primary, replica)

	_, err = r.Conn(2)
	assert.ErrorIs(t, err, ErrShardOutOfRange)

	require.NoError(t, r.Flush(ctx))
	assert.Contains(t, primary.(*fakeConn).sent(), "FLUSHALL")

	var buf bytes.Buffer
	r.PrintEnvData(&buf, "> ")
	assert.Contains(t, buf.String(), "> topology: standalone")
	assert.Contains(t, buf.String(), "> master-replica:")

	require.NoError(t, r.Stop(ctx))
	assert.False(t, r.IsUp())
	assert.Equal(t, 0, r.ExitCode())
	assert.True(t, primary.(*fakeConn).closed)
}

func TestStandalone_DumpAndReloadRestart(t *testing.T) {
	ctx := context.Background()
	dialer := newFakeDialer()
	r := NewStandalone(StandaloneConfig{
		ServerOptions: ServerOptions{Binary: fakeServerBinary(t), LogDir: t.TempDir()},
		RandomPorts:   true,
		Dialer:        dialer,
	})
	require.NoError(t, r.Start(ctx))
	defer r.Stop(ctx)

	before, err := r.Conn(0)
	require.NoError(t, err)
	pid := r.primary.proc.pid()

	require.NoError(t, r.DumpAndReload(ctx, false, 0))
	assert.Contains(t, before.(*fakeConn).sent(), "DEBUG RELOAD")

	require.NoError(t, r.DumpAndReload(ctx, true, 0))
	assert.Contains(t, before.(*fakeConn).sent(), "SAVE")
	assert.NotEqual(t, pid, r.primary.proc.pid())
	assert.True(t, r.IsUp())
}

func TestStandalone_ConnBeforeStart(t *testing.T) {
	r := NewStandalone(StandaloneConfig{Dialer: newFakeDialer()})

	_, err := r.Conn(0)
	assert.ErrorIs(t, err, ErrNotStarted)
	_, err = r.ReplicaConn()
	assert.ErrorIs(t, err, ErrNoReplica)
	assert.ErrorIs(t, r.Flush(context.Background()), ErrNotStarted)
}

func TestStandalone_StartFailsForMissingBinary(t *testing.T) {
	r := NewStandalone(StandaloneConfig{
		ServerOptions: ServerOptions{Binary: "/nonexistent/redis-server", LogDir: t.TempDir()},
		RandomPorts:   true,
		Dialer:        newFakeDialer(),
	})

	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start master")
	assert.False(t, r.IsUp())
}

func TestCluster_Lifecycle(t *testing.T) {
	ctx := context.Background()
	dialer := newFakeDialer()
	r := NewCluster(ClusterConfig{
		ServerOptions: ServerOptions{Binary: fakeServerBinary(t), LogDir: t.TempDir()},
		Shards:        3,
		RandomPorts:   true,
		Dialer:        dialer,
	})

	require.NoError(t, r.Start(ctx))
	assert.True(t, r.IsUp())
	assert.True(t, r.IsCluster())
	assert.Equal(t, 3, r.ShardCount())

	conn, err := r.Conn(0)
	require.NoError(t, err)
	assert.Same(t, dialer.cluster, conn)

	// every primary got its slots, the seed met the two others
	for i, s := range r.shards {
		sent := s.conn.(*fakeConn).sent()
		assert.Contains(t, sent, "CLUSTER ADDSLOTSRANGE", "shard %d", i+1)
	}
	seedSent := r.shards[0].conn.(*fakeConn).sent()
	meets := 0
	for _, c := range seedSent {
		if c == "CLUSTER MEET" {
			meets++
		}
	}
	assert.Equal(t, 2, meets)

	require.NoError(t, r.Broadcast(ctx, "FLUSHALL"))
	for _, s := range r.shards {
		assert.Contains(t, s.conn.(*fakeConn).sent(), "FLUSHALL")
	}

	shard2, err := r.Conn(2)
	require.NoError(t, err)
	assert.Same(t, r.shards[1].conn, shard2)

	require.NoError(t, r.Stop(ctx))
	assert.False(t, r.IsUp())
	assert.Equal(t, 0, r.ExitCode())
}

func TestProcess_ExitCode(t *testing.T) {
	dir := t.TempDir()
	p, err := startProcess("exit3", []string{"/bin/sh", "-c", "exit 3"}, nil, dir+"/exit3.log")
	require.NoError(t, err)
	<-p.exited

	assert.False(t, p.running())
	assert.Equal(t, 3, p.exitCode())
	require.NoError(t, p.stop(context.Background()))
}
