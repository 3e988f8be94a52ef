package runner

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotStarted is returned when a runner is used before Start succeeded.
	ErrNotStarted = errors.New("runner not started")
	// ErrShardOutOfRange is returned for a shard index the deployment does not have.
	ErrShardOutOfRange = errors.New("shard index out of range")
	// ErrNoReplica is returned when the deployment has no replica to connect to.
	ErrNoReplica = errors.New("deployment has no replica")
	// ErrNotOwned is returned for process operations on a deployment rltest did not start.
	ErrNotOwned = errors.New("deployment is not owned by rltest")
)

// Conn executes commands against one server or cluster.
// Do returns protocol-level and server-reported errors as errors.
type Conn interface {
	Do(ctx context.Context, args ...interface{}) (interface{}, error)
	Close() error
}

// Runner owns the lifecycle of one deployment.
type Runner interface {
	// Start brings the deployment up and blocks until it accepts commands.
	Start(ctx context.Context) error
	// Stop tears the deployment down and releases its connections.
	Stop(ctx context.Context) error

	// Conn returns the connection for a 1-based shard index; 0 is the default connection.
	Conn(shard int) (Conn, error)
	// ReplicaConn returns a connection to a replica of the first shard.
	ReplicaConn() (Conn, error)

	// Flush removes all data from every shard.
	Flush(ctx context.Context) error
	// DumpAndReload persists the dataset and loads it back, restarting the
	// server processes when restart is set. shard 0 means every shard.
	DumpAndReload(ctx context.Context, restart bool, shard int) error
	// Broadcast sends one command to every shard.
	Broadcast(ctx context.Context, args ...interface{}) error

	// ExitCode reports the exit code of the deployment's processes, 0 when all exited cleanly.
	ExitCode() int
	// IsUp reports whether every process of the deployment is running.
	IsUp() bool
	// IsCluster reports whether commands are routed across shards.
	IsCluster() bool
	// ShardCount reports how many shards the deployment has.
	ShardCount() int
	// PrintEnvData writes a human readable description, each line prefixed.
	PrintEnvData(w io.Writer, prefix string)
}
