package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"
)

// StandaloneConfig configures a single server with an optional replica.
type StandaloneConfig struct {
	ServerOptions
	// Name prefixes data and log files
	Name          string
	UseReplica    bool
	UseUnixSocket bool
	RandomPorts   bool
	// Dialer defaults to DefaultDialer
	Dialer Dialer
}

// Standalone runs one server process, plus a replica when configured.
type Standalone struct {
	cfg     StandaloneConfig
	ports   *portAllocator
	dialer  Dialer
	primary *server
	replica *server
	started time.Time
}

var _ Runner = (*Standalone)(nil)

// NewStandalone creates a standalone runner. Nothing is started until Start.
func NewStandalone(cfg StandaloneConfig) *Standalone {
	if cfg.Name == "" {
		cfg.Name = "master"
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = DefaultDialer()
	}
	return &Standalone{
		cfg:    cfg,
		ports:  newPortAllocator(cfg.RandomPorts, defaultStandalonePort),
		dialer: dialer,
	}
}

// Start launches the primary, then the replica, and waits for replication.
func (r *Standalone) Start(ctx context.Context) error {
	n := 1
	if r.cfg.UseReplica {
		n = 2
	}
	ports, err := r.ports.take(n)
	if err != nil {
		return err
	}

	socket := ""
	if r.cfg.UseUnixSocket {
		socket = filepath.Join(r.cfg.LogDir, r.cfg.Name+".sock")
	}
	r.primary = newServer(r.cfg.Name, r.cfg.ServerOptions, ports[0], socket, r.dialer)
	if err := r.primary.start(ctx); err != nil {
		_ = r.Stop(ctx)
		return fmt.Errorf("failed to start %s: %w", r.cfg.Name, err)
	}

	if r.cfg.UseReplica {
		name := r.cfg.Name + "-replica"
		r.replica = newServer(name, r.cfg.ServerOptions, ports[1], "", r.dialer,
			"--replicaof", "127.0.0.1", strconv.Itoa(ports[0]))
		if err := r.replica.start(ctx); err != nil {
			_ = r.Stop(ctx)
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		err := waitFor(ctx, name+" replication link", r.cfg.slowdown(), r.replica.running, func() error {
			return expectInfo(ctx, r.replica.conn, "master_link_status", "up", "INFO", "replication")
		})
		if err != nil {
			_ = r.Stop(ctx)
			return err
		}
	}

	r.started = time.Now()
	return nil
}

// Stop terminates the replica first, then the primary.
func (r *Standalone) Stop(ctx context.Context) error {
	var servers []*server
	if r.primary != nil {
		servers = append(servers, r.primary)
	}
	if r.replica != nil {
		servers = append(servers, r.replica)
	}
	err := stopAll(ctx, servers)
	r.ports.release()
	r.started = time.Time{}
	return err
}

func (r *Standalone) Conn(shard int) (Conn, error) {
	if r.primary == nil || r.primary.conn == nil {
		return nil, ErrNotStarted
	}
	if shard < 0 || shard > 1 {
		return nil, fmt.Errorf("%w: %d (standalone has 1 shard)", ErrShardOutOfRange, shard)
	}
	return r.primary.conn, nil
}

func (r *Standalone) ReplicaConn() (Conn, error) {
	if !r.cfg.UseReplica {
		return nil, ErrNoReplica
	}
	if r.replica == nil || r.replica.conn == nil {
		return nil, ErrNotStarted
	}
	return r.replica.conn, nil
}

func (r *Standalone) Flush(ctx context.Context) error {
	conn, err := r.Conn(0)
	if err != nil {
		return err
	}
	_, err = conn.Do(ctx, "FLUSHALL")
	return err
}

func (r *Standalone) DumpAndReload(ctx context.Context, restart bool, shard int) error {
	if _, err := r.Conn(shard); err != nil {
		return err
	}
	if err := r.primary.dumpAndReload(ctx, restart); err != nil {
		return err
	}
	if restart && r.replica != nil {
		return waitFor(ctx, r.replica.name+" replication link", r.cfg.slowdown(), r.replica.running, func() error {
			return expectInfo(ctx, r.replica.conn, "master_link_status", "up", "INFO", "replication")
		})
	}
	return nil
}

func (r *Standalone) Broadcast(ctx context.Context, args ...interface{}) error {
	conn, err := r.Conn(0)
	if err != nil {
		return err
	}
	_, err = conn.Do(ctx, args...)
	return err
}

func (r *Standalone) ExitCode() int {
	var servers []*server
	if r.primary != nil {
		servers = append(servers, r.primary)
	}
	if r.replica != nil {
		servers = append(servers, r.replica)
	}
	return worstExit(servers)
}

func (r *Standalone) IsUp() bool {
	if r.primary == nil || !r.primary.running() {
		return false
	}
	return r.replica == nil || r.replica.running()
}

func (r *Standalone) IsCluster() bool { return false }

func (r *Standalone) ShardCount() int { return 1 }

func (r *Standalone) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%stopology: standalone, up: %s\n", prefix, uptime(r.started))
	if r.primary != nil {
		r.primary.printData(w, prefix)
	}
	if r.replica != nil {
		r.replica.printData(w, prefix)
	}
}
