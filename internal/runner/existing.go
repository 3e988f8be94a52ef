package runner

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const isUpTimeout = 2 * time.Second

// ExistingConfig points at a server that is already running.
type ExistingConfig struct {
	// Address is host:port
	Address  string
	Password string
	// Dialer defaults to DefaultDialer
	Dialer Dialer
}

// Existing wraps an already running server. It never starts or stops
// processes; Start only connects and Stop only disconnects.
type Existing struct {
	cfg    ExistingConfig
	dialer Dialer
	conn   Conn
}

var _ Runner = (*Existing)(nil)

// NewExisting creates a runner for the server at cfg.Address.
func NewExisting(cfg ExistingConfig) *Existing {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = DefaultDialer()
	}
	return &Existing{cfg: cfg, dialer: dialer}
}

func (r *Existing) Start(ctx context.Context) error {
	r.conn = r.dialer.Dial(Endpoint{Network: "tcp", Addr: r.cfg.Address}, r.cfg.Password)
	if err := waitFor(ctx, r.cfg.Address, 1, nil, func() error { return ping(ctx, r.conn) }); err != nil {
		_ = r.conn.Close()
		r.conn = nil
		return err
	}
	return nil
}

func (r *Existing) Stop(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

func (r *Existing) Conn(shard int) (Conn, error) {
	if r.conn == nil {
		return nil, ErrNotStarted
	}
	if shard < 0 || shard > 1 {
		return nil, fmt.Errorf("%w: %d (deployment has 1 shard)", ErrShardOutOfRange, shard)
	}
	return r.conn, nil
}

func (r *Existing) ReplicaConn() (Conn, error) {
	return nil, ErrNoReplica
}

func (r *Existing) Flush(ctx context.Context) error {
	return r.Broadcast(ctx, "FLUSHALL")
}

// DumpAndReload reloads the dataset in place. Restarting is refused
// because the process is not owned by rltest.
func (r *Existing) DumpAndReload(ctx context.Context, restart bool, shard int) error {
	conn, err := r.Conn(shard)
	if err != nil {
		return err
	}
	if restart {
		return fmt.Errorf("cannot restart %s: %w", r.cfg.Address, ErrNotOwned)
	}
	_, err = conn.Do(ctx, "DEBUG", "RELOAD")
	return err
}

func (r *Existing) Broadcast(ctx context.Context, args ...interface{}) error {
	conn, err := r.Conn(0)
	if err != nil {
		return err
	}
	_, err = conn.Do(ctx, args...)
	return err
}

func (r *Existing) ExitCode() int { return 0 }

func (r *Existing) IsUp() bool {
	if r.conn == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), isUpTimeout)
	defer cancel()
	return ping(ctx, r.conn) == nil
}

func (r *Existing) IsCluster() bool { return false }

func (r *Existing) ShardCount() int { return 1 }

func (r *Existing) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%stopology: existing, address: %s, connected: %t\n", prefix, r.cfg.Address, r.conn != nil)
}

// ExistingClusterConfig points at a cluster that is already running.
type ExistingClusterConfig struct {
	// Host is the shard host; a port in it is ignored
	Host       string
	ShardPorts []int
	Password   string
	// Dialer defaults to DefaultDialer
	Dialer Dialer
}

// ExistingCluster wraps an already running cluster.
type ExistingCluster struct {
	cfg    ExistingClusterConfig
	dialer Dialer
	conn   Conn
	shards []Conn
}

var _ Runner = (*ExistingCluster)(nil)

// NewExistingCluster creates a runner for the cluster described by cfg.
func NewExistingCluster(cfg ExistingClusterConfig) *ExistingCluster {
	if host, _, err := net.SplitHostPort(cfg.Host); err == nil {
		cfg.Host = host
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = DefaultDialer()
	}
	return &ExistingCluster{cfg: cfg, dialer: dialer}
}

func (r *ExistingCluster) addr(port int) string {
	return net.JoinHostPort(r.cfg.Host, strconv.Itoa(port))
}

func (r *ExistingCluster) Start(ctx context.Context) error {
	if len(r.cfg.ShardPorts) == 0 {
		return fmt.Errorf("existing cluster at %s has no shard ports", r.cfg.Host)
	}
	addrs := make([]string, 0, len(r.cfg.ShardPorts))
	for _, port := range r.cfg.ShardPorts {
		addr := r.addr(port)
		addrs = append(addrs, addr)
		conn := r.dialer.Dial(Endpoint{Network: "tcp", Addr: addr}, r.cfg.Password)
		r.shards = append(r.shards, conn)
		if err := waitFor(ctx, addr, 1, nil, func() error { return ping(ctx, conn) }); err != nil {
			_ = r.Stop(ctx)
			return err
		}
	}
	r.conn = r.dialer.DialCluster(addrs, r.cfg.Password)
	return nil
}

func (r *ExistingCluster) Stop(ctx context.Context) error {
	var first error
	if r.conn != nil {
		first = r.conn.Close()
		r.conn = nil
	}
	for _, c := range r.shards {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.shards = nil
	return first
}

func (r *ExistingCluster) Conn(shard int) (Conn, error) {
	if r.conn == nil {
		return nil, ErrNotStarted
	}
	if shard == 0 {
		return r.conn, nil
	}
	if shard < 0 || shard > len(r.shards) {
		return nil, fmt.Errorf("%w: %d (cluster has %d shards)", ErrShardOutOfRange, shard, len(r.shards))
	}
	return r.shards[shard-1], nil
}

func (r *ExistingCluster) ReplicaConn() (Conn, error) {
	return nil, ErrNoReplica
}

func (r *ExistingCluster) Flush(ctx context.Context) error {
	return r.Broadcast(ctx, "FLUSHALL")
}

func (r *ExistingCluster) DumpAndReload(ctx context.Context, restart bool, shard int) error {
	if _, err := r.Conn(shard); err != nil {
		return err
	}
	if restart {
		return fmt.Errorf("cannot restart cluster at %s: %w", r.cfg.Host, ErrNotOwned)
	}
	targets := r.shards
	if shard > 0 {
		targets = r.shards[shard-1 : shard]
	}
	for _, c := range targets {
		if _, err := c.Do(ctx, "DEBUG", "RELOAD"); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExistingCluster) Broadcast(ctx context.Context, args ...interface{}) error {
	if r.conn == nil {
		return ErrNotStarted
	}
	for i, c := range r.shards {
		if _, err := c.Do(ctx, args...); err != nil {
			return fmt.Errorf("shard %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *ExistingCluster) ExitCode() int { return 0 }

func (r *ExistingCluster) IsUp() bool {
	if r.conn == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), isUpTimeout)
	defer cancel()
	for _, c := range r.shards {
		if ping(ctx, c) != nil {
			return false
		}
	}
	return true
}

func (r *ExistingCluster) IsCluster() bool { return true }

func (r *ExistingCluster) ShardCount() int { return len(r.cfg.ShardPorts) }

func (r *ExistingCluster) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%stopology: existing cluster, host: %s, connected: %t\n", prefix, r.cfg.Host, r.conn != nil)
	for i, port := range r.cfg.ShardPorts {
		fmt.Fprintf(w, "%s  shard %d: %s\n", prefix, i+1, r.addr(port))
	}
}
