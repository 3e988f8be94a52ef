package runner

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"rltest/pkg/logging"
)

const clusterSlots = 16384

// ClusterConfig configures a sharded cluster of server processes.
type ClusterConfig struct {
	ServerOptions
	Shards      int
	UseReplicas bool
	RandomPorts bool
	// Dialer defaults to DefaultDialer
	Dialer Dialer
}

// Cluster runs Shards cluster-enabled primaries, each optionally with a
// replica, with the slot range split evenly between the primaries.
type Cluster struct {
	cfg      ClusterConfig
	ports    *portAllocator
	dialer   Dialer
	shards   []*server
	replicas []*server
	conn     Conn
	started  time.Time
}

var _ Runner = (*Cluster)(nil)

// NewCluster creates a cluster runner. Nothing is started until Start.
func NewCluster(cfg ClusterConfig) *Cluster {
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = DefaultDialer()
	}
	return &Cluster{
		cfg:    cfg,
		ports:  newPortAllocator(cfg.RandomPorts, defaultClusterPort),
		dialer: dialer,
	}
}

// slotRange returns the inclusive slot range owned by the 0-based shard i of n.
func slotRange(i, n int) (int, int) {
	first := i * clusterSlots / n
	last := (i+1)*clusterSlots/n - 1
	return first, last
}

func clusterArgs(name string) []string {
	return []string{
		"--cluster-enabled", "yes",
		"--cluster-config-file", name + "-nodes.conf",
		"--cluster-node-timeout", "5000",
	}
}

// Start launches every node, assigns slots, joins the nodes and waits for
// the cluster to report a healthy state.
func (r *Cluster) Start(ctx context.Context) error {
	n := r.cfg.Shards
	total := n
	if r.cfg.UseReplicas {
		total *= 2
	}
	ports, err := r.ports.take(total)
	if err != nil {
		return err
	}

	r.shards = make([]*server, n)
	for i := 0; i < n; i++ {
		name := "shard-" + strconv.Itoa(i+1)
		r.shards[i] = newServer(name, r.cfg.ServerOptions, ports[i], "", r.dialer, clusterArgs(name)...)
	}
	if r.cfg.UseReplicas {
		r.replicas = make([]*server, n)
		for i := 0; i < n; i++ {
			name := "shard-" + strconv.Itoa(i+1) + "-replica"
			r.replicas[i] = newServer(name, r.cfg.ServerOptions, ports[n+i], "", r.dialer, clusterArgs(name)...)
		}
	}

	for _, s := range r.nodes() {
		if err := s.start(ctx); err != nil {
			_ = r.Stop(ctx)
			return fmt.Errorf("failed to start %s: %w", s.name, err)
		}
	}

	if err := r.form(ctx); err != nil {
		_ = r.Stop(ctx)
		return fmt.Errorf("failed to form cluster: %w", err)
	}

	addrs := make([]string, 0, n)
	for _, s := range r.shards {
		addrs = append(addrs, s.endpoint().Addr)
	}
	r.conn = r.dialer.DialCluster(addrs, "")
	r.started = time.Now()
	return nil
}

func (r *Cluster) nodes() []*server {
	nodes := make([]*server, 0, len(r.shards)+len(r.replicas))
	nodes = append(nodes, r.shards...)
	return append(nodes, r.replicas...)
}

// form assigns slots to the primaries, introduces every node to the first
// shard and attaches replicas to their primaries.
func (r *Cluster) form(ctx context.Context) error {
	n := len(r.shards)
	for i, s := range r.shards {
		first, last := slotRange(i, n)
		if _, err := s.conn.Do(ctx, "CLUSTER", "ADDSLOTSRANGE", first, last); err != nil {
			return fmt.Errorf("%s: assigning slots %d-%d: %w", s.name, first, last, err)
		}
	}

	seed := r.shards[0]
	for _, s := range r.nodes()[1:] {
		if _, err := seed.conn.Do(ctx, "CLUSTER", "MEET", "127.0.0.1", s.port); err != nil {
			return fmt.Errorf("%s: meeting %s: %w", seed.name, s.name, err)
		}
	}

	for i, replica := range r.replicas {
		primaryID, err := nodeID(ctx, r.shards[i])
		if err != nil {
			return err
		}
		// the replica only accepts REPLICATE once it knows the primary
		err = waitFor(ctx, replica.name+" replicate", r.cfg.slowdown(), replica.running, func() error {
			_, err := replica.conn.Do(ctx, "CLUSTER", "REPLICATE", primaryID)
			return err
		})
		if err != nil {
			return err
		}
	}

	return r.waitHealthy(ctx)
}

// waitHealthy waits until every node reports cluster_state:ok.
func (r *Cluster) waitHealthy(ctx context.Context) error {
	for _, s := range r.nodes() {
		err := waitFor(ctx, s.name+" cluster state", r.cfg.slowdown(), s.running, func() error {
			return expectInfo(ctx, s.conn, "cluster_state", "ok", "CLUSTER", "INFO")
		})
		if err != nil {
			return err
		}
	}
	logging.Info("Runner", "Cluster of %d shards is healthy", len(r.shards))
	return nil
}

func nodeID(ctx context.Context, s *server) (string, error) {
	res, err := s.conn.Do(ctx, "CLUSTER", "MYID")
	if err != nil {
		return "", fmt.Errorf("%s: CLUSTER MYID: %w", s.name, err)
	}
	id, ok := res.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%s: unexpected CLUSTER MYID reply %v", s.name, res)
	}
	return id, nil
}

func (r *Cluster) Stop(ctx context.Context) error {
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
	err := stopAll(ctx, r.nodes())
	r.ports.release()
	r.started = time.Time{}
	return err
}

func (r *Cluster) Conn(shard int) (Conn, error) {
	if r.conn == nil {
		return nil, ErrNotStarted
	}
	if shard == 0 {
		return r.conn, nil
	}
	if shard < 0 || shard > len(r.shards) {
		return nil, fmt.Errorf("%w: %d (cluster has %d shards)", ErrShardOutOfRange, shard, len(r.shards))
	}
	return r.shards[shard-1].conn, nil
}

func (r *Cluster) ReplicaConn() (Conn, error) {
	if !r.cfg.UseReplicas {
		return nil, ErrNoReplica
	}
	if len(r.replicas) == 0 || r.replicas[0].conn == nil {
		return nil, ErrNotStarted
	}
	return r.replicas[0].conn, nil
}

func (r *Cluster) Flush(ctx context.Context) error {
	return r.Broadcast(ctx, "FLUSHALL")
}

func (r *Cluster) DumpAndReload(ctx context.Context, restart bool, shard int) error {
	if _, err := r.Conn(shard); err != nil {
		return err
	}
	targets := r.shards
	if shard > 0 {
		targets = r.shards[shard-1 : shard]
	}
	for _, s := range targets {
		if err := s.dumpAndReload(ctx, restart); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if restart {
		return r.waitHealthy(ctx)
	}
	return nil
}

// Broadcast sends the command to every primary.
func (r *Cluster) Broadcast(ctx context.Context, args ...interface{}) error {
	if r.conn == nil {
		return ErrNotStarted
	}
	for _, s := range r.shards {
		if _, err := s.conn.Do(ctx, args...); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (r *Cluster) ExitCode() int { return worstExit(r.nodes()) }

func (r *Cluster) IsUp() bool {
	if len(r.shards) == 0 {
		return false
	}
	for _, s := range r.nodes() {
		if !s.running() {
			return false
		}
	}
	return true
}

func (r *Cluster) IsCluster() bool { return true }

func (r *Cluster) ShardCount() int { return r.cfg.Shards }

func (r *Cluster) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%stopology: cluster, shards: %d, up: %s\n", prefix, r.cfg.Shards, uptime(r.started))
	for i, s := range r.shards {
		first, last := slotRange(i, len(r.shards))
		fmt.Fprintf(w, "%sslots %s: %d-%d\n", prefix, s.name, first, last)
		s.printData(w, prefix+"  ")
	}
	for _, s := range r.replicas {
		s.printData(w, prefix+"  ")
	}
}
