package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnterpriseConfig configures enterprise shards fronted by a proxy.
type EnterpriseConfig struct {
	// ServerOptions.Binary is the enterprise server binary
	ServerOptions
	Shards int
	// LibPath is prepended to LD_LIBRARY_PATH of every process
	LibPath     string
	ProxyBinary string
	RandomPorts bool
	// Dialer defaults to DefaultDialer
	Dialer Dialer
}

// proxyConfig is written as YAML and passed to the proxy with --config.
type proxyConfig struct {
	Listen proxyListen  `yaml:"listen"`
	Shards []proxyShard `yaml:"shards"`
	Log    string       `yaml:"log"`
}

type proxyListen struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type proxyShard struct {
	ID       int    `yaml:"id"`
	Endpoint string `yaml:"endpoint"`
	// SlotFirst and SlotLast bound the inclusive slot range routed to this shard
	SlotFirst int `yaml:"slot_first"`
	SlotLast  int `yaml:"slot_last"`
}

// Enterprise runs Shards enterprise server processes and a proxy that
// routes client commands to them. The default connection talks to the
// proxy; shard connections bypass it.
type Enterprise struct {
	cfg       EnterpriseConfig
	ports     *portAllocator
	dialer    Dialer
	shards    []*server
	proxy     *managedProcess
	proxyPort int
	conn      Conn
	started   time.Time
}

var _ Runner = (*Enterprise)(nil)

// NewEnterprise creates an enterprise runner. Nothing is started until Start.
func NewEnterprise(cfg EnterpriseConfig) *Enterprise {
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = DefaultDialer()
	}
	if cfg.LibPath != "" {
		ldPath := cfg.LibPath
		if existing := os.Getenv("LD_LIBRARY_PATH"); existing != "" {
			ldPath += string(os.PathListSeparator) + existing
		}
		cfg.Env = append(cfg.Env, "LD_LIBRARY_PATH="+ldPath)
	}
	return &Enterprise{
		cfg:    cfg,
		ports:  newPortAllocator(cfg.RandomPorts, defaultClusterPort),
		dialer: dialer,
	}
}

func (r *Enterprise) proxyConfigPath() string {
	return filepath.Join(r.cfg.LogDir, "proxy.yaml")
}

// Start launches the shards, writes the proxy configuration, starts the
// proxy and waits until it answers PING.
func (r *Enterprise) Start(ctx context.Context) error {
	n := r.cfg.Shards
	ports, err := r.ports.take(n + 1)
	if err != nil {
		return err
	}
	r.proxyPort = ports[n]
	if !r.cfg.RandomPorts {
		r.proxyPort = defaultProxyPort
	}

	r.shards = make([]*server, n)
	for i := range r.shards {
		r.shards[i] = newServer("shard-"+strconv.Itoa(i+1), r.cfg.ServerOptions, ports[i], "", r.dialer)
	}
	for _, s := range r.shards {
		if err := s.start(ctx); err != nil {
			_ = r.Stop(ctx)
			return fmt.Errorf("failed to start %s: %w", s.name, err)
		}
	}

	if err := r.writeProxyConfig(); err != nil {
		_ = r.Stop(ctx)
		return err
	}

	proc, err := startProcess("proxy",
		[]string{r.cfg.ProxyBinary, "--config", r.proxyConfigPath()},
		r.cfg.Env,
		filepath.Join(r.cfg.LogDir, "proxy.out.log"))
	if err != nil {
		_ = r.Stop(ctx)
		return err
	}
	r.proxy = proc
	r.conn = r.dialer.Dial(Endpoint{Network: "tcp", Addr: "127.0.0.1:" + strconv.Itoa(r.proxyPort)}, "")

	err = waitFor(ctx, "proxy", r.cfg.slowdown(), proc.running, func() error {
		return ping(ctx, r.conn)
	})
	if err != nil {
		_ = r.Stop(ctx)
		return fmt.Errorf("%w\n%s", err, proc.tail.String())
	}

	r.started = time.Now()
	return nil
}

func (r *Enterprise) writeProxyConfig() error {
	cfg := proxyConfig{
		Listen: proxyListen{Host: "127.0.0.1", Port: r.proxyPort},
		Log:    filepath.Join(r.cfg.LogDir, "proxy.log"),
	}
	for i, s := range r.shards {
		first, last := slotRange(i, len(r.shards))
		cfg.Shards = append(cfg.Shards, proxyShard{
			ID:        i + 1,
			Endpoint:  s.endpoint().Addr,
			SlotFirst: first,
			SlotLast:  last,
		})
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal proxy config: %w", err)
	}
	if err := os.WriteFile(r.proxyConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write proxy config: %w", err)
	}
	return nil
}

func (r *Enterprise) Stop(ctx context.Context) error {
	var first error
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
	if r.proxy != nil {
		first = r.proxy.stop(ctx)
	}
	if err := stopAll(ctx, r.shards); err != nil && first == nil {
		first = err
	}
	r.ports.release()
	r.started = time.Time{}
	return first
}

func (r *Enterprise) Conn(shard int) (Conn, error) {
	if r.conn == nil {
		return nil, ErrNotStarted
	}
	if shard == 0 {
		return r.conn, nil
	}
	if shard < 0 || shard > len(r.shards) {
		return nil, fmt.Errorf("%w: %d (deployment has %d shards)", ErrShardOutOfRange, shard, len(r.shards))
	}
	return r.shards[shard-1].conn, nil
}

func (r *Enterprise) ReplicaConn() (Conn, error) {
	return nil, ErrNoReplica
}

func (r *Enterprise) Flush(ctx context.Context) error {
	return r.Broadcast(ctx, "FLUSHALL")
}

func (r *Enterprise) DumpAndReload(ctx context.Context, restart bool, shard int) error {
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
	return nil
}

func (r *Enterprise) Broadcast(ctx context.Context, args ...interface{}) error {
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

func (r *Enterprise) ExitCode() int {
	if code := worstExit(r.shards); code != 0 {
		return code
	}
	if r.proxy != nil && !r.proxy.running() {
		return r.proxy.exitCode()
	}
	return 0
}

func (r *Enterprise) IsUp() bool {
	if r.proxy == nil || !r.proxy.running() {
		return false
	}
	for _, s := range r.shards {
		if !s.running() {
			return false
		}
	}
	return true
}

func (r *Enterprise) IsCluster() bool { return r.cfg.Shards > 1 }

func (r *Enterprise) ShardCount() int { return r.cfg.Shards }

func (r *Enterprise) PrintEnvData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%stopology: enterprise, shards: %d, up: %s\n", prefix, r.cfg.Shards, uptime(r.started))
	fmt.Fprintf(w, "%sproxy: 127.0.0.1:%d (%s)\n", prefix, r.proxyPort, strings.Join([]string{r.cfg.ProxyBinary, "--config", r.proxyConfigPath()}, " "))
	if r.cfg.LibPath != "" {
		fmt.Fprintf(w, "%slibrary path: %s\n", prefix, r.cfg.LibPath)
	}
	for _, s := range r.shards {
		s.printData(w, prefix+"  ")
	}
}
