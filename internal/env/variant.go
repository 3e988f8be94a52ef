package env

import (
	"fmt"
	"os"
	"path/filepath"

	"rltest/internal/config"
	"rltest/internal/runner"
)

// Kind is the runner family a topology is served by.
type Kind int

const (
	KindStandalone Kind = iota
	KindCluster
	KindEnterpriseCluster
	KindExisting
	KindExistingCluster
)

func (k Kind) String() string {
	switch k {
	case KindStandalone:
		return "standalone"
	case KindCluster:
		return "cluster"
	case KindEnterpriseCluster:
		return "enterprise-cluster"
	case KindExisting:
		return "existing"
	case KindExistingCluster:
		return "existing-cluster"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf maps a topology onto its runner family. The enterprise topology
// is a standalone server started from the enterprise binary.
func KindOf(t config.Topology) (Kind, error) {
	switch t {
	case config.TopologyOSS, config.TopologyEnterprise:
		return KindStandalone, nil
	case config.TopologyOSSCluster:
		return KindCluster, nil
	case config.TopologyEnterpriseCluster:
		return KindEnterpriseCluster, nil
	case config.TopologyExisting:
		return KindExisting, nil
	case config.TopologyExistingCluster:
		return KindExistingCluster, nil
	}
	_, err := config.ParseTopology(string(t))
	return 0, err
}

// Variant is the complete configuration of one runner family. The set of
// variants is closed: StandaloneVariant, ClusterVariant,
// EnterpriseClusterVariant, ExistingVariant and ExistingClusterVariant.
type Variant interface {
	Kind() Kind
	isVariant()
}

// StandaloneVariant is a single server, optionally with a replica.
type StandaloneVariant struct {
	Server        runner.ServerOptions
	Name          string
	UseReplica    bool
	UseUnixSocket bool
	RandomPorts   bool
}

// ClusterVariant is a cluster of Shards servers.
type ClusterVariant struct {
	Server      runner.ServerOptions
	Shards      int
	UseReplicas bool
	RandomPorts bool
}

// EnterpriseClusterVariant is a set of enterprise shards behind a proxy.
type EnterpriseClusterVariant struct {
	Server      runner.ServerOptions
	Shards      int
	LibPath     string
	ProxyBinary string
	RandomPorts bool
}

// ExistingVariant wraps a running server at Address.
type ExistingVariant struct {
	Address  string
	Password string
}

// ExistingClusterVariant wraps a running cluster.
type ExistingClusterVariant struct {
	Host       string
	ShardPorts []int
	Password   string
}

func (StandaloneVariant) Kind() Kind        { return KindStandalone }
func (ClusterVariant) Kind() Kind           { return KindCluster }
func (EnterpriseClusterVariant) Kind() Kind { return KindEnterpriseCluster }
func (ExistingVariant) Kind() Kind          { return KindExisting }
func (ExistingClusterVariant) Kind() Kind   { return KindExistingCluster }

func (StandaloneVariant) isVariant()        {}
func (ClusterVariant) isVariant()           {}
func (EnterpriseClusterVariant) isVariant() {}
func (ExistingVariant) isVariant()          {}
func (ExistingClusterVariant) isVariant()   {}

// VariantFor derives the runner configuration for desc. Binaries, ports,
// the debugger and the log directory come from d; the identity fields come
// from desc.
func VariantFor(desc Descriptor, d config.Defaults) (Variant, error) {
	kind, err := KindOf(desc.Topology)
	if err != nil {
		return nil, err
	}

	logDir := d.LogDir
	if logDir != "" {
		if abs, err := filepath.Abs(logDir); err == nil {
			logDir = abs
		}
	}
	server := runner.ServerOptions{
		Binary:     d.RedisBinary,
		Module:     desc.Module,
		ModuleArgs: desc.ModuleArgs,
		UseAOF:     desc.UseAOF,
		LogDir:     logDir,
		Debugger:   d.Debugger,
	}

	switch kind {
	case KindStandalone:
		v := StandaloneVariant{
			Server:        server,
			Name:          "master",
			UseReplica:    desc.UseReplicas,
			UseUnixSocket: d.UseUnixSocket,
			RandomPorts:   d.RandomPorts,
		}
		if desc.Topology == config.TopologyEnterprise {
			if d.EnterpriseBinary == "" {
				return nil, fmt.Errorf("topology %s needs an enterprise binary", desc.Topology)
			}
			v.Server.Binary = d.EnterpriseBinary
			if d.EnterpriseLibPath != "" {
				v.Server.Env = []string{"LD_LIBRARY_PATH=" + libraryPath(d.EnterpriseLibPath)}
			}
		}
		return v, nil

	case KindCluster:
		return ClusterVariant{
			Server:      server,
			Shards:      desc.Shards,
			UseReplicas: desc.UseReplicas,
			RandomPorts: d.RandomPorts,
		}, nil

	case KindEnterpriseCluster:
		if d.EnterpriseBinary == "" || d.ProxyBinary == "" {
			return nil, fmt.Errorf("topology %s needs an enterprise binary and a proxy binary", desc.Topology)
		}
		server.Binary = d.EnterpriseBinary
		return EnterpriseClusterVariant{
			Server:      server,
			Shards:      desc.Shards,
			LibPath:     d.EnterpriseLibPath,
			ProxyBinary: d.ProxyBinary,
			RandomPorts: d.RandomPorts,
		}, nil

	case KindExisting:
		if d.ExistingAddress == "" {
			return nil, fmt.Errorf("topology %s needs an address", desc.Topology)
		}
		return ExistingVariant{Address: d.ExistingAddress, Password: d.Password}, nil

	default:
		if d.ExistingAddress == "" || len(d.ShardPorts) == 0 {
			return nil, fmt.Errorf("topology %s needs an address and shard ports", desc.Topology)
		}
		return ExistingClusterVariant{
			Host:       d.ExistingAddress,
			ShardPorts: d.ShardPorts,
			Password:   d.Password,
		}, nil
	}
}

func libraryPath(dir string) string {
	if existing := os.Getenv("LD_LIBRARY_PATH"); existing != "" {
		return dir + string(os.PathListSeparator) + existing
	}
	return dir
}

// NewRunner constructs the runner for a variant. dialer may be nil.
func NewRunner(v Variant, dialer runner.Dialer) (runner.Runner, error) {
	switch v := v.(type) {
	case StandaloneVariant:
		return runner.NewStandalone(runner.StandaloneConfig{
			ServerOptions: v.Server,
			Name:          v.Name,
			UseReplica:    v.UseReplica,
			UseUnixSocket: v.UseUnixSocket,
			RandomPorts:   v.RandomPorts,
			Dialer:        dialer,
		}), nil
	case ClusterVariant:
		return runner.NewCluster(runner.ClusterConfig{
			ServerOptions: v.Server,
			Shards:        v.Shards,
			UseReplicas:   v.UseReplicas,
			RandomPorts:   v.RandomPorts,
			Dialer:        dialer,
		}), nil
	case EnterpriseClusterVariant:
		return runner.NewEnterprise(runner.EnterpriseConfig{
			ServerOptions: v.Server,
			Shards:        v.Shards,
			LibPath:       v.LibPath,
			ProxyBinary:   v.ProxyBinary,
			RandomPorts:   v.RandomPorts,
			Dialer:        dialer,
		}), nil
	case ExistingVariant:
		return runner.NewExisting(runner.ExistingConfig{
			Address:  v.Address,
			Password: v.Password,
			Dialer:   dialer,
		}), nil
	case ExistingClusterVariant:
		return runner.NewExistingCluster(runner.ExistingClusterConfig{
			Host:       v.Host,
			ShardPorts: v.ShardPorts,
			Password:   v.Password,
			Dialer:     dialer,
		}), nil
	}
	return nil, fmt.Errorf("unsupported runner variant %T", v)
}

// Factory builds the runner for a descriptor.
type Factory interface {
	Build(desc Descriptor) (runner.Runner, error)
}

// DefaultFactory builds real runners from the configured defaults.
type DefaultFactory struct {
	Defaults config.Defaults
	// Dialer defaults to runner.DefaultDialer
	Dialer runner.Dialer
}

func (f DefaultFactory) Build(desc Descriptor) (runner.Runner, error) {
	v, err := VariantFor(desc, f.Defaults)
	if err != nil {
		return nil, err
	}
	return NewRunner(v, f.Dialer)
}
