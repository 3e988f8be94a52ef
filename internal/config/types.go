package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTopology is returned when a topology identifier is not recognised.
var ErrUnknownTopology = errors.New("unknown topology")

// Topology identifies the kind of deployment a test runs against.
type Topology string

const (
	TopologyOSS               Topology = "oss"
	TopologyOSSCluster        Topology = "oss-cluster"
	TopologyEnterprise        Topology = "enterprise"
	TopologyEnterpriseCluster Topology = "enterprise-cluster"
	TopologyExisting          Topology = "existing-env"
	TopologyExistingCluster   Topology = "cluster_existing-env"
)

// Topologies lists every supported identifier in display order.
var Topologies = []Topology{
	TopologyOSS,
	TopologyOSSCluster,
	TopologyEnterprise,
	TopologyEnterpriseCluster,
	TopologyExisting,
	TopologyExistingCluster,
}

// ParseTopology validates a topology identifier. Matching is case-sensitive.
func ParseTopology(s string) (Topology, error) {
	for _, t := range Topologies {
		if string(t) == s {
			return t, nil
		}
	}
	names := make([]string, 0, len(Topologies))
	for _, t := range Topologies {
		names = append(names, string(t))
	}
	return "", fmt.Errorf("%w %q, must be one of: %s", ErrUnknownTopology, s, strings.Join(names, ", "))
}

// IsExisting reports whether the topology wraps a deployment rltest does not own.
func (t Topology) IsExisting() bool {
	return t == TopologyExisting || t == TopologyExistingCluster
}

// Defaults is the process-wide configuration surface. Every field can be
// overridden per test through env.Options.
type Defaults struct {
	// Module is the path to a server module loaded at startup
	Module string `mapstructure:"module" yaml:"module,omitempty"`
	// ModuleArgs are passed to the module in order
	ModuleArgs []string `mapstructure:"module_args" yaml:"module_args,omitempty"`
	// Env is the topology to start
	Env Topology `mapstructure:"env" yaml:"env"`

	// RedisBinary is the standard server binary
	RedisBinary string `mapstructure:"oss_redis_path" yaml:"oss_redis_path"`
	// EnterpriseBinary is the managed-enterprise server binary
	EnterpriseBinary string `mapstructure:"enterprise_redis_path" yaml:"enterprise_redis_path,omitempty"`
	// EnterpriseLibPath is added to LD_LIBRARY_PATH for enterprise processes
	EnterpriseLibPath string `mapstructure:"enterprise_lib_path" yaml:"enterprise_lib_path,omitempty"`
	// ProxyBinary fronts an enterprise cluster
	ProxyBinary string `mapstructure:"proxy_binary_path" yaml:"proxy_binary_path,omitempty"`

	UseAOF      bool `mapstructure:"use_aof" yaml:"use_aof"`
	UseReplicas bool `mapstructure:"use_replicas" yaml:"use_replicas"`
	Shards      int  `mapstructure:"shards_count" yaml:"shards_count"`

	// Debugger wraps server processes, e.g. "valgrind"
	Debugger string `mapstructure:"debugger" yaml:"debugger,omitempty"`
	// Verbose at 1 prints passing assertions, at 2 environment data as well
	Verbose int `mapstructure:"verbose" yaml:"verbose"`
	// LogDir receives server logs and data files
	LogDir string `mapstructure:"log_dir" yaml:"log_dir"`

	UseUnixSocket bool `mapstructure:"unix" yaml:"unix"`
	RandomPorts   bool `mapstructure:"randomize_ports" yaml:"randomize_ports"`

	// ExistingAddress is host:port of an already running deployment
	ExistingAddress string `mapstructure:"existing_env_addr" yaml:"existing_env_addr,omitempty"`
	// ShardPorts lists the shard ports of an existing cluster
	ShardPorts []int `mapstructure:"shards_ports" yaml:"shards_ports,omitempty"`
	// Password authenticates against an existing deployment
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// HaltOnFailure aborts the current test at its first failed assertion
	HaltOnFailure bool `mapstructure:"exit_on_failure" yaml:"exit_on_failure"`
	// DebugPause waits for Enter once an environment is up so a debugger
	// can be attached to its processes
	DebugPause bool `mapstructure:"debug_pause" yaml:"debug_pause"`
	// DebugPrint echoes every command and its reply
	DebugPrint bool `mapstructure:"debug_print" yaml:"debug_print"`
}
