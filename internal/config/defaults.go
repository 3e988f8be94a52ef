package config

import (
	"errors"
	"fmt"
)

const (
	defaultRedisBinary     = "redis-server"
	defaultLogDir          = "./logs"
	// defaultExistingAddress is where an existing-env deployment is looked
	// for when no address is configured
	defaultExistingAddress = "localhost:6379"
)

// Default returns the built-in settings: a single oss server with no module.
func Default() Defaults {
	return Defaults{
		Env:         TopologyOSS,
		ModuleArgs:  []string{},
		RedisBinary: defaultRedisBinary,
		Shards:      1,
		LogDir:      defaultLogDir,
		Verbose:     0,

		ExistingAddress: defaultExistingAddress,
	}
}

// Validate checks a fully merged configuration.
func Validate(d Defaults) error {
	if _, err := ParseTopology(string(d.Env)); err != nil {
		return err
	}

	var errs []error
	if d.Shards < 1 {
		errs = append(errs, fmt.Errorf("shards_count must be at least 1, got %d", d.Shards))
	}
	if d.Verbose < 0 {
		errs = append(errs, fmt.Errorf("verbose must not be negative, got %d", d.Verbose))
	}
	if d.Env.IsExisting() && d.ExistingAddress == "" {
		errs = append(errs, fmt.Errorf("existing_env_addr is required for env %q", d.Env))
	}
	if d.Env == TopologyExistingCluster && len(d.ShardPorts) == 0 {
		errs = append(errs, errors.New("shards_ports is required for env cluster_existing-env"))
	}
	if (d.Env == TopologyEnterprise || d.Env == TopologyEnterpriseCluster) && d.EnterpriseBinary == "" {
		errs = append(errs, fmt.Errorf("enterprise_redis_path is required for env %q", d.Env))
	}
	return errors.Join(errs...)
}
