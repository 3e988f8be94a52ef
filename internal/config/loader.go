package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/rltest"
	projectConfigDir = ".rltest"
	configFileName   = "config.yaml"
	envPrefix        = "RLTEST"
)

// flagKeys maps command line flag names onto configuration keys.
var flagKeys = map[string]string{
	"env":                   "env",
	"module":                "module",
	"module-args":           "module_args",
	"oss-redis-path":        "oss_redis_path",
	"enterprise-redis-path": "enterprise_redis_path",
	"enterprise-lib-path":   "enterprise_lib_path",
	"proxy-binary-path":     "proxy_binary_path",
	"use-aof":               "use_aof",
	"use-replicas":          "use_replicas",
	"shards-count":          "shards_count",
	"debugger":              "debugger",
	"verbose":               "verbose",
	"log-dir":               "log_dir",
	"unix":                  "unix",
	"randomize-ports":       "randomize_ports",
	"existing-env-addr":     "existing_env_addr",
	"shards-ports":          "shards_ports",
	"password":              "password",
	"exit-on-failure":       "exit_on_failure",
	"debug-pause":           "debug_pause",
	"debug-print":           "debug_print",
}

// RegisterFlags adds one flag per configuration key to fs. Flag defaults
// mirror Default so that an unset flag never masks a file or env setting.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("env", string(d.Env), "Topology to run tests against (oss, oss-cluster, enterprise, enterprise-cluster, existing-env, cluster_existing-env)")
	fs.String("module", d.Module, "Path to a module loaded by every server")
	fs.StringSlice("module-args", d.ModuleArgs, "Arguments passed to the module, in order")
	fs.String("oss-redis-path", d.RedisBinary, "Path to the standard server binary")
	fs.String("enterprise-redis-path", d.EnterpriseBinary, "Path to the enterprise server binary")
	fs.String("enterprise-lib-path", d.EnterpriseLibPath, "Library path used by enterprise processes")
	fs.String("proxy-binary-path", d.ProxyBinary, "Path to the enterprise proxy binary")
	fs.Bool("use-aof", d.UseAOF, "Enable the append-only log on every server")
	fs.Bool("use-replicas", d.UseReplicas, "Start a replica next to every primary")
	fs.Int("shards-count", d.Shards, "Number of shards for cluster topologies")
	fs.String("debugger", d.Debugger, "Debugger wrapping server processes (valgrind)")
	fs.CountP("verbose", "v", "Increase output verbosity (repeatable)")
	fs.String("log-dir", d.LogDir, "Directory for server logs and data files")
	fs.Bool("unix", d.UseUnixSocket, "Connect over unix sockets instead of TCP")
	fs.Bool("randomize-ports", d.RandomPorts, "Pick free ports instead of the fixed defaults")
	fs.String("existing-env-addr", d.ExistingAddress, "host:port of an already running deployment")
	fs.IntSlice("shards-ports", d.ShardPorts, "Shard ports of an already running cluster")
	fs.String("password", d.Password, "Password for an already running deployment")
	fs.Bool("exit-on-failure", d.HaltOnFailure, "Abort a test at its first failed assertion")
	fs.Bool("debug-pause", d.DebugPause, "Wait for Enter once an environment is up, to attach a debugger")
	fs.Bool("debug-print", d.DebugPrint, "Print every command and its reply")
}

// Load builds the effective configuration by layering defaults, the user
// file, the project file, RLTEST_* variables and finally the flags in fs.
// fs may be nil.
func Load(fs *pflag.FlagSet) (Defaults, error) {
	v := viper.New()

	// 1. Start with the default configuration
	setDefaults(v, Default())

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else if err := mergeFile(v, userConfigPath); err != nil {
		return Defaults{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	// 3. Project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else if err := mergeFile(v, projectConfigPath); err != nil {
		return Defaults{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	// 4. Environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// 5. Flags, only when explicitly set
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Defaults{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var d Defaults
	if err := v.Unmarshal(&d); err != nil {
		return Defaults{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if d.ModuleArgs == nil {
		d.ModuleArgs = []string{}
	}
	return d, nil
}

func setDefaults(v *viper.Viper, d Defaults) {
	v.SetDefault("env", string(d.Env))
	v.SetDefault("module", d.Module)
	v.SetDefault("module_args", d.ModuleArgs)
	v.SetDefault("oss_redis_path", d.RedisBinary)
	v.SetDefault("enterprise_redis_path", d.EnterpriseBinary)
	v.SetDefault("enterprise_lib_path", d.EnterpriseLibPath)
	v.SetDefault("proxy_binary_path", d.ProxyBinary)
	v.SetDefault("use_aof", d.UseAOF)
	v.SetDefault("use_replicas", d.UseReplicas)
	v.SetDefault("shards_count", d.Shards)
	v.SetDefault("debugger", d.Debugger)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("log_dir", d.LogDir)
	v.SetDefault("unix", d.UseUnixSocket)
	v.SetDefault("randomize_ports", d.RandomPorts)
	v.SetDefault("existing_env_addr", d.ExistingAddress)
	v.SetDefault("shards_ports", d.ShardPorts)
	v.SetDefault("password", d.Password)
	v.SetDefault("exit_on_failure", d.HaltOnFailure)
	v.SetDefault("debug_pause", d.DebugPause)
	v.SetDefault("debug_print", d.DebugPrint)
}

// mergeFile merges a YAML file into v. A missing file is not an error.
func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return v.MergeInConfig()
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}
