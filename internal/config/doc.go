// Package config provides the default settings for rltest.
//
// Defaults describe how environments are built when a test does not
// override a setting itself: which topology to start, which module to load,
// where the server binaries live, how many shards to run and how assertion
// failures are handled.
//
// # Configuration Layers
//
// Settings are merged in the following order, later layers overriding
// earlier ones:
//
//  1. Built-in defaults (see Default)
//  2. User configuration (~/.config/rltest/config.yaml)
//  3. Project configuration (./.rltest/config.yaml)
//  4. RLTEST_* environment variables (RLTEST_ENV, RLTEST_SHARDS_COUNT, ...)
//  5. Command line flags registered with RegisterFlags
//
// # Configuration File
//
//	env: oss-cluster
//	shards_count: 3
//	module: ./build/mymodule.so
//	module_args: ["MAXDOCS", "100"]
//	use_aof: false
//	use_replicas: false
//	log_dir: ./logs
//	exit_on_failure: true
//
// # Topologies
//
// The topology identifiers are case-sensitive:
//
//   - oss: a single server process
//   - oss-cluster: a sharded cluster of server processes
//   - enterprise: a single-shard managed cluster behind a proxy
//   - enterprise-cluster: a multi-shard managed cluster behind a proxy
//   - existing-env: a deployment that is already running
//   - cluster_existing-env: an already running cluster
package config
