// Package runner starts, stops and talks to the server deployments tests run
// against.
//
// Every topology is served by one Runner implementation:
//
//   - Standalone: one server process, optionally with a replica
//   - Cluster: a sharded cluster of server processes
//   - Enterprise: enterprise shards behind a proxy process
//   - Existing: an already running server rltest does not own
//   - ExistingCluster: an already running cluster rltest does not own
//
// Runners block in Start until the deployment accepts commands, so callers
// can treat a started runner as ready. Connections are handed out through
// the Conn interface, which is satisfied by go-redis clients in production
// and by fakes in tests.
//
// Shard indices are 1-based. Index 0 selects the default connection, which
// for clustered topologies routes commands to the right shard.
package runner
