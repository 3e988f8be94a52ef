// Package harness runs test cases against the environments managed by
// package env.
//
// A Case names a test, the environment overrides it needs and the body to
// run. Cases come from two places: Go code registering them in a Suite, or
// YAML scenario files that describe a list of commands and the replies
// they should produce:
//
//	name: set-get
//	env:
//	  topology: oss-cluster
//	  shards: 3
//	steps:
//	  - command: [SET, foo, bar]
//	    expect:
//	      ok: true
//	  - command: [GET, foo]
//	    expect:
//	      equal: bar
//
// The Runner executes cases one after another. Consecutive cases with the
// same environment descriptor share a running environment; a different
// descriptor stops the previous one first. Every case gets its own failure
// list, and the Reporter prints per-case outcomes and a final summary.
package harness
