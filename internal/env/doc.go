// Package env decides which server deployment each test runs against and
// gives the test a uniform handle on it.
//
// A test asks for a Descriptor. Select compares it with the previous
// test's Context: an equal descriptor reuses the running deployment, any
// difference stops it and starts a new one through a Factory. Manager
// keeps the current Context between tests for the run orchestrator; there
// is no package-level active environment.
//
// Env is the per-test facade over a Context. It runs commands, evaluates
// queries and records assertions with the call site of the test line.
package env
