// Package assertion records pass/fail outcomes of test assertions.
//
// Every outcome carries the source location of the assertion as written in
// the test. The location is captured once with Here at the outermost
// public entry point and passed down explicitly, so helpers and wrappers
// in between never shift it.
//
// A Recorder either accumulates failures in its Sink for the end-of-run
// report, or, with HaltOnFailure set, appends the first failure and then
// panics with a *HaltError. The run orchestrator recovers that panic and
// marks the current test as failed:
//
//	r := &assertion.Recorder{Sink: &assertion.Failures{}}
//	r.Equal(assertion.Here(0), got, "OK")
//	fmt.Println(r.Count())
package assertion
