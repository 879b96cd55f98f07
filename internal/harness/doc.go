// Package harness runs YAML-described end-to-end scenarios against an
// in-process device and probe pair connected over loopback.
//
// A scenario is a list of steps (connect, subscribe, control writes,
// streaming expectations) executed in order; any failing step aborts
// the scenario. Scenario files live under testdata and drive the root
// integration test.
package harness
