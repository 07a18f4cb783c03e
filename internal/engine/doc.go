// Package engine implements the churn stream engine.
//
// The engine is the heart of churn - it generates batches of synthetic
// records on a fixed cadence, mutates the live collection, samples the
// production rate, and publishes immutable snapshots for consumers.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// The engine applies all mutations in a single goroutine for deterministic
// behavior. This ensures:
// - One mutation unit at a time (a batch, a sample, or a command)
// - No snapshot ever exposes a half-applied batch
// - Simple reasoning about ordering under reconfiguration
//
// Tick Processing Flow:
// 1. Generation timer fires at the configured interval (while Running)
// 2. Engine.Run() applies one batch: for each slot, roll update-vs-insert
// 3. Updates rebuild a random record wholesale under a fresh payload
// 4. Inserts append factory-built records with ascending ids
// 5. A fresh immutable View is published and subscribers are signalled
//
// Consumer commands (reconfiguration, delete, resort, filter, reset) are
// enqueued as closures and drained by the loop between timer firings, so
// a command never interleaves with a batch in progress.
//
// The pure mutation logic lives in Core, which owns no timers, spawns no
// goroutines, and writes no logs. The scenario harness drives Core
// directly for byte-stable runs; Engine adds the timers, the command
// queue, and the telemetry sinks on top.
//
// CRITICAL PATTERNS:
//
// Timer Identity:
// Reconfiguring any generation parameter cancels the current timer handle
// and creates a new one. A firing queued on a cancelled handle is never
// applied, so two cadences cannot briefly coexist.
//
// Deterministic Generation:
// All randomness flows from a single seeded source shared by the record
// factory and the update/insert roll. The same seed, configuration, and
// command sequence reproduces the same stream.
package engine
