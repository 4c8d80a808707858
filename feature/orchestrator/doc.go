// Package orchestrator runs the destination level commands: sync, resync,
// install, uninstall and removal.
//
// Every run of a single destination follows the same shape: load the
// destination, take its execution lock, let the reconciliation controller
// drive the engine, update the failure streak from the outcome and release
// the lock on every exit path. Lock contention is not an error; the run is
// skipped and reported as such.
//
// Runs of different destinations are independent. SyncAll visits each
// destination in turn and a failure in one never stops the others.
package orchestrator
