// Package reconcile decides how a destination is synchronized and runs the
// engine accordingly.
//
// A destination is in one of three states:
//
//   - Unseeded: there is no established baseline for the current local/remote
//     path pair. Incremental sync is refused; the operator must pick a mode.
//   - Steady: a baseline exists and Sync runs an incremental bidirectional pass.
//   - Reconciling: Resync is re-deriving the baseline.
//
// The baseline is owned state stored in the state database. Resync writes a
// pending record before the engine runs and marks it established only on
// success. A critical engine result during Sync drops the record, so the
// destination reports Unseeded until the next Resync.
//
// Failures during Sync never change state. The caller records them with the
// failure tracker and surfaces a resync recommendation once a threshold is
// crossed; this package never resyncs on its own.
package reconcile
