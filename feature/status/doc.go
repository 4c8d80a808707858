// Package status aggregates the health of the remote, the browse mount and
// every destination into one read-only report.
//
// A report is built from three sources at once: the remote connectivity
// check, the mount liveness check and the per destination state (paths,
// reconciliation state, lock, schedule, failure streak). Building never
// writes anything, so it is safe while syncs are running.
//
// The report is rendered as a text table for the terminal, or as JSON or YAML.
// The serve command exposes it over HTTP, where concurrent requests share one
// build through a short lived cache, and as Prometheus gauges on /metrics.
package status
