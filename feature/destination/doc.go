// Package destination is the registry of named sync destinations.
//
// Each destination is one dotenv file, <config_dir>/destinations/<name>.env,
// holding its local path, remote path and exclude patterns. Names are limited
// to letters, digits, '-' and '_' so they are safe as file names, schedule
// labels and database keys.
//
// Removing a destination runs the registered cleanup hooks (schedule, lock,
// failure streak, baseline) before its file is deleted, so no state keyed by
// the name outlives it.
package destination
