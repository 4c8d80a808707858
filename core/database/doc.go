// Package database opens the state database shared by all invocations.
//
// The orchestrator runs as short-lived, independent processes, so everything that
// must outlive one run (execution locks, failure streaks, baselines) lives in a
// small GORM-managed database. sqlite is the default; mysql is accepted for hosts
// that keep state on a server.
//
// # Usage
//
//	db, err := database.Connect(cfg.State)
//	if err != nil {
//	    return err
//	}
//	err = database.Migrate(db, &lock.Record{}, &failure.Record{})
package database
