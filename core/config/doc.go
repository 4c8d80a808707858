// Package config loads ocsync configuration.
//
// Settings come from the process environment and from <dir>/.env, where dir
// defaults to $XDG_CONFIG_HOME/ocsync. Keys map to nested sections by
// replacing "." with "_", so REMOTE_URL sets remote.url and
// SYNC_FAILURE_THRESHOLD sets sync.failure_threshold. Defaults come from the
// `default` struct tags of each section.
//
// # Sections
//
//   - Remote: the shared WebDAV or s3 remote (written back by setup)
//   - State: the state database holding locks, failure streaks and baselines
//   - Engine: rclone binary, backup directories, timeout
//   - Schedule: periodic trigger backend and interval
//   - Sync: failure threshold
//   - Log: level and format
//   - Server: status server address and API key
//
// # Usage
//
//	cfg, err := config.LoadConfig("")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Remote.URL)
package config
