package schedule

// Config holds configuration for periodic sync triggers.
type Config struct {
	// Backend is auto, launchd, systemd or cron.
	Backend string `mapstructure:"backend" default:"auto"`
	// LabelPrefix prefixes every registration identifier.
	LabelPrefix string `mapstructure:"label_prefix" default:"com.ocsync"`
	// IntervalSeconds is how often each destination is synced.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"60"`
	// CronSpec overrides the crontab schedule used by the cron backend.
	// Empty derives it from IntervalSeconds.
	CronSpec string `mapstructure:"cron_spec" default:""`
	// Executable is the ocsync binary to invoke. Empty means the running binary.
	Executable string `mapstructure:"executable" default:""`
	// LogDir receives per-destination logs of scheduled runs.
	LogDir string `mapstructure:"log_dir" default:""`
}
