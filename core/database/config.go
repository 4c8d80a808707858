package database

// Config holds configuration for the state database that stores locks,
// failure streaks and baselines.
type Config struct {
	// Driver is the database driver (sqlite, mysql).
	Driver string `mapstructure:"driver" default:"sqlite"`
	// Path is the sqlite database file. Empty selects the default state directory.
	Path string `mapstructure:"path" default:""`
	// Host is the database host (mysql only).
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port (mysql only).
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user (mysql only).
	User string `mapstructure:"user" default:"root"`
	// Password is the database password (mysql only).
	Password string `mapstructure:"password" default:""`
	// Name is the database name (mysql only).
	Name string `mapstructure:"name" default:"ocsync"`
	// TimeoutSeconds bounds connection setup and, for sqlite, lock waits.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"10"`
}
