package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"ocsync/core/database"
	"ocsync/core/engine"
	"ocsync/core/failure"
	"ocsync/core/logger"
	"ocsync/core/remote"
	"ocsync/core/schedule"
	"ocsync/core/server"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Remote is the shared remote connection.
	Remote remote.Config `mapstructure:"remote"`
	// State holds configuration for the state database.
	State database.Config `mapstructure:"state"`
	// Engine holds configuration for the synchronization engine.
	Engine engine.Config `mapstructure:"engine"`
	// Schedule holds configuration for periodic triggers.
	Schedule schedule.Config `mapstructure:"schedule"`
	// Sync holds configuration for failure tracking.
	Sync failure.Config `mapstructure:"sync"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Server holds configuration for the status HTTP server.
	Server server.Config `mapstructure:"server"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// DestinationsDir returns the directory holding one file per destination.
func (c *Config) DestinationsDir() string {
	return filepath.Join(c.Dir, "destinations")
}

// DefaultDir returns $XDG_CONFIG_HOME/ocsync or ~/.config/ocsync.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ocsync"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ocsync"), nil
}

// LoadConfig loads configuration from environment variables and the .env file in dir.
func LoadConfig(dir string) (*Config, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}

	// Values in .env win over the inherited environment.
	if err := godotenv.Overload(envPath(dir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envPath(dir), err)
	}

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. REMOTE_URL -> remote.url)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Dir = dir

	return &config, nil
}

// SaveRemote writes the remote section to the .env file in dir, keeping any
// other entries already present.
func SaveRemote(dir string, rc remote.Config) error {
	path := envPath(dir)
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		values = map[string]string{}
	}

	for key, value := range envValues(rc, "remote") {
		values[key] = value
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	// The file may carry s3 credentials: it is created 0600 and renamed into place.
	tmp, err := os.CreateTemp(dir, ".env-*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if _, err := tmp.WriteString(content + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func envPath(dir string) string {
	return filepath.Join(dir, ".env")
}

// envValues flattens a tagged struct into KEY=value pairs under prefix.
func envValues(iface any, prefix string) map[string]string {
	out := map[string]string{}
	val := reflect.ValueOf(iface)
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := strings.ToUpper(prefix + "_" + tag)
		out[key] = fmt.Sprint(val.Field(i).Interface())
	}
	return out
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" || tag == "-" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
