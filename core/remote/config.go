package remote

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Remote types.
const (
	TypeWebDAV = "webdav"
	TypeS3     = "s3"
)

// Config is the RemoteConnection shared by all destinations.
type Config struct {
	// Type is webdav or s3.
	Type string `mapstructure:"type" default:"webdav"`
	// Name is the rclone remote name.
	Name string `mapstructure:"name" default:"ocsync"`
	// URL is the WebDAV endpoint, or the s3 endpoint for s3 remotes.
	URL string `mapstructure:"url" default:""`
	// Vendor is the WebDAV vendor (owncloud, nextcloud, other).
	Vendor string `mapstructure:"vendor" default:"owncloud"`
	// User is the WebDAV user.
	User string `mapstructure:"user" default:""`
	// Bucket is the s3 bucket all destinations live in.
	Bucket string `mapstructure:"bucket" default:""`
	// AccessKey is the s3 access key ID.
	AccessKey string `mapstructure:"access_key" default:""`
	// SecretKey is the s3 secret key.
	SecretKey string `mapstructure:"secret_key" default:""`
	// Region is the s3 region.
	Region string `mapstructure:"region" default:""`
	// UseSSL selects https for s3 endpoints given without a scheme.
	UseSSL bool `mapstructure:"use_ssl" default:"true"`
	// CachePolicy is the VFS cache mode used for the read-only mount.
	CachePolicy string `mapstructure:"cache_policy" default:"full"`
	// MountPoint is where the remote is mounted for browsing.
	MountPoint string `mapstructure:"mount_point" default:""`
	// TimeoutSeconds bounds connectivity checks.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Configured reports whether setup has been run.
func (c Config) Configured() bool {
	switch c.Type {
	case TypeS3:
		return c.URL != "" && c.Bucket != ""
	case TypeWebDAV, "":
		return c.URL != ""
	default:
		return false
	}
}

// ResolvedMountPoint returns the mount point, defaulting to ~/<Name>.
func (c Config) ResolvedMountPoint() (string, error) {
	mp := c.MountPoint
	if mp == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, c.Name), nil
	}
	if mp == "~" || strings.HasPrefix(mp, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		mp = filepath.Join(home, strings.TrimPrefix(mp, "~"))
	}
	return filepath.Abs(mp)
}

// s3Endpoint returns the endpoint host and whether TLS is used.
func (c Config) s3Endpoint() (string, bool) {
	u, err := url.Parse(c.URL)
	if err == nil && u.Host != "" {
		return u.Host, u.Scheme == "https"
	}
	return c.URL, c.UseSSL
}
