package remote

import (
	"context"
	"fmt"
	"strings"

	"ocsync/core/runner"
)

// Provision registers the rclone remote for cfg, replacing any existing remote
// with the same name. password is the WebDAV password and is stored obscured
// by rclone; it is never written to ocsync's own configuration.
func Provision(ctx context.Context, r runner.Runner, binary string, cfg Config, password string) error {
	calls, err := provisionCalls(cfg, password)
	if err != nil {
		return err
	}
	for _, args := range calls {
		if res, err := r.Run(ctx, binary, args); err != nil {
			if out := strings.TrimSpace(res.Combined()); out != "" {
				return fmt.Errorf("failed to register remote %s: %w: %s", cfg.Name, err, out)
			}
			return fmt.Errorf("failed to register remote %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// provisionCalls returns the rclone argument lists that register cfg.
//
// An s3 remote is registered as "<name>-s3" plus an alias "<name>" rooted at
// the bucket, so destination paths stay relative to the same root for both
// remote types.
func provisionCalls(cfg Config, password string) ([][]string, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("remote name is empty")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote url is empty")
	}

	switch cfg.Type {
	case TypeWebDAV, "":
		vendor := cfg.Vendor
		if vendor == "" {
			vendor = "other"
		}
		args := []string{"config", "create", cfg.Name, "webdav",
			"url=" + cfg.URL,
			"vendor=" + vendor,
		}
		if cfg.User != "" {
			args = append(args, "user="+cfg.User)
		}
		if password != "" {
			args = append(args, "pass="+password)
		}
		return [][]string{append(args, "--obscure", "--non-interactive")}, nil

	case TypeS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 bucket is empty")
		}
		backend := cfg.Name + "-s3"
		s3 := []string{"config", "create", backend, "s3",
			"provider=Other",
			"endpoint=" + cfg.URL,
			"access_key_id=" + cfg.AccessKey,
			"secret_access_key=" + cfg.SecretKey,
		}
		if cfg.Region != "" {
			s3 = append(s3, "region="+cfg.Region)
		}
		s3 = append(s3, "--non-interactive")
		alias := []string{"config", "create", cfg.Name, "alias",
			"remote=" + backend + ":" + cfg.Bucket,
			"--non-interactive",
		}
		return [][]string{s3, alias}, nil

	default:
		return nil, fmt.Errorf("unsupported remote type %q", cfg.Type)
	}
}
