package remote

import (
	"context"
	"fmt"
	"time"

	"ocsync/core/apperr"
	"ocsync/core/storage"
)

// Lister lists the top level of the configured remote.
type Lister interface {
	ListRemote(ctx context.Context) error
}

// Checker reports remote reachability.
type Checker struct {
	cfg       Config
	lister    Lister
	newClient func(storage.Config) (storage.Client, error)
}

// NewChecker creates a checker. lister is used for WebDAV remotes.
func NewChecker(cfg Config, lister Lister) *Checker {
	return &Checker{cfg: cfg, lister: lister, newClient: storage.NewClient}
}

// WithStorageClient overrides how s3 clients are created.
func (c *Checker) WithStorageClient(fn func(storage.Config) (storage.Client, error)) *Checker {
	c.newClient = fn
	return c
}

// Check lists the remote. It returns a configuration error when setup has not
// been run and a connectivity error when the remote cannot be listed.
func (c *Checker) Check(ctx context.Context) error {
	const op = "remote.check"

	if !c.cfg.Configured() {
		return apperr.Configuration(op, "remote is not configured", nil, "setup")
	}

	if c.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	switch c.cfg.Type {
	case TypeS3:
		endpoint, secure := c.cfg.s3Endpoint()
		client, err := c.newClient(storage.Config{
			Endpoint:       endpoint,
			AccessKey:      c.cfg.AccessKey,
			SecretKey:      c.cfg.SecretKey,
			UseSSL:         secure,
			Region:         c.cfg.Region,
			TimeoutSeconds: c.cfg.TimeoutSeconds,
		})
		if err != nil {
			return apperr.Configuration(op, "invalid s3 remote", err, "setup")
		}
		if err := storage.Probe(ctx, client, c.cfg.Bucket); err != nil {
			return apperr.Connectivity(op, err)
		}
	default:
		if c.lister == nil {
			return apperr.Configuration(op, "no engine available to list the remote", nil)
		}
		if err := c.lister.ListRemote(ctx); err != nil {
			return apperr.Connectivity(op, fmt.Errorf("%s: %w", c.cfg.URL, err))
		}
	}
	return nil
}
