// Package storage probes s3 compatible remotes.
//
// It wraps the MinIO Go client behind a small Client interface so the
// connectivity check can be unit tested with the mocks in core/storage/mocks.
// File transfer is never done here; the synchronization engine owns that.
//
// # Usage
//
//	client, err := storage.NewClient(cfg)
//	err = storage.Probe(ctx, client, "backups")
package storage
