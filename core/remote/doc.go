// Package remote describes the single shared remote every destination syncs
// against.
//
// The RemoteConnection is loaded once from configuration and passed to the
// components that need it. Only the setup flow changes it: Provision registers
// the rclone remote and the caller persists the non-secret settings. Check
// reports whether the remote is reachable and listable without transferring
// files. WebDAV remotes are listed through the engine; s3 remotes are probed
// with the storage client.
package remote
