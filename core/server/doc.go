// Package server holds configuration for the read-only status HTTP server
// started by the serve command.
//
// # Configuration
//
//   - SERVER_HOST: bind address (default 127.0.0.1)
//   - SERVER_PORT: listen port (default 8080)
//   - SERVER_API_KEY: required in the X-API-Key header when set
package server
