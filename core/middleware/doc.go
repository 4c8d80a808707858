// Package middleware contains HTTP middleware for the status server.
//
// # Components
//
//   - auth: API key validation. Requests must send the key in the X-API-Key
//     header; paths listed as public are let through.
//   - requestid: assigns a request id to every request, stores it in the
//     Fiber locals under "request_id" and echoes it in the X-Request-ID header.
//
// requestid must be registered first so every later log line can carry the id.
package middleware
