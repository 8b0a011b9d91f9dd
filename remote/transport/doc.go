// Package transport defines the interfaces for talking HTTP to the remotes of the
// blog and for serving the posts REST service.
//
// Key Components:
//
//   - IClientTransport: sends a Request to one of several endpoints (round-robin)
//     with retries and returns the fully read Response, whatever its status.
//
//   - IServerTransport: serves an http.Handler until its context is cancelled.
//
// The implementation lives in the http sub-package.
package transport
