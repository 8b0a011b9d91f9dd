// Package http implements the transport interfaces over HTTP.
//
// Key Components:
//
//   - httpClientTransport: Implements IClientTransport. Endpoints are used
//     round-robin; a failed attempt moves on to the next endpoint until the retry
//     count is used up. Requests with NoCache carry Cache-Control and Pragma headers
//     plus a t=<unix-ms> query parameter, because CDNs in front of raw file hosts
//     ignore the headers alone.
//
//   - httpServerTransport: Implements IServerTransport with graceful shutdown on
//     context cancellation. With log level debug every request is logged.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter.
package http
