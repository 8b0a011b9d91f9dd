// Package client implements the remote backends of the post store (store.IBackend).
//
// Two backends exist:
//
//   - NewSnapshotBackend: the whole collection published as a posts.json file.
//     Fetch reads the raw file with a cache-busting query, Push uploads it through
//     the GitHub contents API (read sha, then PUT) and needs a token. Single posts
//     cannot be removed, a removal is pushed as the remaining collection.
//
//   - NewTableBackend: the posts REST service (see remote/server). Fetch lists all
//     posts, Push upserts each post and Remove deletes a single post by id.
//
// Both send their requests through a transport.IClientTransport, so the HTTP
// details (retries, endpoint failover, timeouts) live in remote/transport/http.
package client
