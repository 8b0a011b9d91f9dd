// Package server implements the posts REST service that backs the remote table backend.
//
// Routes:
//
//	GET    /posts           all posts, newest first (never cached by clients)
//	GET    /posts/{id}      a single post, counts a view
//	POST   /posts           upsert, 201 {"success":true,"id":...}
//	PUT    /posts/{id}      partial update of an existing post
//	DELETE /posts/{id}      also DELETE /posts?id=...
//	GET    /stats           visitor and view counters
//	GET    /                health check, counts a visitor
//	GET    /metrics         Prometheus exposition
//
// Every route answers OPTIONS with 204 and carries permissive CORS headers. Each resource
// is an IServerAdapter registering its routes on a shared mux.
package server
