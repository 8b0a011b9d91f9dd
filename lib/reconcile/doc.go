// Package reconcile keeps the local post store and a remote backend converging.
//
// The model is last-write-wins per post id without tombstones:
//
//   - Merge combines a local and a remote collection. A remote post replaces the local
//     post with the same id only if its effective timestamp (updatedAt, falling back to
//     createdAt) is strictly later. Merge only ever adds or replaces posts.
//
//   - Reconciler fetches the remote collection, merges it and commits the result in a
//     single write. A failed fetch or an empty remote leaves the store alone. Regular
//     syncs are gated by a cooldown kept in SyncState.
//
//   - Propagator pushes local writes on a background goroutine. Its outcome is reported
//     through a PushTask and never affects the local write.
//
//   - Blog ties the three together and is what the command line and other callers use.
//
// Counters for syncs and pushes are registered with VictoriaMetrics/metrics; timings of
// fetches and pushes are kept in a go-metrics Registry (see WriteTimers).
package reconcile
