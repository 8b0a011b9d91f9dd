// Package db provides the key-value database abstraction the blog keeps its local
// state in. It mirrors what a browser's local storage offers the original site: a few
// string keys (the post collection, the last sync clock, visitor statistics) each
// holding an opaque blob.
//
// Key Components:
//
//   - KVDB Interface: Set, Get, Has and Delete plus Save/Load of a binary snapshot.
//     Writes carry a logical write index; stale writes are ignored.
//
//   - Feature Flags: implementations advertise what they support (quota, durability)
//     through SupportsFeature so callers can adapt at runtime.
//
// Engines:
//
//   - maple (engines/maple): in-memory, sharded, optional byte quota.
//   - persist (engines/persist): wraps another KVDB and writes a snapshot file
//     before every write returns.
//
// Note on failures:
//
//	A failed Set leaves the previous value untouched. Callers (the post store) turn
//	such errors into StorageFailure results that are surfaced to the user.
package db
