// Package post defines the Post entity shared by every storage backend,
// the reconciler and the remote adapters.
//
// Identity:
//
//	Two posts are the same entity iff their ids are equal. Ids are assigned
//	once at creation (milliseconds since epoch, see NewID) and never change.
//
// Timestamps:
//
//	createdAt is set once; updatedAt is set at creation and on every mutation.
//	Both are ISO-8601 strings. EffectiveTimestamp is the value last-write-wins
//	conflict resolution compares: updatedAt, or createdAt if updatedAt is absent.
package post
