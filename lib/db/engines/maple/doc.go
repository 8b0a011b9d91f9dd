// Package maple implements an in-memory key-value database (KVDB) with sharded,
// mostly lock-free storage. It is the default engine behind the blog's local
// storage and satisfies the db.KVDB interface.
//
// Key Components:
//
//   - mapleImpl: The central structure. It owns the shards, the write index and the
//     quota counter. The write index is not generated here; callers pass it with every
//     write, which lets them choose any logical clock.
//
//   - Shard: A partition of the key space backed by an xsync.MapOf. Keys are hashed
//     with FNV-1a (util.HashString) using a per-instance seed, then shifted right by 7
//     bits before the modulo to pick a shard.
//
//   - Entry: The stored value plus the original key and the write index it was
//     written at.
//
// Internal Mechanisms:
//
//   - Stale Write Prevention: A write is only applied if its index is greater than or
//     equal to the stored entry's index.
//
//   - Quota: With DBOptions.MaxBytes set, the summed size of all keys and values is
//     tracked atomically. A write that would cross the limit fails with
//     db.ErrQuotaExceeded and leaves the previous value in place, the way a browser's
//     local storage rejects oversized items.
//
//   - Persistence Format:
//     1. Magic number "MAPLEDB\x00"
//     2. Version number (currently 4)
//     3. Current write index
//     4. Number of entries
//     5. For each entry: key length, key, index, value length, value
//     Save takes a fuzzy snapshot without locking. Load builds new shards first, so a
//     truncated or foreign snapshot leaves the database unchanged.
package maple
