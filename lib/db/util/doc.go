// Package util provides the seeded string hashing shared by the db.KVDB engines.
// A Hasher created with NewSeededHasher yields the same keys in every process,
// which also makes it usable to derive a deterministic random source from a
// stock symbol.
package util
