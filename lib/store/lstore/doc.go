// Package lstore implements store.IPostStore on top of a single db.KVDB.
//
// The whole collection is one blob under the key "stock_blog_posts", encoded with
// the configured store.Codec. This matches how the browser version of the blog keeps
// its posts in local storage, and it makes every write an all-or-nothing replacement
// of the collection.
//
// Implementation Details:
//
//   - Write Index Management: The store maintains an atomic counter that increments
//     with each write. On open it continues from the index of the loaded snapshot,
//     so writes after a restart are never treated as stale.
//
//   - Fail-soft Reads: A missing, empty or undecodable blob reads as an empty
//     collection. The decode error is logged, not returned.
//
//   - Surfaced Write Failures: If the db rejects a write (quota, closed, failed
//     snapshot file) the store returns a *store.Error with RetCStorageFailure and the
//     previous collection stays in place.
//
// Thread Safety:
//
//	Writers are serialized by a mutex so concurrent Put and Delete calls cannot lose
//	each other's changes. Reads do not take the lock.
//
// Usage Example:
//
//	factory := func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil }
//	posts, err := lstore.NewLocalStore(factory, serializer.NewJSONSerializer())
//	err = posts.Put(post.New("Samsung Q3", "...", time.Now()))
package lstore
