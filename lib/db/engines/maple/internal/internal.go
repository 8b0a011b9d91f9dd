package internal

import (
	"github.com/freerahn/stockblog/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Entry Type (key-value pair with metadata)
// --------------------------------------------------------------------------

// Entry stores a value with the write index it was written at
type Entry struct {
	Key   string // Original key, kept for snapshots and collision checks
	Value []byte // Stored data
	Index uint64 // Write index when this entry was created/updated
}

// Size returns the number of bytes the entry is charged against the quota
func (e Entry) Size() int64 {
	return int64(len(e.Key) + len(e.Value))
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard is one partition of the keyspace. Keys are hashed entries, the
// original key is kept in the Entry.
type Shard struct {
	Data *xsync.MapOf[util.UintKey, Entry]
}

// NewShard creates an empty shard hashing keys with hasher
func NewShard(hasher func(util.UintKey, uint64) uint64) *Shard {
	return &Shard{
		Data: xsync.NewMapOfWithHasher[util.UintKey, Entry](hasher),
	}
}
