package maple

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"github.com/freerahn/stockblog/lib/db"
	"github.com/freerahn/stockblog/lib/db/engines/maple/internal"
	"github.com/freerahn/stockblog/lib/db/util"
	"io"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum         = "MAPLEDB\x00" // File format identifier
	mapleVersion     = 4             // Snapshot version
	defaultNumShards = 4             // A blog keeps only a handful of keys
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory database with sharded data
type mapleImpl struct {
	numShards int
	hasher    util.Hasher
	shards    []*internal.Shard
	currIndex atomic.Uint64

	// quota accounting
	maxBytes  int64
	usedBytes atomic.Int64
	closed    atomic.Bool
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int   // Number of shards (0 = default)
	MaxBytes  int64 // Byte quota over all keys and values (0 = unlimited)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: defaultNumShards,
		MaxBytes:  0,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = defaultNumShards
	}

	newDB := &mapleImpl{
		numShards: numShards,
		hasher:    util.NewHasher(),
		maxBytes:  opts.MaxBytes,
	}
	newDB.shards = newShards(numShards)
	return newDB
}

func newShards(n int) []*internal.Shard {
	hasher := createIdentityHasher()
	shards := make([]*internal.Shard, n)
	for i := 0; i < n; i++ {
		shards[i] = internal.NewShard(hasher)
	}
	return shards
}

// createIdentityHasher creates a hash function that combines a key with a seed
func createIdentityHasher() func(util.UintKey, uint64) uint64 {
	return func(key util.UintKey, mapSeed uint64) uint64 {
		return uint64(key) ^ mapSeed
	}
}

func (maple *mapleImpl) locate(key string) (util.UintKey, *internal.Shard) {
	intKey := maple.hasher.Key(key)
	return intKey, maple.shards[intKey.Bucket(len(maple.shards))]
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry. Stale writes are ignored silently.
// If a quota is configured and the write would exceed it, db.ErrQuotaExceeded is
// returned and the old entry is kept.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte, writeIndex uint64) error {
	if maple.closed.Load() {
		return db.ErrClosed
	}
	maple.SetWriteIdx(writeIndex)

	intKey, shard := maple.locate(key)

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	newEntry := internal.Entry{Key: key, Value: valueCopy, Index: writeIndex}

	var err error
	shard.Data.Compute(intKey, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && old.Key != key {
			err = fmt.Errorf("hash collision between %q and %q", key, old.Key)
			return old, false
		}
		// stale writes are ignored
		if loaded && writeIndex < old.Index {
			return old, false
		}

		var delta int64
		if loaded {
			delta = newEntry.Size() - old.Size()
		} else {
			delta = newEntry.Size()
		}
		if !maple.reserve(delta) {
			err = fmt.Errorf("%w: %d bytes requested, %d of %d used", db.ErrQuotaExceeded, delta, maple.usedBytes.Load(), maple.maxBytes)
			if !loaded {
				return old, true // don't create an empty entry
			}
			return old, false
		}
		return newEntry, false
	})
	return err
}

// reserve charges delta bytes against the quota. Negative deltas always succeed.
func (maple *mapleImpl) reserve(delta int64) bool {
	for {
		used := maple.usedBytes.Load()
		if delta > 0 && maple.maxBytes > 0 && used+delta > maple.maxBytes {
			return false
		}
		if maple.usedBytes.CompareAndSwap(used, used+delta) {
			return true
		}
	}
}

// Delete removes an entry with the specified key. The change is immediate.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string, writeIndex uint64) error {
	if maple.closed.Load() {
		return db.ErrClosed
	}
	maple.SetWriteIdx(writeIndex)

	intKey, shard := maple.locate(key)
	shard.Data.Compute(intKey, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true // set delete to true because else the value will be created
		}
		if writeIndex < old.Index || old.Key != key {
			return old, false
		}
		maple.usedBytes.Add(-old.Size())
		return old, true
	})
	return nil
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool) {
	intKey, shard := maple.locate(key)
	e, ok := shard.Data.Load(intKey)
	if !ok || e.Key != key {
		return nil, false
	}
	data := make([]byte, len(e.Value))
	copy(data, e.Value)
	return data, true
}

// Has checks if a key exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(key string) bool {
	intKey, shard := maple.locate(key)
	e, ok := shard.Data.Load(intKey)
	return ok && e.Key == key
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the database to the writer.
// Concurrent writes during Save may or may not be part of the snapshot.
func (maple *mapleImpl) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	var entries []internal.Entry
	for _, shard := range maple.shards {
		shard.Data.Range(func(_ util.UintKey, entry internal.Entry) bool {
			entries = append(entries, entry)
			return true
		})
	}

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write maple version
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}

	// Write current write index
	if err := binary.Write(bw, binary.LittleEndian, maple.currIndex.Load()); err != nil {
		return err
	}

	// Write total entries count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, entry := range entries {
		// Write key
		if err := writeBytes(bw, []byte(entry.Key)); err != nil {
			return err
		}

		// Write index
		if err := binary.Write(bw, binary.LittleEndian, entry.Index); err != nil {
			return err
		}

		// Write value
		if err := writeBytes(bw, entry.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load restores a database from the reader, replacing all current content.
// The quota is not enforced while loading.
//
// Thread-safety: This function is not thread-safe and should not be called concurrently
func (maple *mapleImpl) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	var writeIdx uint64
	if err := binary.Read(br, binary.LittleEndian, &writeIdx); err != nil {
		return err
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	// build into fresh shards so a truncated snapshot leaves the db untouched
	shards := newShards(maple.numShards)
	var used int64
	for i := uint64(0); i < count; i++ {
		key, err := readBytes(br)
		if err != nil {
			return err
		}
		var index uint64
		if err := binary.Read(br, binary.LittleEndian, &index); err != nil {
			return err
		}
		value, err := readBytes(br)
		if err != nil {
			return err
		}

		entry := internal.Entry{Key: string(key), Value: value, Index: index}
		intKey := maple.hasher.Key(entry.Key)
		shards[intKey.Bucket(len(shards))].Data.Store(intKey, entry)
		used += entry.Size()
	}

	maple.shards = shards
	maple.usedBytes.Store(used)
	maple.currIndex.Store(0)
	maple.SetWriteIdx(writeIdx)
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	keys := 0
	shardSizes := make([]int, len(maple.shards))
	for i, shard := range maple.shards {
		shardSizes[i] = shard.Data.Size()
		keys += shardSizes[i]
	}

	meta := &struct {
		CurrentWriteIndex uint64 `json:"current_write_index"`
		ShardCount        int    `json:"shard_count"`
		ShardSizes        []int  `json:"shard_sizes"`
		MaxBytes          int64  `json:"max_bytes"`
	}{
		CurrentWriteIndex: maple.currIndex.Load(),
		ShardCount:        len(maple.shards),
		ShardSizes:        shardSizes,
		MaxBytes:          maple.maxBytes,
	}

	supported := []db.Feature{
		db.FeatureSet, db.FeatureGet, db.FeatureDelete, db.FeatureHas,
		db.FeatureSave, db.FeatureLoad,
	}
	if maple.maxBytes > 0 {
		supported = append(supported, db.FeatureQuota)
	}

	return db.DatabaseInfo{
		SizeBytes:         int(maple.usedBytes.Load()),
		Keys:              keys,
		DbType:            db.ImplMaple,
		SupportedFeatures: supported,
		Metadata:          meta,
	}
}

// SupportsFeature checks if the database supports a given feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureHas | db.FeatureSave | db.FeatureLoad
	if maple.maxBytes > 0 {
		supported |= db.FeatureQuota
	}
	return feature&supported == feature
}

// --------------------------------------------------------------------------
// Write Index Operations
// --------------------------------------------------------------------------

// SetWriteIdx sets the current index only if the provided index is greater than the current index.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetWriteIdx(writeIdx uint64) {
	for {
		current := maple.currIndex.Load()
		if writeIdx <= current {
			return
		}
		if maple.currIndex.CompareAndSwap(current, writeIdx) {
			return
		}
	}
}

// WriteIdx returns the current write index
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}

// Close marks the database as closed. Reads keep working, writes fail with db.ErrClosed.
func (maple *mapleImpl) Close() error {
	maple.closed.Store(true)
	return nil
}
